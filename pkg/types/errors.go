package types

import "errors"

// Validation errors reported before any side effect takes place.
var (
	ErrInvalidID          = errors.New("identifier must be a positive integer")
	ErrInvalidBody        = errors.New("message body must be 1 character to 64KB")
	ErrInvalidMessageType = errors.New("message type must be 'text' or 'file'")
	ErrMissingFileURL     = errors.New("file messages require a file_url")
	ErrInvalidDisplayName = errors.New("display name must be 1-100 characters")
)
