package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studyhall/pkg/interfaces"
	"studyhall/pkg/types"
)

// DefaultHistoryLimit caps message history reads. Cursoring past the cap is
// not supported.
const DefaultHistoryLimit = 100

const messageColumns = `
	m.id, m.room_id, m.sender_id, u.name, u.avatar,
	m.body, m.message_type, m.file_url, m.created_at
`

// AppendMessage durably persists a message and returns its generated id.
func (m *Manager) AppendMessage(ctx context.Context, roomID, senderID int64, content types.MessageContent) (int64, error) {
	var id int64
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO messages (room_id, sender_id, body, message_type, file_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			roomID, senderID, content.Body, string(content.Type), content.FileURL,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append message to room %d: %w", roomID, err)
	}
	return id, nil
}

// EnrichMessage re-reads a message joined with the sender's display metadata.
// The engine always broadcasts this record, never client input, so every
// recipient sees the server-assigned id and timestamp.
func (m *Manager) EnrichMessage(ctx context.Context, messageID int64) (*types.Message, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = ?`,
		messageID,
	)

	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to enrich message %d: %w", messageID, err)
	}
	return msg, nil
}

// ListMessages returns a room's messages ascending by id (creation order),
// capped at limit. Zero or negative limits fall back to DefaultHistoryLimit.
func (m *Manager) ListMessages(ctx context.Context, roomID int64, limit int) ([]*types.Message, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.room_id = ?
		ORDER BY m.id ASC
		LIMIT ?`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for room %d: %w", roomID, err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

// DeleteMessage hard-deletes a message. Ownership is the caller's problem:
// the engine verifies sender identity before calling this.
func (m *Manager) DeleteMessage(ctx context.Context, messageID int64) error {
	err := m.executeWrite(func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", messageID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return interfaces.ErrMessageNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*types.Message, error) {
	var msg types.Message
	var fileURL sql.NullString
	var messageType string

	err := row.Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.SenderAvatar,
		&msg.Body,
		&messageType,
		&fileURL,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Type = types.MessageType(messageType)
	if fileURL.Valid {
		msg.FileURL = &fileURL.String
	}
	return &msg, nil
}
