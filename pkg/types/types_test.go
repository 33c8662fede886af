package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseContent_TextDefaults(t *testing.T) {
	content, err := ParseContent("hello", "", nil)
	require.NoError(t, err)
	require.Equal(t, MessageTypeText, content.Type)
	require.Equal(t, "hello", content.Body)
	require.Nil(t, content.FileURL)

	explicit, err := ParseContent("hello", "text", nil)
	require.NoError(t, err)
	require.Equal(t, content, explicit)
}

func TestParseContent_File(t *testing.T) {
	url := "https://cdn.example/report.pdf"
	content, err := ParseContent("report.pdf", "file", &url)
	require.NoError(t, err)
	require.Equal(t, MessageTypeFile, content.Type)
	require.Equal(t, "report.pdf", content.Body)
	require.NotNil(t, content.FileURL)
	require.Equal(t, url, *content.FileURL)
}

func TestParseContent_FileWithoutURL(t *testing.T) {
	_, err := ParseContent("report.pdf", "file", nil)
	require.ErrorIs(t, err, ErrMissingFileURL)

	empty := ""
	_, err = ParseContent("report.pdf", "file", &empty)
	require.ErrorIs(t, err, ErrMissingFileURL)
}

func TestParseContent_UnknownType(t *testing.T) {
	_, err := ParseContent("hi", "video", nil)
	require.ErrorIs(t, err, ErrInvalidMessageType)
}

func TestParseContent_RejectsBadBody(t *testing.T) {
	_, err := ParseContent("", "", nil)
	require.ErrorIs(t, err, ErrInvalidBody)

	_, err = ParseContent(strings.Repeat("a", MaxBodyBytes+1), "", nil)
	require.ErrorIs(t, err, ErrInvalidBody)
}

func TestIsValidBody_AcceptsUpToCap(t *testing.T) {
	require.True(t, IsValidBody("x"))
	require.True(t, IsValidBody(strings.Repeat("a", MaxBodyBytes)))
	require.False(t, IsValidBody(""))
	require.False(t, IsValidBody(strings.Repeat("a", MaxBodyBytes+1)))
}

func TestIsValidDisplayName_CountsRunes(t *testing.T) {
	require.True(t, IsValidDisplayName("Alice"))
	// 100 multibyte runes are within the cap even though the byte count is not.
	require.True(t, IsValidDisplayName(strings.Repeat("é", MaxDisplayNameChars)))
	require.False(t, IsValidDisplayName(""))
	require.False(t, IsValidDisplayName(strings.Repeat("a", MaxDisplayNameChars+1)))
}

func TestIsValidID(t *testing.T) {
	require.True(t, IsValidID(1))
	require.False(t, IsValidID(0))
	require.False(t, IsValidID(-5))
}
