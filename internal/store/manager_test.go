package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"studyhall/pkg/database"
)

// newTestManager opens a fresh migrated database under t.TempDir.
func newTestManager(t *testing.T) *Manager {
	t.Helper()

	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "studyhall_test.db")

	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m
}

// seedUser inserts a user row with fixed display metadata.
func seedUser(t *testing.T, m *Manager, id int64, name, avatar string) {
	t.Helper()
	_, err := m.DB().Exec(
		"INSERT INTO users (id, name, avatar) VALUES (?, ?, ?)", id, name, avatar,
	)
	require.NoError(t, err)
}

// seedSection inserts a section row.
func seedSection(t *testing.T, m *Manager, id, courseID int64) {
	t.Helper()
	_, err := m.DB().Exec(
		"INSERT INTO sections (id, course_id, name) VALUES (?, ?, ?)", id, courseID, "Test Section",
	)
	require.NoError(t, err)
}

// seedEnrollment enrolls a user in a section.
func seedEnrollment(t *testing.T, m *Manager, userID, sectionID int64) {
	t.Helper()
	_, err := m.DB().Exec(
		"INSERT INTO enrollments (user_id, section_id) VALUES (?, ?)", userID, sectionID,
	)
	require.NoError(t, err)
}

func TestManager_HealthCheck(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.HealthCheck())
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "close_test.db")

	m, err := NewManager(cfg)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestManager_WriteAfterCloseFails(t *testing.T) {
	cfg := database.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "closed_write_test.db")

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	err = m.executeWrite(func(db *sql.DB) error { return nil })
	require.Error(t, err)
}
