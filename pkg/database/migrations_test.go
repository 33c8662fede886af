package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *MigrationManager {
	t.Helper()

	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "migrations_test.db")

	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewMigrationManager(db)
}

func TestApplyMigrations_CreatesSchema(t *testing.T) {
	m := openTestDB(t)

	require.NoError(t, m.ApplyMigrations())
	require.NoError(t, m.ValidateSchema())
}

func TestApplyMigrations_IsIdempotent(t *testing.T) {
	m := openTestDB(t)

	require.NoError(t, m.ApplyMigrations())
	require.NoError(t, m.ApplyMigrations())

	var count int
	require.NoError(t, m.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	require.Equal(t, len(migrations), count)
}

func TestValidateSchema_FailsBeforeMigration(t *testing.T) {
	m := openTestDB(t)
	require.Error(t, m.ValidateSchema())
}

func TestUniqueRoomPerSection(t *testing.T) {
	m := openTestDB(t)
	require.NoError(t, m.ApplyMigrations())

	_, err := m.db.Exec("INSERT INTO sections (id, course_id, name) VALUES (1, 1, 'S')")
	require.NoError(t, err)
	_, err = m.db.Exec("INSERT INTO rooms (section_id, name) VALUES (1, 'Chat')")
	require.NoError(t, err)
	_, err = m.db.Exec("INSERT INTO rooms (section_id, name) VALUES (1, 'Chat Again')")
	require.Error(t, err)
}

func TestMessageTypeConstraint(t *testing.T) {
	m := openTestDB(t)
	require.NoError(t, m.ApplyMigrations())

	_, err := m.db.Exec("INSERT INTO users (id, name) VALUES (1, 'Alice')")
	require.NoError(t, err)
	_, err = m.db.Exec("INSERT INTO sections (id, course_id, name) VALUES (1, 1, 'S')")
	require.NoError(t, err)
	_, err = m.db.Exec("INSERT INTO rooms (id, section_id, name) VALUES (1, 1, 'Chat')")
	require.NoError(t, err)

	_, err = m.db.Exec("INSERT INTO messages (room_id, sender_id, body, message_type) VALUES (1, 1, 'x', 'video')")
	require.Error(t, err)
}
