package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// migrations is the compiled-in, ordered schema history. Versions must sort
// lexicographically in application order.
var migrations = []Migration{
	{
		Version:     "001",
		Description: "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id     INTEGER PRIMARY KEY AUTOINCREMENT,
				name   TEXT NOT NULL,
				avatar TEXT NOT NULL DEFAULT ''
			);

			CREATE TABLE IF NOT EXISTS sections (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				course_id INTEGER NOT NULL,
				name      TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS enrollments (
				user_id    INTEGER NOT NULL REFERENCES users(id),
				section_id INTEGER NOT NULL REFERENCES sections(id),
				PRIMARY KEY (user_id, section_id)
			);

			CREATE TABLE IF NOT EXISTS rooms (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				section_id INTEGER NOT NULL REFERENCES sections(id),
				name       TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS messages (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				room_id      INTEGER NOT NULL REFERENCES rooms(id),
				sender_id    INTEGER NOT NULL REFERENCES users(id),
				body         TEXT NOT NULL,
				message_type TEXT NOT NULL DEFAULT 'text'
					CHECK (message_type IN ('text', 'file')),
				file_url     TEXT,
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);

			CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
			CREATE INDEX IF NOT EXISTS idx_enrollments_section ON enrollments(section_id);
		`,
	},
	{
		Version:     "002",
		Description: "unique_room_per_section",
		SQL: `
			CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_section ON rooms(section_id);
		`,
	},
}

// MigrationManager applies pending migrations against a database.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a migration manager.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// ApplyMigrations applies every migration not yet recorded in
// schema_migrations, each inside its own transaction.
func (m *MigrationManager) ApplyMigrations() error {
	if err := m.createMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Version < ordered[j].Version
	})

	for _, migration := range ordered {
		if applied[migration.Version] {
			continue
		}
		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

// ValidateSchema verifies that the tables the store relies on exist.
func (m *MigrationManager) ValidateSchema() error {
	required := []string{"users", "sections", "enrollments", "rooms", "messages"}
	for _, table := range required {
		exists, err := m.tableExists(table)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("required table %s does not exist", table)
		}
	}
	return nil
}

func (m *MigrationManager) createMigrationTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *MigrationManager) appliedVersions() (map[string]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		versions[version] = true
	}
	return versions, rows.Err()
}

func (m *MigrationManager) applyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(migration.SQL); err != nil {
		return err
	}
	if _, err = tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *MigrationManager) tableExists(name string) (bool, error) {
	var count int
	err := m.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
