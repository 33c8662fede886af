package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studyhall/pkg/types"
)

// GetOrCreateRoom returns the room owning sectionID, creating it on first
// access. The final read wins over the insert result: if two first joins race,
// both end up with the row the unique index let through.
func (m *Manager) GetOrCreateRoom(ctx context.Context, sectionID int64) (*types.Room, error) {
	room, err := m.roomBySection(ctx, sectionID)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up room for section %d: %w", sectionID, err)
	}

	err = m.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			"INSERT OR IGNORE INTO rooms (section_id, name) VALUES (?, ?)",
			sectionID, fmt.Sprintf("Section %d Chat", sectionID),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room for section %d: %w", sectionID, err)
	}

	room, err = m.roomBySection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read room for section %d: %w", sectionID, err)
	}
	return room, nil
}

func (m *Manager) roomBySection(ctx context.Context, sectionID int64) (*types.Room, error) {
	var room types.Room
	err := m.db.QueryRowContext(ctx,
		"SELECT id, section_id, name FROM rooms WHERE section_id = ? ORDER BY id LIMIT 1",
		sectionID,
	).Scan(&room.ID, &room.SectionID, &room.Name)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
