package store

import (
	"context"
	"fmt"
)

// IsMember reports whether userID is enrolled in sectionID and roomID belongs
// to that section. Consulted on every join, never cached: enrollment changes
// between sessions and the query is cheap next to a connection's lifetime.
func (m *Manager) IsMember(ctx context.Context, userID, sectionID, roomID int64) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM enrollments e
		JOIN sections s ON s.id = e.section_id
		JOIN rooms r ON r.section_id = s.id
		WHERE e.user_id = ? AND e.section_id = ? AND r.id = ?`,
		userID, sectionID, roomID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check membership for user %d in room %d: %w", userID, roomID, err)
	}
	return count > 0, nil
}
