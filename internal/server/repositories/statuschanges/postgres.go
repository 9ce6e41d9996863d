// Package statuschanges stores the immutable log of note status transitions.
package statuschanges

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// PostgresRepository implements the transition log over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append writes one transition together with the counts observed at that moment.
func (r *PostgresRepository) Append(ctx context.Context, c *models.NoteStatusChange) (*models.NoteStatusChange, error) {
	query := `
		INSERT INTO note_status_changes
			(note_id, from_status, to_status, helpful_count, somewhat_count, not_helpful_count, trigger)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.NoteID, c.FromStatus, c.ToStatus, c.Helpful, c.Somewhat, c.NotHelpful, c.Trigger).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// ListByNote orders by created_at and then id, so transitions written in the
// same transaction keep their order.
func (r *PostgresRepository) ListByNote(ctx context.Context, noteID string) ([]*models.NoteStatusChange, error) {
	query := `
		SELECT id, note_id, from_status, to_status, helpful_count, somewhat_count, not_helpful_count, trigger, created_at
		FROM note_status_changes
		WHERE note_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to select status changes: %w", err)
	}
	defer rows.Close()

	var result []*models.NoteStatusChange
	for rows.Next() {
		var c models.NoteStatusChange
		if err := rows.Scan(&c.ID, &c.NoteID, &c.FromStatus, &c.ToStatus,
			&c.Helpful, &c.Somewhat, &c.NotHelpful, &c.Trigger, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
