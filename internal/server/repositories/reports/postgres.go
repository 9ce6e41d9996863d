// Package reports provides a PostgreSQL-backed repository for moderation
// reports raised against notes.
package reports

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// PostgresRepository implements report storage over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a report. The unique (user_id, note_id) constraint maps to
// common.ErrorDuplicate and a missing note to common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, report *models.Report) (*models.Report, error) {
	query := `
		INSERT INTO reports (id, user_id, note_id, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, report.ID, report.UserID, report.NoteID, report.Reason).
		Scan(&report.CreatedAt)
	if err != nil {
		switch {
		case dbx.IsUniqueViolation(err):
			return nil, common.ErrorDuplicate
		case dbx.IsForeignKeyViolation(err), dbx.IsInvalidTextRepresentation(err):
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return report, nil
}

// ListRecent returns reports newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*models.Report, error) {
	query := `
		SELECT id, user_id, note_id, reason, created_at
		FROM reports
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()

	var result []*models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.UserID, &rep.NoteID, &rep.Reason, &rep.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &rep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
