// Package notes provides PostgreSQL-backed repositories for notes, their
// derived counters and their edit history.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

const noteColumns = `id, author_id, page_key, body, selected_text,
		 helpful_count, somewhat_count, not_helpful_count, status, reports_count, edited_at, created_at`

// PostgresRepository implements note storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	n := &models.Note{}
	err := s.Scan(&n.ID, &n.AuthorID, &n.PageKey, &n.Body, &n.SelectedText,
		&n.Helpful, &n.Somewhat, &n.NotHelpful, &n.Status, &n.ReportsCount, &n.EditedAt, &n.CreatedAt)
	return n, err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Note, error) {
	n, err := scanNote(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		// A malformed id cannot match any row.
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Create inserts a fresh pending note with zero counters.
func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (id, author_id, page_key, body, selected_text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + noteColumns
	return r.getOne(ctx, query, note.ID, note.AuthorID, note.PageKey, note.Body, note.SelectedText)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Note, error) {
	return r.getOne(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Note, error) {
	return r.getOne(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1 FOR NO KEY UPDATE`, id)
}

func (r *PostgresRepository) ListByPage(ctx context.Context, pageKey string, maxReports int) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE page_key = $1 AND reports_count < $2
		ORDER BY created_at DESC, id`
	return r.list(ctx, query, pageKey, maxReports)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE author_id = $1
		ORDER BY created_at DESC, id`
	return r.list(ctx, query, authorID)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the note. Ratings, status changes, reports and versions go
// with it through ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
}

func (r *PostgresRepository) UpdateCounts(ctx context.Context, id string, t models.Tally) error {
	query := `
		UPDATE notes SET helpful_count = $2, somewhat_count = $3, not_helpful_count = $4
		WHERE id = $1`
	return r.exec(ctx, query, id, t.Helpful, t.Somewhat, t.NotHelpful)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.NoteStatus) error {
	return r.exec(ctx, `UPDATE notes SET status = $2 WHERE id = $1`, id, status)
}

func (r *PostgresRepository) UpdateBody(ctx context.Context, id string, body string, editedAt time.Time) error {
	return r.exec(ctx, `UPDATE notes SET body = $2, edited_at = $3 WHERE id = $1`, id, body, editedAt)
}

func (r *PostgresRepository) TalliesByAuthor(ctx context.Context, authorID string) ([]models.Tally, error) {
	query := `SELECT helpful_count, somewhat_count, not_helpful_count FROM notes WHERE author_id = $1`
	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tallies: %w", err)
	}
	defer rows.Close()

	var result []models.Tally
	for rows.Next() {
		var t models.Tally
		if err := rows.Scan(&t.Helpful, &t.Somewhat, &t.NotHelpful); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) StatsByAuthor(ctx context.Context, authorID string, maxReports int) (*models.NoteStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COUNT(*) FILTER (WHERE status = $3),
		       COUNT(*) FILTER (WHERE status = $4),
		       COUNT(*) FILTER (WHERE reports_count < $5)
		FROM notes WHERE author_id = $1`

	s := &models.NoteStats{}
	err := r.db.QueryRowContext(ctx, query, authorID,
		models.StatusHelpful, models.StatusNotHelpful, models.StatusPending, maxReports).
		Scan(&s.Total, &s.Helpful, &s.NotHelpful, &s.Pending, &s.Public)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

// IncrementReports bumps the moderation counter and returns its new value.
func (r *PostgresRepository) IncrementReports(ctx context.Context, id string) (int, error) {
	query := `UPDATE notes SET reports_count = reports_count + 1 WHERE id = $1 RETURNING reports_count`

	var n int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ResetReports(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE notes SET reports_count = 0 WHERE id = $1`, id)
}

func (r *PostgresRepository) AddVersion(ctx context.Context, noteID string, previousBody string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO note_versions (note_id, previous_body) VALUES ($1, $2)`, noteID, previousBody)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListVersions returns the edit history of a note, newest first.
func (r *PostgresRepository) ListVersions(ctx context.Context, noteID string) ([]*models.NoteVersion, error) {
	query := `SELECT id, note_id, previous_body, created_at FROM note_versions
		WHERE note_id = $1 ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions: %w", err)
	}
	defer rows.Close()

	var result []*models.NoteVersion
	for rows.Next() {
		var v models.NoteVersion
		if err := rows.Scan(&v.ID, &v.NoteID, &v.PreviousBody, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if dbx.IsInvalidTextRepresentation(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
