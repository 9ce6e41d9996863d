package ratings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// PostgresRepository implements the ledger over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert relies on the (user_id, note_id) unique constraint. An overwrite
// keeps the original id, so the rating's insertion rank never changes.
func (r *PostgresRepository) Upsert(ctx context.Context, userID, noteID string, h models.Helpfulness) (*models.Rating, bool, error) {
	query := `
		INSERT INTO ratings (user_id, note_id, helpfulness)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, note_id)
		DO UPDATE SET helpfulness = EXCLUDED.helpfulness, updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`
	rating := &models.Rating{UserID: userID, NoteID: noteID, Helpfulness: h}
	var inserted bool
	err := r.db.QueryRowContext(ctx, query, userID, noteID, h).
		Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt, &inserted)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, false, common.ErrorDuplicate
		}
		if dbx.IsForeignKeyViolation(err) || dbx.IsInvalidTextRepresentation(err) {
			return nil, false, common.ErrorNotFound
		}
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return rating, inserted, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, noteID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ratings WHERE user_id = $1 AND note_id = $2`, userID, noteID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, noteID string) (*models.Rating, error) {
	query := `
		SELECT id, user_id, note_id, helpfulness, created_at, updated_at
		FROM ratings
		WHERE user_id = $1 AND note_id = $2
	`
	rt := &models.Rating{}
	err := r.db.QueryRowContext(ctx, query, userID, noteID).
		Scan(&rt.ID, &rt.UserID, &rt.NoteID, &rt.Helpfulness, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// CountByNote runs the three per-value counts in a single statement.
func (r *PostgresRepository) CountByNote(ctx context.Context, noteID string) (models.Tally, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE helpfulness = $2),
		       COUNT(*) FILTER (WHERE helpfulness = $3),
		       COUNT(*) FILTER (WHERE helpfulness = $4)
		FROM ratings
		WHERE note_id = $1
	`
	var t models.Tally
	err := r.db.QueryRowContext(ctx, query, noteID,
		models.HelpfulnessYes, models.HelpfulnessSomewhat, models.HelpfulnessNo).
		Scan(&t.Helpful, &t.Somewhat, &t.NotHelpful)
	if err != nil {
		return models.Tally{}, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) RaterIDs(ctx context.Context, noteID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM ratings WHERE note_id = $1 ORDER BY user_id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to select raters: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DecidedRatings ranks each vote among the live votes of its note by id,
// independently per note. Withdrawn votes leave no gap in the ranking.
func (r *PostgresRepository) DecidedRatings(ctx context.Context, userID string) ([]models.DecidedRating, error) {
	query := `
		SELECT r.note_id, r.helpfulness, n.status,
		       (SELECT COUNT(*) FROM ratings r2 WHERE r2.note_id = r.note_id AND r2.id <= r.id) AS rank
		FROM ratings r
		JOIN notes n ON n.id = r.note_id
		WHERE r.user_id = $1 AND n.status IN ($2, $3)
		ORDER BY r.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, models.StatusHelpful, models.StatusNotHelpful)
	if err != nil {
		return nil, fmt.Errorf("failed to select decided ratings: %w", err)
	}
	defer rows.Close()

	var result []models.DecidedRating
	for rows.Next() {
		var d models.DecidedRating
		if err := rows.Scan(&d.NoteID, &d.Helpfulness, &d.NoteStatus, &d.Rank); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ByUserOnPage(ctx context.Context, userID, pageKey string) (map[string]models.Helpfulness, error) {
	query := `
		SELECT r.note_id, r.helpfulness
		FROM ratings r
		JOIN notes n ON n.id = r.note_id
		WHERE r.user_id = $1 AND n.page_key = $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, pageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to select page ratings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]models.Helpfulness)
	for rows.Next() {
		var noteID string
		var h models.Helpfulness
		if err := rows.Scan(&noteID, &h); err != nil {
			return nil, err
		}
		result[noteID] = h
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserRating, error) {
	query := `
		SELECT r.id, r.user_id, r.note_id, r.helpfulness, r.created_at, r.updated_at,
		       n.body, n.author_id, n.status
		FROM ratings r
		JOIN notes n ON n.id = r.note_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select user ratings: %w", err)
	}
	defer rows.Close()

	var result []*models.UserRating
	for rows.Next() {
		ur := &models.UserRating{}
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.NoteID, &ur.Helpfulness, &ur.CreatedAt, &ur.UpdatedAt,
			&ur.NoteBody, &ur.NoteAuthorID, &ur.NoteStatus); err != nil {
			return nil, err
		}
		result = append(result, ur)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
