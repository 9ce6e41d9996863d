package users

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

const userColumns = `id, external_id, handle, display_name, follower_count, account_created_at,
		 reputation_score, rating_impact, karma, role, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.ExternalID, &u.Handle, &u.DisplayName, &u.FollowerCount, &u.AccountCreatedAt,
		&u.ReputationScore, &u.RatingImpact, &u.Karma, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbx.IsInvalidTextRepresentation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpsertByExternalID(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, external_id, handle, display_name, follower_count, account_created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (external_id) DO UPDATE
		 SET handle = EXCLUDED.handle,
		     display_name = EXCLUDED.display_name,
		     follower_count = EXCLUDED.follower_count,
		     account_created_at = EXCLUDED.account_created_at
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query,
		user.ID, user.ExternalID, user.Handle, user.DisplayName, user.FollowerCount, user.AccountCreatedAt))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	// NO KEY UPDATE does not conflict with the KEY SHARE locks taken by
	// foreign key checks on ratings and notes.
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR NO KEY UPDATE`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateAccountSignals(ctx context.Context, id string, followers *int, accountCreatedAt *time.Time) error {
	query :=
		`UPDATE users SET follower_count = $2, account_created_at = $3
		 WHERE id = $1`
	return r.exec(ctx, query, id, followers, accountCreatedAt)
}

func (r *PostgresRepository) UpdateReputation(ctx context.Context, id string, score float64) error {
	return r.exec(ctx, `UPDATE users SET reputation_score = $2 WHERE id = $1`, id, score)
}

func (r *PostgresRepository) UpdateRatingImpact(ctx context.Context, id string, impact float64) error {
	return r.exec(ctx, `UPDATE users SET rating_impact = $2 WHERE id = $1`, id, impact)
}

func (r *PostgresRepository) UpdateKarma(ctx context.Context, id string, karma float64) error {
	return r.exec(ctx, `UPDATE users SET karma = $2 WHERE id = $1`, id, karma)
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
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
