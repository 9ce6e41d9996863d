package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

type Repository interface {
	// UpsertByExternalID creates the user on first sign-in or refreshes the
	// identity fields of an existing one. Scores are left untouched.
	UpsertByExternalID(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetForUpdate reads the user and row-locks it until the transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	UpdateAccountSignals(ctx context.Context, id string, followers *int, accountCreatedAt *time.Time) error
	UpdateReputation(ctx context.Context, id string, score float64) error
	UpdateRatingImpact(ctx context.Context, id string, impact float64) error
	UpdateKarma(ctx context.Context, id string, karma float64) error
}
