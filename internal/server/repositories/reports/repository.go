// Package reports declares the repository contract for moderation reports.
package reports

import (
	"context"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// Repository stores one report per (user, note).
type Repository interface {
	// Create stores the report. A second report by the same user on the same
	// note yields common.ErrorDuplicate.
	Create(ctx context.Context, report *models.Report) (*models.Report, error)

	// ListRecent returns the newest reports first, at most limit of them.
	ListRecent(ctx context.Context, limit int) ([]*models.Report, error)
}
