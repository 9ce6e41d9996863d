package notes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, note *models.Note) (*models.Note, error)
	GetByID(ctx context.Context, id string) (*models.Note, error)
	// GetForUpdate reads the note and row-locks it until the transaction
	// ends, serializing count and status writers on the same note.
	GetForUpdate(ctx context.Context, id string) (*models.Note, error)
	// ListByPage returns notes of a page with fewer than maxReports reports,
	// newest first.
	ListByPage(ctx context.Context, pageKey string, maxReports int) ([]*models.Note, error)
	// ListByAuthor returns every note the user wrote, hidden ones included,
	// newest first.
	ListByAuthor(ctx context.Context, authorID string) ([]*models.Note, error)
	Delete(ctx context.Context, id string) error

	UpdateCounts(ctx context.Context, id string, tally models.Tally) error
	UpdateStatus(ctx context.Context, id string, status models.NoteStatus) error
	UpdateBody(ctx context.Context, id string, body string, editedAt time.Time) error

	// TalliesByAuthor returns the current tally of every note the user wrote.
	TalliesByAuthor(ctx context.Context, authorID string) ([]models.Tally, error)
	StatsByAuthor(ctx context.Context, authorID string, maxReports int) (*models.NoteStats, error)

	IncrementReports(ctx context.Context, id string) (int, error)
	ResetReports(ctx context.Context, id string) error

	AddVersion(ctx context.Context, noteID string, previousBody string) error
	ListVersions(ctx context.Context, noteID string) ([]*models.NoteVersion, error)
}
