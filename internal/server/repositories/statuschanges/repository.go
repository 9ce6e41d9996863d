package statuschanges

import (
	"context"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// Repository is the append-only note status audit log. There is no update or
// delete; rows disappear only with their note.
type Repository interface {
	Append(ctx context.Context, change *models.NoteStatusChange) (*models.NoteStatusChange, error)
	// ListByNote returns the transitions of a note, oldest first.
	ListByNote(ctx context.Context, noteID string) ([]*models.NoteStatusChange, error)
}
