// Package ratings declares the rating ledger: at most one helpfulness vote
// per (user, note), overwritten in place.
package ratings

import (
	"context"

	"github.com/dmitrijs2005/pagenotes/internal/server/models"
)

// Repository is the rating ledger contract.
type Repository interface {
	// Upsert stores the vote, overwriting an existing one in place. inserted
	// reports whether a new row was created.
	Upsert(ctx context.Context, userID, noteID string, h models.Helpfulness) (rating *models.Rating, inserted bool, err error)

	// Delete removes the user's vote on the note. Deleting a missing vote is
	// not an error; deleted reports whether a row was removed.
	Delete(ctx context.Context, userID, noteID string) (deleted bool, err error)

	// Get returns the user's vote on the note or common.ErrorNotFound.
	Get(ctx context.Context, userID, noteID string) (*models.Rating, error)

	// CountByNote recounts the live votes of a note grouped by helpfulness.
	CountByNote(ctx context.Context, noteID string) (models.Tally, error)

	// RaterIDs lists every user holding a vote on the note, ordered by id.
	RaterIDs(ctx context.Context, noteID string) ([]string, error)

	// DecidedRatings returns the user's votes on decided notes together with
	// each vote's insertion rank on its note.
	//
	// The rank counts live votes only. When an earlier rater withdraws, every
	// later vote on that note moves up one place and may become early. Stored
	// rating impact picks this up on the next status transition of the note
	// or on an explicit recompute, not on the withdrawal itself.
	DecidedRatings(ctx context.Context, userID string) ([]models.DecidedRating, error)

	// ByUserOnPage maps note id to the user's vote for every note of a page.
	ByUserOnPage(ctx context.Context, userID, pageKey string) (map[string]models.Helpfulness, error)

	// ListByUser returns the user's votes with the rated note's body, author
	// and status, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.UserRating, error)

	// CountByUser counts the user's live votes.
	CountByUser(ctx context.Context, userID string) (int, error)
}
