package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/ratings"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/statuschanges"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/users"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
)

// cascade is one run of the recompute pipeline inside a single transaction:
//
//	recomputeCounts -> evaluateStatus -> [recomputeReputation, recomputeRatingImpact] per rater -> recomputeKarma(author)
//
// The caller must already hold the note row lock. User rows are locked in
// ascending id order before any of them is rewritten, so two cascades on
// different notes cannot wait on each other in a cycle.
type cascade struct {
	users   users.Repository
	notes   notes.Repository
	ratings ratings.Repository
	changes statuschanges.Repository

	logger logging.Logger
	now    time.Time

	// users recomputed in this run
	recomputed int
	transition *models.NoteStatusChange
}

func newCascade(m repomanager.RepositoryManager, tx dbx.DBTX, logger logging.Logger, now time.Time) *cascade {
	return &cascade{
		users:   m.Users(tx),
		notes:   m.Notes(tx),
		ratings: m.Ratings(tx),
		changes: m.StatusChanges(tx),
		logger:  logger,
		now:     now,
	}
}

// CascadeResult is the state of a note after a cascade.
type CascadeResult struct {
	Note *models.Note
	// Transition is set when this run changed the note's status.
	Transition *models.NoteStatusChange
}

// run executes the whole pipeline for a note. With refreshAll set every
// rater is recomputed even without a transition; that is what an explicit
// recompute asks for.
func (c *cascade) run(ctx context.Context, note *models.Note, trigger string, refreshAll bool) (*CascadeResult, error) {
	if err := c.recomputeCounts(ctx, note); err != nil {
		return nil, err
	}

	change, err := c.evaluateStatus(ctx, note, trigger)
	if err != nil {
		return nil, err
	}

	var raters []string
	if change != nil || refreshAll {
		raters, err = c.ratings.RaterIDs(ctx, note.ID)
		if err != nil {
			return nil, fmt.Errorf("error listing raters: %w", err)
		}
	}

	if err := c.recomputeUsers(ctx, raters, note.AuthorID); err != nil {
		return nil, err
	}

	return &CascadeResult{Note: note, Transition: change}, nil
}

// recomputeCounts recounts the ledger for the note and stores all three
// counters in one statement.
func (c *cascade) recomputeCounts(ctx context.Context, note *models.Note) error {
	tally, err := c.ratings.CountByNote(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("error counting ratings: %w", err)
	}
	if err := c.notes.UpdateCounts(ctx, note.ID, tally); err != nil {
		return fmt.Errorf("error updating counts: %w", err)
	}
	note.Tally = tally
	c.logger.Debug(ctx, "counts recomputed", "note_id", note.ID,
		"helpful", tally.Helpful, "somewhat", tally.Somewhat, "not_helpful", tally.NotHelpful)
	return nil
}

// evaluateStatus applies the transition rule to the fresh tally. On a
// change it persists the new status and appends exactly one log row.
func (c *cascade) evaluateStatus(ctx context.Context, note *models.Note, trigger string) (*models.NoteStatusChange, error) {
	next := scoring.NextStatus(note.Status, note.Tally)
	if next == note.Status {
		return nil, nil
	}

	if err := c.notes.UpdateStatus(ctx, note.ID, next); err != nil {
		return nil, fmt.Errorf("error updating status: %w", err)
	}
	change, err := c.changes.Append(ctx, &models.NoteStatusChange{
		NoteID:     note.ID,
		FromStatus: note.Status,
		ToStatus:   next,
		Tally:      note.Tally,
		Trigger:    trigger,
	})
	if err != nil {
		return nil, fmt.Errorf("error logging status change: %w", err)
	}

	c.logger.Info(ctx, "note status changed", "note_id", note.ID,
		"from", note.Status.String(), "to", next.String(), "trigger", trigger)
	note.Status = next
	c.transition = change
	return change, nil
}

// recomputeUsers locks the raters and the author in id order, then rewrites
// reputation and rating impact of each rater and the karma of the author.
// An empty authorID skips karma.
func (c *cascade) recomputeUsers(ctx context.Context, raterIDs []string, authorID string) error {
	locked, err := c.lockUsers(ctx, raterIDs, authorID)
	if err != nil {
		return err
	}

	for _, id := range raterIDs {
		u := locked[id]
		decided, err := c.ratings.DecidedRatings(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("error loading decided ratings: %w", err)
		}
		if err := c.recomputeReputation(ctx, u, decided); err != nil {
			return err
		}
		if err := c.recomputeRatingImpact(ctx, u, decided); err != nil {
			return err
		}
		c.recomputed++
	}

	if authorID != "" {
		if err := c.recomputeKarma(ctx, locked[authorID]); err != nil {
			return err
		}
	}
	return nil
}

func (c *cascade) lockUsers(ctx context.Context, raterIDs []string, authorID string) (map[string]*models.User, error) {
	seen := make(map[string]struct{}, len(raterIDs)+1)
	for _, id := range raterIDs {
		seen[id] = struct{}{}
	}
	if authorID != "" {
		seen[authorID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	locked := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		u, err := c.users.GetForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error locking user %s: %w", id, err)
		}
		locked[id] = u
	}
	return locked, nil
}

func (c *cascade) recomputeReputation(ctx context.Context, u *models.User, decided []models.DecidedRating) error {
	b := scoring.Reputation(u, decided, c.now)
	if err := c.users.UpdateReputation(ctx, u.ID, b.Total); err != nil {
		return fmt.Errorf("error updating reputation: %w", err)
	}
	u.ReputationScore = b.Total
	c.logger.Debug(ctx, "reputation recomputed", "user_id", u.ID,
		"age", b.Age, "follower", b.Follower, "accuracy", b.Accuracy, "total", b.Total)
	return nil
}

func (c *cascade) recomputeRatingImpact(ctx context.Context, u *models.User, decided []models.DecidedRating) error {
	impact := scoring.RatingImpact(decided)
	if err := c.users.UpdateRatingImpact(ctx, u.ID, impact); err != nil {
		return fmt.Errorf("error updating rating impact: %w", err)
	}
	u.RatingImpact = impact
	c.logger.Debug(ctx, "rating impact recomputed", "user_id", u.ID, "impact", impact)
	return nil
}

func (c *cascade) recomputeKarma(ctx context.Context, u *models.User) error {
	tallies, err := c.notes.TalliesByAuthor(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("error loading author tallies: %w", err)
	}
	karma := scoring.Karma(tallies)
	if err := c.users.UpdateKarma(ctx, u.ID, karma); err != nil {
		return fmt.Errorf("error updating karma: %w", err)
	}
	u.Karma = karma
	c.logger.Debug(ctx, "karma recomputed", "user_id", u.ID, "karma", karma)
	return nil
}
