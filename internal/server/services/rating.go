// Package services contains server-side business logic. This file implements
// RatingService, the explicit orchestrator of the rating recompute cascade.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/keylock"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/metrics"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
)

// Outcome labels for rating writes.
const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeDeleted = "deleted"
	outcomeNoop    = "noop"
)

// RatingResult is returned by rating writes: the stored vote (nil after a
// delete), the note after the cascade and its transparency view.
type RatingResult struct {
	Rating       *models.Rating
	Created      bool
	Note         *models.Note
	Transparency scoring.TransparencyView
	Transition   *models.NoteStatusChange
}

// RatingService applies rating writes and runs the recompute cascade in the
// same transaction, so a write is never visible without its derived state.
type RatingService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	locks               *keylock.Locker
	logger              logging.Logger
	metrics             *metrics.Metrics
	now                 func() time.Time
	minRatingReputation float64
}

// NewRatingService constructs a RatingService. locks must be shared with
// every other service that writes notes.
func NewRatingService(db *sql.DB, m repomanager.RepositoryManager, locks *keylock.Locker,
	logger logging.Logger, mx *metrics.Metrics, cfg *config.Config) *RatingService {
	return &RatingService{
		db:                  db,
		repomanager:         m,
		locks:               locks,
		logger:              logger.With("module", "ratings"),
		metrics:             mx,
		now:                 time.Now,
		minRatingReputation: cfg.MinRatingReputation,
	}
}

// SubmitRating stores the actor's vote on a note and recomputes everything
// derived from it. Errors: common.ErrorValidation for an unknown value,
// common.ErrorNotFound for an unknown note, common.ErrorForbidden when the
// actor wrote the note, common.ErrorUnauthorized below the reputation gate.
func (s *RatingService) SubmitRating(ctx context.Context, actorID, noteID string, h models.Helpfulness) (*RatingResult, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: unknown helpfulness %d", common.ErrorValidation, h)
	}

	var res *RatingResult
	err := s.withNote(ctx, noteID, models.TriggerRating, func(ctx context.Context, tx dbx.DBTX) (*cascade, error) {
		note, err := s.repomanager.Notes(tx).GetForUpdate(ctx, noteID)
		if err != nil {
			return nil, err
		}
		if note.AuthorID == actorID {
			return nil, fmt.Errorf("%w: cannot rate your own note", common.ErrorForbidden)
		}

		actor, err := s.repomanager.Users(tx).GetByID(ctx, actorID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrorUnauthorized
			}
			return nil, err
		}
		if actor.ReputationScore < s.minRatingReputation {
			return nil, fmt.Errorf("%w: reputation %.2f is below %.2f required to rate",
				common.ErrorUnauthorized, actor.ReputationScore, s.minRatingReputation)
		}

		rating, inserted, err := s.repomanager.Ratings(tx).Upsert(ctx, actorID, noteID, h)
		if err != nil {
			return nil, fmt.Errorf("error storing rating: %w", err)
		}

		c := newCascade(s.repomanager, tx, s.logger, s.now())
		out, err := c.run(ctx, note, models.TriggerRating, false)
		if err != nil {
			return nil, err
		}
		res = &RatingResult{
			Rating:       rating,
			Created:      inserted,
			Note:         out.Note,
			Transparency: scoring.Project(out.Note.Tally),
			Transition:   out.Transition,
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	if res.Created {
		s.metrics.RatingWrite(outcomeCreated)
	} else {
		s.metrics.RatingWrite(outcomeUpdated)
	}
	return res, nil
}

// DeleteRating removes the actor's vote on a note. Removing a vote that does
// not exist is a no-op and skips the cascade.
func (s *RatingService) DeleteRating(ctx context.Context, actorID, noteID string) (*RatingResult, error) {
	var res *RatingResult
	deleted := false
	err := s.withNote(ctx, noteID, models.TriggerRating, func(ctx context.Context, tx dbx.DBTX) (*cascade, error) {
		note, err := s.repomanager.Notes(tx).GetForUpdate(ctx, noteID)
		if err != nil {
			return nil, err
		}

		deleted, err = s.repomanager.Ratings(tx).Delete(ctx, actorID, noteID)
		if err != nil {
			return nil, fmt.Errorf("error deleting rating: %w", err)
		}
		if !deleted {
			res = &RatingResult{Note: note, Transparency: scoring.Project(note.Tally)}
			return nil, nil
		}

		c := newCascade(s.repomanager, tx, s.logger, s.now())
		out, err := c.run(ctx, note, models.TriggerRating, false)
		if err != nil {
			return nil, err
		}
		res = &RatingResult{Note: out.Note, Transparency: scoring.Project(out.Note.Tally), Transition: out.Transition}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	if deleted {
		s.metrics.RatingWrite(outcomeDeleted)
	} else {
		s.metrics.RatingWrite(outcomeNoop)
	}
	return res, nil
}

// Recompute re-derives a note's counts and status and the scores of every
// rater and of the author. Running it twice with no writes in between leaves
// identical state.
func (s *RatingService) Recompute(ctx context.Context, noteID string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.withNote(ctx, noteID, models.TriggerRecompute, func(ctx context.Context, tx dbx.DBTX) (*cascade, error) {
		note, err := s.repomanager.Notes(tx).GetForUpdate(ctx, noteID)
		if err != nil {
			return nil, err
		}
		c := newCascade(s.repomanager, tx, s.logger, s.now())
		res, err = c.run(ctx, note, models.TriggerRecompute, true)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// withNote serializes fn with every other writer of the note, runs it in one
// transaction and records cascade metrics once the outcome is known. fn
// returns the cascade it ran, or nil when it had nothing to recompute.
func (s *RatingService) withNote(ctx context.Context, noteID, trigger string,
	fn func(ctx context.Context, tx dbx.DBTX) (*cascade, error)) error {

	unlock, err := s.locks.Lock(ctx, noteID)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	var ran *cascade
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := fn(ctx, tx)
		ran = c
		return err
	})
	if err != nil {
		s.metrics.ObserveCascade(trigger, time.Since(start), err)
		if !isClientError(err) {
			s.logger.Error(ctx, "cascade rolled back", "note_id", noteID, "trigger", trigger, "error", err)
		}
		return err
	}
	if ran != nil {
		s.metrics.ObserveCascade(trigger, time.Since(start), nil)
		s.metrics.UsersRecomputed(ran.recomputed)
		if t := ran.transition; t != nil {
			s.metrics.StatusTransition(t.FromStatus.String(), t.ToStatus.String())
		}
	}
	return nil
}

// isClientError reports errors caused by the request rather than the system.
func isClientError(err error) bool {
	for _, target := range []error{
		common.ErrorNotFound, common.ErrorValidation, common.ErrorForbidden,
		common.ErrorUnauthorized, common.ErrorDuplicate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
