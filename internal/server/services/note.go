package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/keylock"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
	"github.com/google/uuid"
)

// NoteView is a note as shown on a page, with its transparency view and the
// viewer's own vote if any.
type NoteView struct {
	Note         *models.Note
	Transparency scoring.TransparencyView
	ViewerRating *models.Helpfulness
	EditClosesAt time.Time
}

// NoteService covers the note lifecycle: create, edit within the edit
// window, delete, and the public read surfaces.
type NoteService struct {
	db                   *sql.DB
	repomanager          repomanager.RepositoryManager
	locks                *keylock.Locker
	logger               logging.Logger
	now                  func() time.Time
	minWritingReputation float64
	editWindow           time.Duration
	hideThreshold        int
}

// NewNoteService constructs a NoteService sharing locks with RatingService.
func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, locks *keylock.Locker,
	logger logging.Logger, cfg *config.Config) *NoteService {
	return &NoteService{
		db:                   db,
		repomanager:          m,
		locks:                locks,
		logger:               logger.With("module", "notes"),
		now:                  time.Now,
		minWritingReputation: cfg.MinWritingReputation,
		editWindow:           cfg.EditWindow,
		hideThreshold:        cfg.ReportHideThreshold,
	}
}

// Create stores a new pending note. The author needs the writing reputation.
func (s *NoteService) Create(ctx context.Context, authorID, pageKey, body, selectedText string) (*models.Note, error) {
	pageKey, body = strings.TrimSpace(pageKey), strings.TrimSpace(body)
	if pageKey == "" || body == "" || strings.TrimSpace(selectedText) == "" {
		return nil, fmt.Errorf("%w: page, body and selected text are required", common.ErrorValidation)
	}

	author, err := s.repomanager.Users(s.db).GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !author.CanWrite(s.minWritingReputation) {
		return nil, fmt.Errorf("%w: a reputation of at least %.0f is needed to write notes",
			common.ErrorForbidden, s.minWritingReputation)
	}

	note, err := s.repomanager.Notes(s.db).Create(ctx, &models.Note{
		ID:           uuid.NewString(),
		AuthorID:     authorID,
		PageKey:      pageKey,
		Body:         body,
		SelectedText: selectedText,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating note: %w", err)
	}
	s.logger.Info(ctx, "note created", "note_id", note.ID, "author_id", authorID)
	return note, nil
}

// Edit replaces the body, keeping the previous one as a version. Only the
// author may edit, and only within the edit window.
func (s *NoteService) Edit(ctx context.Context, actorID, noteID, body string) (*models.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", common.ErrorValidation)
	}

	unlock, err := s.locks.Lock(ctx, noteID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Note, error) {
		repo := s.repomanager.Notes(tx)
		note, err := repo.GetForUpdate(ctx, noteID)
		if err != nil {
			return nil, err
		}
		if note.AuthorID != actorID {
			return nil, fmt.Errorf("%w: you can only modify your own notes", common.ErrorForbidden)
		}
		now := s.now()
		if now.After(note.CreatedAt.Add(s.editWindow)) {
			return nil, common.ErrorEditWindowClosed
		}

		if err := repo.AddVersion(ctx, noteID, note.Body); err != nil {
			return nil, err
		}
		if err := repo.UpdateBody(ctx, noteID, body, now); err != nil {
			return nil, err
		}
		note.Body = body
		note.EditedAt = &now
		return note, nil
	})
}

// Versions lists previous bodies of a note, newest first.
func (s *NoteService) Versions(ctx context.Context, noteID string) ([]*models.NoteVersion, error) {
	repo := s.repomanager.Notes(s.db)
	if _, err := repo.GetByID(ctx, noteID); err != nil {
		return nil, err
	}
	return repo.ListVersions(ctx, noteID)
}

// Delete removes a note written by the actor.
func (s *NoteService) Delete(ctx context.Context, actorID, noteID string) error {
	return s.remove(ctx, noteID, func(note *models.Note) error {
		if note.AuthorID != actorID {
			return fmt.Errorf("%w: you can only modify your own notes", common.ErrorForbidden)
		}
		return nil
	})
}

// remove deletes a note and, in the same transaction, recomputes everyone
// whose scores referenced it: former raters when the note was decided, and
// always the author's karma. check may veto the removal.
func (s *NoteService) remove(ctx context.Context, noteID string, check func(*models.Note) error) error {
	unlock, err := s.locks.Lock(ctx, noteID)
	if err != nil {
		return err
	}
	defer unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		notesRepo := s.repomanager.Notes(tx)
		note, err := notesRepo.GetForUpdate(ctx, noteID)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(note); err != nil {
				return err
			}
		}

		var raters []string
		if note.Status.Decided() {
			raters, err = s.repomanager.Ratings(tx).RaterIDs(ctx, noteID)
			if err != nil {
				return fmt.Errorf("error listing raters: %w", err)
			}
		}

		if err := notesRepo.Delete(ctx, noteID); err != nil {
			return fmt.Errorf("error deleting note: %w", err)
		}

		c := newCascade(s.repomanager, tx, s.logger, s.now())
		if err := c.recomputeUsers(ctx, raters, note.AuthorID); err != nil {
			return err
		}
		s.logger.Info(ctx, "note deleted", "note_id", noteID, "raters_recomputed", len(raters))
		return nil
	})
}

// ListForPage returns the visible notes of a page, newest first. viewerID
// may be empty for anonymous readers.
func (s *NoteService) ListForPage(ctx context.Context, viewerID, pageKey string) ([]*NoteView, error) {
	pageKey = strings.TrimSpace(pageKey)
	if pageKey == "" {
		return nil, fmt.Errorf("%w: url parameter required", common.ErrorValidation)
	}

	list, err := s.repomanager.Notes(s.db).ListByPage(ctx, pageKey, s.hideThreshold)
	if err != nil {
		return nil, err
	}

	var mine map[string]models.Helpfulness
	if viewerID != "" {
		mine, err = s.repomanager.Ratings(s.db).ByUserOnPage(ctx, viewerID, pageKey)
		if err != nil {
			return nil, err
		}
	}

	views := make([]*NoteView, 0, len(list))
	for _, n := range list {
		v := &NoteView{
			Note:         n,
			Transparency: scoring.Project(n.Tally),
			EditClosesAt: n.CreatedAt.Add(s.editWindow),
		}
		if h, ok := mine[n.ID]; ok {
			v.ViewerRating = &h
		}
		views = append(views, v)
	}
	return views, nil
}

// Transparency projects a visible note's counts.
func (s *NoteService) Transparency(ctx context.Context, noteID string) (*models.Note, scoring.TransparencyView, error) {
	note, err := s.visible(ctx, noteID)
	if err != nil {
		return nil, scoring.TransparencyView{}, err
	}
	return note, scoring.Project(note.Tally), nil
}

// History returns the status transitions of a visible note, oldest first.
func (s *NoteService) History(ctx context.Context, noteID string) ([]*models.NoteStatusChange, error) {
	if _, err := s.visible(ctx, noteID); err != nil {
		return nil, err
	}
	return s.repomanager.StatusChanges(s.db).ListByNote(ctx, noteID)
}

// visible loads a note, treating hidden notes as missing.
func (s *NoteService) visible(ctx context.Context, noteID string) (*models.Note, error) {
	note, err := s.repomanager.Notes(s.db).GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.ReportsCount >= s.hideThreshold {
		return nil, common.ErrorNotFound
	}
	return note, nil
}
