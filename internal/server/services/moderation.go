package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ModerationService handles user reports and the admin overrides. None of
// its operations feeds the scoring rules.
type ModerationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notes       *NoteService
	logger      logging.Logger
}

// NewModerationService constructs a ModerationService. Removal goes through
// notes so that it follows the regular deletion path.
func NewModerationService(db *sql.DB, m repomanager.RepositoryManager, notes *NoteService, logger logging.Logger) *ModerationService {
	return &ModerationService{
		db:          db,
		repomanager: m,
		notes:       notes,
		logger:      logger.With("module", "moderation"),
	}
}

// Report records one report per user and note and bumps the note's
// reports count. A repeated report yields common.ErrorDuplicate.
func (s *ModerationService) Report(ctx context.Context, actorID, noteID string, reason models.ReportReason) (*models.Report, error) {
	if reason < models.ReasonSpam || reason > models.ReasonOther {
		return nil, fmt.Errorf("%w: unknown report reason", common.ErrorValidation)
	}

	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Report, error) {
		if _, err := s.repomanager.Notes(tx).GetByID(ctx, noteID); err != nil {
			return nil, err
		}
		report, err := s.repomanager.Reports(tx).Create(ctx, &models.Report{
			ID:     uuid.NewString(),
			UserID: actorID,
			NoteID: noteID,
			Reason: reason,
		})
		if err != nil {
			return nil, err
		}
		count, err := s.repomanager.Notes(tx).IncrementReports(ctx, noteID)
		if err != nil {
			return nil, err
		}
		s.logger.Info(ctx, "note reported", "note_id", noteID, "reason", reason.String(), "reports_count", count)
		return report, nil
	})
}

// ListReports returns the most recent reports for review.
func (s *ModerationService) ListReports(ctx context.Context, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repomanager.Reports(s.db).ListRecent(ctx, limit)
}

// Dismiss clears a note's reports count. Scores are not touched.
func (s *ModerationService) Dismiss(ctx context.Context, noteID string) error {
	if err := s.repomanager.Notes(s.db).ResetReports(ctx, noteID); err != nil {
		return err
	}
	s.logger.Info(ctx, "reports dismissed", "note_id", noteID)
	return nil
}

// Remove deletes a note regardless of its author.
func (s *ModerationService) Remove(ctx context.Context, noteID string) error {
	return s.notes.remove(ctx, noteID, nil)
}
