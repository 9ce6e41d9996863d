package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/common"
	"github.com/dmitrijs2005/pagenotes/internal/dbx"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/auth"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
	"github.com/google/uuid"
)

// Identity is what the identity provider tells us about a user at sign-in.
type Identity struct {
	ExternalID       string
	Handle           string
	DisplayName      string
	FollowerCount    *int
	AccountCreatedAt *time.Time
}

// SignInResult carries the stored user and a fresh access token.
type SignInResult struct {
	User        *models.User
	AccessToken string
}

// Profile is the public view of a user's scores. Reputation.Total is the
// stored score that gates rating and writing; the bonus components are
// evaluated at read time and may have drifted from it since the last refresh.
type Profile struct {
	User         *models.User
	CanRate      bool
	CanWrite     bool
	Stats        *models.NoteStats
	RatingsCount int
	Reputation   scoring.Breakdown
}

// UserService handles sign-in, account signal updates and profiles.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	logger                      logging.Logger
	now                         func() time.Time
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	minRatingReputation         float64
	minWritingReputation        float64
	hideThreshold               int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		logger:                      logger.With("module", "users"),
		now:                         time.Now,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		minRatingReputation:         cfg.MinRatingReputation,
		minWritingReputation:        cfg.MinWritingReputation,
		hideThreshold:               cfg.ReportHideThreshold,
	}
}

// SignIn creates the user on first sight or refreshes its identity fields,
// recomputes its reputation from the new signals and issues an access token.
func (s *UserService) SignIn(ctx context.Context, id Identity) (*SignInResult, error) {
	id.ExternalID = strings.TrimSpace(id.ExternalID)
	id.Handle = strings.TrimSpace(id.Handle)
	if id.ExternalID == "" || id.Handle == "" {
		return nil, fmt.Errorf("%w: external id and handle are required", common.ErrorValidation)
	}
	if id.FollowerCount != nil && *id.FollowerCount < 0 {
		return nil, fmt.Errorf("%w: follower count cannot be negative", common.ErrorValidation)
	}

	user, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		stored, err := s.repomanager.Users(tx).UpsertByExternalID(ctx, &models.User{
			ID:               uuid.NewString(),
			ExternalID:       id.ExternalID,
			Handle:           id.Handle,
			DisplayName:      id.DisplayName,
			FollowerCount:    id.FollowerCount,
			AccountCreatedAt: id.AccountCreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("error storing user: %w", err)
		}
		return s.refreshReputation(ctx, tx, stored.ID)
	})
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	s.logger.Info(ctx, "user signed in", "user_id", user.ID, "reputation", user.ReputationScore)
	return &SignInResult{User: user, AccessToken: token}, nil
}

// UpdateAccountSignals stores new follower count and account age and
// recomputes reputation.
func (s *UserService) UpdateAccountSignals(ctx context.Context, userID string, followers *int, createdAt *time.Time) (*models.User, error) {
	if followers != nil && *followers < 0 {
		return nil, fmt.Errorf("%w: follower count cannot be negative", common.ErrorValidation)
	}
	return dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		if err := s.repomanager.Users(tx).UpdateAccountSignals(ctx, userID, followers, createdAt); err != nil {
			return nil, err
		}
		return s.refreshReputation(ctx, tx, userID)
	})
}

// refreshReputation locks the user and rewrites its reputation inside tx.
func (s *UserService) refreshReputation(ctx context.Context, tx dbx.DBTX, userID string) (*models.User, error) {
	c := newCascade(s.repomanager, tx, s.logger, s.now())
	u, err := c.users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	decided, err := c.ratings.DecidedRatings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading decided ratings: %w", err)
	}
	if err := c.recomputeReputation(ctx, u, decided); err != nil {
		return nil, err
	}
	return u, nil
}

// Profile returns a user's scores, permissions and note counts.
func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.repomanager.Notes(s.db).StatsByAuthor(ctx, userID, s.hideThreshold)
	if err != nil {
		return nil, fmt.Errorf("error loading note stats: %w", err)
	}
	rated, err := s.repomanager.Ratings(s.db).CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error counting ratings: %w", err)
	}
	decided, err := s.repomanager.Ratings(s.db).DecidedRatings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading decided ratings: %w", err)
	}

	breakdown := scoring.Reputation(u, decided, s.now())
	breakdown.Total = u.ReputationScore

	return &Profile{
		User:         u,
		CanRate:      u.CanRate(s.minRatingReputation),
		CanWrite:     u.CanWrite(s.minWritingReputation),
		Stats:        stats,
		RatingsCount: rated,
		Reputation:   breakdown,
	}, nil
}

// OwnNotes lists every note the user wrote, newest first. Notes hidden by
// reports are included with their status.
func (s *UserService) OwnNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Notes(s.db).ListByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	return list, nil
}

// OwnRatings lists the user's ratings with the rated note's body and
// author, newest first.
func (s *UserService) OwnRatings(ctx context.Context, userID string) ([]*models.UserRating, error) {
	if _, err := s.repomanager.Users(s.db).GetByID(ctx, userID); err != nil {
		return nil, err
	}
	list, err := s.repomanager.Ratings(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing ratings: %w", err)
	}
	return list, nil
}

// IsAdmin reports whether the user may use moderation endpoints.
func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.Role.IsAdmin(), nil
}
