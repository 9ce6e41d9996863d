// Package httpapi is the HTTP boundary of the server: a gin router that
// authenticates bearer tokens, validates requests and maps the common error
// taxonomy onto status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/metrics"
	"github.com/dmitrijs2005/pagenotes/internal/server/models"
	"github.com/dmitrijs2005/pagenotes/internal/server/scoring"
	"github.com/dmitrijs2005/pagenotes/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// RatingService is the part of services.RatingService the router needs.
type RatingService interface {
	SubmitRating(ctx context.Context, actorID, noteID string, h models.Helpfulness) (*services.RatingResult, error)
	DeleteRating(ctx context.Context, actorID, noteID string) (*services.RatingResult, error)
	Recompute(ctx context.Context, noteID string) (*services.CascadeResult, error)
}

// NoteService is the part of services.NoteService the router needs.
type NoteService interface {
	Create(ctx context.Context, authorID, pageKey, body, selectedText string) (*models.Note, error)
	Edit(ctx context.Context, actorID, noteID, body string) (*models.Note, error)
	Versions(ctx context.Context, noteID string) ([]*models.NoteVersion, error)
	Delete(ctx context.Context, actorID, noteID string) error
	ListForPage(ctx context.Context, viewerID, pageKey string) ([]*services.NoteView, error)
	Transparency(ctx context.Context, noteID string) (*models.Note, scoring.TransparencyView, error)
	History(ctx context.Context, noteID string) ([]*models.NoteStatusChange, error)
}

// ModerationService is the part of services.ModerationService the router needs.
type ModerationService interface {
	Report(ctx context.Context, actorID, noteID string, reason models.ReportReason) (*models.Report, error)
	ListReports(ctx context.Context, limit int) ([]*models.Report, error)
	Dismiss(ctx context.Context, noteID string) error
	Remove(ctx context.Context, noteID string) error
}

// UserService is the part of services.UserService the router needs.
type UserService interface {
	SignIn(ctx context.Context, id services.Identity) (*services.SignInResult, error)
	UpdateAccountSignals(ctx context.Context, userID string, followers *int, createdAt *time.Time) (*models.User, error)
	Profile(ctx context.Context, userID string) (*services.Profile, error)
	OwnNotes(ctx context.Context, userID string) ([]*models.Note, error)
	OwnRatings(ctx context.Context, userID string) ([]*models.UserRating, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type Server struct {
	address     string
	metricsPath string
	jwtSecret   []byte
	logger      logging.Logger
	metrics     *metrics.Metrics
	validate    *validator.Validate

	ratings    RatingService
	notes      NoteService
	moderation ModerationService
	users      UserService
}

func NewServer(cfg *config.Config, l logging.Logger, mx *metrics.Metrics,
	rs RatingService, ns NoteService, ms ModerationService, us UserService) *Server {
	return &Server{
		address:     cfg.EndpointAddrHTTP,
		metricsPath: cfg.MetricsPath,
		jwtSecret:   []byte(cfg.SecretKey),
		logger:      l.With("module", "http_server"),
		metrics:     mx,
		validate:    newValidator(),
		ratings:     rs,
		notes:       ns,
		moderation:  ms,
		users:       us,
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe)

	if s.metricsPath != "" {
		r.GET(s.metricsPath, gin.WrapH(s.metrics.Handler()))
	}

	provider := r.Group("/internal", s.requireProviderKey)
	provider.POST("/signin", s.signIn)
	provider.PUT("/users/:id/signals", s.updateSignals)

	api := r.Group("/api")
	api.GET("/notes", s.authenticate(false), s.listNotes)
	api.GET("/notes/:id/versions", s.noteVersions)
	api.GET("/notes/:id/transparency", s.noteTransparency)
	api.GET("/notes/:id/history", s.noteHistory)
	api.GET("/users/:id", s.userProfile)

	authed := api.Group("", s.authenticate(true))
	authed.POST("/notes", s.createNote)
	authed.PATCH("/notes/:id", s.editNote)
	authed.DELETE("/notes/:id", s.deleteNote)
	authed.POST("/notes/:id/ratings", s.submitRating)
	authed.DELETE("/notes/:id/ratings", s.deleteRating)
	authed.POST("/notes/:id/reports", s.reportNote)
	authed.GET("/me", s.me)
	authed.GET("/me/notes", s.myNotes)
	authed.GET("/me/ratings", s.myRatings)

	admin := r.Group("/admin", s.authenticate(true), s.requireAdmin)
	admin.GET("/reports", s.listReports)
	admin.POST("/notes/:id/dismiss", s.dismissReports)
	admin.DELETE("/notes/:id", s.removeNote)
	admin.POST("/notes/:id/recompute", s.recomputeNote)

	return r
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
