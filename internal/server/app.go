// Package server initializes and runs the pagenotes server: it opens the
// database, applies migrations, wires the services and serves HTTP until a
// termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/pagenotes/internal/keylock"
	"github.com/dmitrijs2005/pagenotes/internal/logging"
	"github.com/dmitrijs2005/pagenotes/internal/server/config"
	"github.com/dmitrijs2005/pagenotes/internal/server/httpapi"
	"github.com/dmitrijs2005/pagenotes/internal/server/metrics"
	"github.com/dmitrijs2005/pagenotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pagenotes/internal/server/services"
	"github.com/gin-gonic/gin"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(c.LogBackend, c.LogLevel, os.Stdout)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	// Every writer of a note shares one lock table.
	locks := keylock.New()
	mx := metrics.New()

	rs := services.NewRatingService(db, rm, locks, logger, mx, c)
	ns := services.NewNoteService(db, rm, locks, logger, c)
	ms := services.NewModerationService(db, rm, ns, logger)
	us := services.NewUserService(db, rm, logger, c)

	if c.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	hs := httpapi.NewServer(c, logger, mx, rs, ns, ms, us)

	return &App{config: c, logger: logger, db: db, http: hs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
