// Package server wires the medibook auth server together: storage, mail,
// rate limiting, sessions and the HTTP API, and runs it until a signal
// arrives.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/ratelimit"
	"github.com/dmitrijs2005/medibook/internal/server/config"
	"github.com/dmitrijs2005/medibook/internal/server/httpapi"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medibook/internal/server/services"
	"github.com/dmitrijs2005/medibook/internal/server/sessions"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      repomanager.RepositoryManager
	sessions   *sessions.Manager
	dispatcher *mail.Dispatcher
	limiter    ratelimit.Limiter
	redis      *redis.Client
	server     *httpapi.Server
}

// OpenRepositories returns the storage selected by c.Storage. PostgreSQL
// is migrated before it is returned.
func OpenRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.Storage == config.StorageMemory {
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	rm := repomanager.NewPostgresRepositoryManager(db)
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return rm, nil
}

// NewSessionManager builds the session manager from c.
func NewSessionManager(repos repomanager.RepositoryManager, c *config.Config, l logging.Logger) *sessions.Manager {
	return sessions.NewManager(repos, []byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, l)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.Environment, os.Stdout)

	repos, err := OpenRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, repos: repos}

	if err := app.initLimiter(ctx); err != nil {
		_ = repos.Close()
		return nil, err
	}

	var mailer mail.Mailer = mail.NewLogMailer(logger)
	if c.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
		})
	}
	app.dispatcher = mail.NewDispatcher(mailer, logger)

	app.sessions = NewSessionManager(repos, c, logger)
	svc := services.NewAuthService(repos, app.sessions, app.dispatcher, c, logger)

	handler := httpapi.NewRouter(svc, app.limiter, c, logger)
	app.server = httpapi.NewServer(c.HTTPAddr, handler, logger)

	return app, nil
}

func (app *App) initLimiter(ctx context.Context) error {
	if app.config.RedisAddr == "" {
		app.limiter = ratelimit.NewMemoryLimiter()
		return nil
	}

	app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	rl := ratelimit.NewRedisLimiter(app.redis)
	if err := rl.Ping(ctx); err != nil {
		_ = app.redis.Close()
		return fmt.Errorf("redis init error: %w", err)
	}
	app.limiter = rl
	return nil
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
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// waits for pending mail and releases storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sessions.RunPurger(ctx, app.config.SessionPurgeInterval)
	}()

	wg.Wait()

	app.dispatcher.Wait()
	app.close(ctx)
	app.logger.Info(ctx, "App stopped")
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "storage close failed", "error", err)
	}
}
