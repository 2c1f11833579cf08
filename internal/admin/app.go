// Package admin implements the operator commands of medibook-admin:
// applying migrations, creating admin accounts and purging expired
// sessions.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/server"
	"github.com/dmitrijs2005/medibook/internal/server/config"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medibook/internal/server/services"
)

var ErrUsage = errors.New("usage: medibook-admin [config flags] migrate | create-admin [-email E] | purge-sessions")

type App struct {
	config *config.Config
	logger logging.Logger
	in     *bufio.Reader
	out    io.Writer

	openRepositories func(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error)
}

func NewApp(c *config.Config, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		config:           c,
		logger:           l.With("module", "admin"),
		in:               bufio.NewReader(in),
		out:              out,
		openRepositories: server.OpenRepositories,
	}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "migrate":
		return a.Migrate(ctx)
	case "create-admin":
		return a.CreateAdmin(ctx, args[1:])
	case "purge-sessions":
		return a.PurgeSessions(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, ErrUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

// withRepositories opens storage for the duration of fn. Opening PostgreSQL
// applies pending migrations.
func (a *App) withRepositories(ctx context.Context, fn func(repomanager.RepositoryManager) error) error {
	repos, err := a.openRepositories(ctx, a.config)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			a.logger.Error(ctx, "storage close failed", "error", err)
		}
	}()
	return fn(repos)
}

func (a *App) Migrate(ctx context.Context) error {
	return a.withRepositories(ctx, func(repomanager.RepositoryManager) error {
		fmt.Fprintln(a.out, "Migrations applied")
		return nil
	})
}

func (a *App) CreateAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "admin e-mail address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		v, err := GetSimpleText(a.in, "Admin e-mail", a.out)
		if err != nil {
			return err
		}
		*email = v
	}

	password, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}

	return a.withRepositories(ctx, func(repos repomanager.RepositoryManager) error {
		sm := server.NewSessionManager(repos, a.config, a.logger)
		dispatcher := mail.NewDispatcher(mail.NewLogMailer(a.logger), a.logger)
		defer dispatcher.Wait()

		svc := services.NewAuthService(repos, sm, dispatcher, a.config, a.logger)
		admin, err := svc.CreateAdmin(ctx, *email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Admin %s created (id=%s)\n", admin.Email, admin.ID)
		return nil
	})
}

func (a *App) PurgeSessions(ctx context.Context) error {
	return a.withRepositories(ctx, func(repos repomanager.RepositoryManager) error {
		n, err := server.NewSessionManager(repos, a.config, a.logger).PurgeExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Purged %d expired sessions\n", n)
		return nil
	})
}
