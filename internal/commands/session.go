package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/books"
	"github.com/cuadra-dev/cuadra/internal/config"
	"github.com/cuadra-dev/cuadra/internal/gitops"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/storage/csvstore"
	"github.com/cuadra-dev/cuadra/internal/storage/postgres"
)

const dateLayout = "2006-01-02"

// actor is recorded in the activity log for CLI changes.
const actor = "cli"

// session is an open books directory: its config, storage and books.
type session struct {
	dir    string
	cfg    *config.Config
	books  *books.Books
	audit  *auditlog.Recorder
	commit *gitops.Committer
	close  func()
}

// openSession loads cuadra.yaml from the --dir directory, installs the
// configured logger in ctx and opens the books.
func openSession(cmd *cobra.Command) (*session, context.Context, error) {
	dir, err := projectDir(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	ctx := logger.WithLogger(cmd.Context(), log.With("tenant", cfg.Business.Tenant))

	repos, closeRepos, err := openRepositories(ctx, dir, cfg)
	if err != nil {
		return nil, nil, err
	}
	settings, err := books.SettingsFromConfig(cfg)
	if err != nil {
		closeRepos()
		return nil, nil, err
	}
	b, err := books.Open(ctx, model.Tenant(cfg.Business.Tenant), repos, settings)
	if err != nil {
		closeRepos()
		return nil, nil, err
	}

	s := &session{
		dir:   dir,
		cfg:   cfg,
		books: b,
		audit: auditlog.NewRecorder(dir, actor, nil),
		close: func() {
			closeRepos()
			_ = log.Sync()
		},
	}
	if cfg.Git.AutoCommit && gitops.IsRepo(dir) {
		s.commit = &gitops.Committer{Dir: dir, AuthorName: cfg.Git.AuthorName, AuthorEmail: cfg.Git.AuthorEmail}
	}
	return s, ctx, nil
}

// openRepositories builds the storage backend named by the config.
func openRepositories(ctx context.Context, dir string, cfg *config.Config) (books.Repositories, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Storage.DSN)
		if cfg.Storage.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Storage.MaxConns
		}
		if cfg.Storage.MinConns > 0 {
			poolCfg.MinConns = cfg.Storage.MinConns
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return books.Repositories{}, nil, err
		}
		store := postgres.New(postgres.NewTxManager(pool))
		return books.Repositories{Entries: store, Accounts: store, Inventory: store}, pool.Close, nil
	default:
		store := csvstore.New(booksDir(dir, cfg))
		return books.Repositories{Entries: store, Accounts: store, Inventory: store}, func() {}, nil
	}
}

func booksDir(dir string, cfg *config.Config) string {
	if filepath.IsAbs(cfg.Storage.Dir) {
		return cfg.Storage.Dir
	}
	return filepath.Join(dir, cfg.Storage.Dir)
}

// done records a change in the activity log and, when enabled, commits the
// books directory.
func (s *session) done(ctx context.Context, action, subject, details string) error {
	if err := s.audit.Record(action, subject, details); err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}
	if s.commit == nil {
		return nil
	}
	msg := strings.TrimSpace(fmt.Sprintf("%s: %s %s", action, subject, details))
	hash, err := s.commit.Commit(ctx, msg)
	if errors.Is(err, gitops.ErrNothingToCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("committing books: %w", err)
	}
	logger.Debug(ctx, "books committed", "commit", hash, "action", action)
	return nil
}

func projectDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(filepath.Join(abs, config.FileName)); err != nil {
		return "", fmt.Errorf("%s not found in %s (run cuadra init)", config.FileName, abs)
	}
	return abs, nil
}

// parseDate parses a YYYY-MM-DD flag; empty means today.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", v)
	}
	return t, nil
}

// parseOptionalDate parses a YYYY-MM-DD flag; empty means zero.
func parseOptionalDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return parseDate(v)
}

func parseDecimal(name, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}
