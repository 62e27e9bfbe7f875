package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/config"
	"github.com/cuadra-dev/cuadra/internal/gitops"
	"github.com/cuadra-dev/cuadra/internal/importer"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/storage/csvstore"
	"github.com/cuadra-dev/cuadra/internal/storage/postgres"
)

type initOptions struct {
	name   string
	nit    string
	tenant string
	driver string
	dsn    string
	noGit  bool
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new set of books",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runInit(cmd, absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.nit, "nit", "", "tax identification number (NIT)")
	cmd.Flags().StringVar(&opts.tenant, "tenant", "default", "tenant name")
	cmd.Flags().StringVar(&opts.driver, "driver", config.DriverCSV, "storage driver: csv or postgres")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "postgres connection string")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not version the books with git")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts initOptions) error {
	ctx := cmd.Context()
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	cfg := config.Default(opts.name, opts.nit)
	cfg.Business.Tenant = opts.tenant
	cfg.Storage.Driver = opts.driver
	cfg.Storage.DSN = opts.dsn
	if opts.driver == config.DriverPostgres {
		cfg.Storage.Dir = ""
	}
	if opts.noGit {
		cfg.Git.AutoCommit = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	for _, d := range []string{filepath.Join(dir, "logs"), importer.ProcessedDir(dir)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	if err := seedChart(ctx, dir, cfg); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(importer.Dir(dir), ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if err := auditlog.NewRecorder(dir, actor, nil).Record(auditlog.ActionInit, cfg.Business.Tenant, opts.name); err != nil {
		return fmt.Errorf("writing activity log: %w", err)
	}

	out := cmd.OutOrStdout()
	if !cfg.Git.AutoCommit {
		fmt.Fprintf(out, "Initialized books for %s at %s\n", opts.name, dir)
		return nil
	}
	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	hash, err := gitops.CommitAll(ctx, dir, "init: "+opts.name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	fmt.Fprintf(out, "Initialized books for %s at %s (%s)\n", opts.name, dir, hash)
	return nil
}

// seedChart writes the default chart of accounts to the configured storage.
func seedChart(ctx context.Context, dir string, cfg *config.Config) error {
	tenant := model.Tenant(cfg.Business.Tenant)
	chart := accounts.DefaultChart()

	if cfg.Storage.Driver == config.DriverPostgres {
		pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Storage.DSN))
		if err != nil {
			return err
		}
		defer pool.Close()
		txm := postgres.NewTxManager(pool)
		if err := postgres.Migrate(ctx, txm); err != nil {
			return err
		}
		return postgres.New(txm).SaveAccounts(ctx, tenant, chart)
	}

	store := csvstore.New(booksDir(dir, cfg))
	if err := store.Init(tenant); err != nil {
		return err
	}
	return store.SaveAccounts(ctx, tenant, chart)
}
