package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/blogpost/blogpost/internal/config"
	"github.com/blogpost/blogpost/internal/repository"
)

func newMigrateCmd(e *env) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
		Long:  `Apply, roll back or inspect the embedded schema migrations of the configured store`,
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withMigrator(cmd.Context(), func(p *goose.Provider) error {
				results, err := p.Up(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				for _, r := range results {
					e.logger.Info("migration applied",
						slog.Int64("version", r.Source.Version),
						slog.Duration("duration", r.Duration),
					)
				}
				fmt.Fprintf(e.out, "applied %d migration(s)\n", len(results))
				return nil
			})
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long:  `Roll back the most recent migration, or --steps of them`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return e.withMigrator(cmd.Context(), func(p *goose.Provider) error {
				rolled := 0
				for i := 0; i < steps; i++ {
					result, err := p.Down(cmd.Context())
					if errors.Is(err, goose.ErrNoNextVersion) || (err == nil && result == nil) {
						break
					}
					if err != nil {
						return fmt.Errorf("migrate down: %w", err)
					}
					e.logger.Info("migration rolled back", slog.Int64("version", result.Source.Version))
					rolled++
				}
				fmt.Fprintf(e.out, "rolled back %d migration(s)\n", rolled)
				return nil
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withMigrator(cmd.Context(), func(p *goose.Provider) error {
				statuses, err := p.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}

				tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, s := range statuses {
					applied := "-"
					if !s.AppliedAt.IsZero() {
						applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
				}
				return tw.Flush()
			})
		},
	}

	migrateCmd.AddCommand(upCmd, downCmd, statusCmd)
	return migrateCmd
}

// withMigrator opens a goose provider for the configured driver, runs fn
// and releases the connection.
func (e *env) withMigrator(ctx context.Context, fn func(p *goose.Provider) error) error {
	var (
		provider *goose.Provider
		closeFn  func() error
		err      error
	)

	switch e.cfg.StoreDriver {
	case config.DriverPostgres:
		repo, rerr := repository.New(ctx, e.cfg.DatabaseURL)
		if rerr != nil {
			return rerr
		}
		defer repo.Close()
		provider, closeFn, err = repo.Migrator()
	case config.DriverSQLite:
		provider, closeFn, err = repository.NewSQLiteMigrator(ctx, e.cfg.DatabaseURL)
	default:
		return fmt.Errorf("store driver %q has no schema to migrate", e.cfg.StoreDriver)
	}
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(provider)
}
