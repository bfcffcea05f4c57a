// Package cli implements the blogctl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/blogpost/blogpost/internal/config"
	"github.com/blogpost/blogpost/internal/handler"
)

// env is the state shared by all subcommands, set up by the root
// command before any of them run.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// NewRootCmd builds the blogctl command tree. Command output goes to out;
// logs go to stderr.
func NewRootCmd(out io.Writer) *cobra.Command {
	e := &env{out: out}

	rootCmd := &cobra.Command{
		Use:               "blogctl",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Blog post API operator CLI",
		Long:              `Manage the blog post store: run schema migrations, seed fake posts and inspect post events`,
		Version:           handler.Version,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal outside local development
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			e.cfg = cfg

			level := slog.LevelInfo
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			e.logger = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{Level: level}))
			return nil
		},
	}

	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newMigrateCmd(e))
	rootCmd.AddCommand(newSeedCmd(e))
	rootCmd.AddCommand(newEventsCmd(e))

	return rootCmd
}

// Execute runs blogctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
