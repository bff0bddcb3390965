// Package cli provides the velib-runs command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"velib_runs/internal/config"
)

var (
	cfgFile string
	envFile string
)

type configKey struct{}

type loggerKey struct{}

// NewRootCmd creates the root command. Running it without a subcommand
// performs a scrape.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "velib-runs",
		Short: "Export your Vélib' ride history to CSV",
		Long: `velib-runs logs into velib-metropole.fr with a headless Chrome, walks the
paginated "my runs" history and writes every ride (date, distance in km,
duration in seconds) to a table on stdout and to runs.csv.

Credentials come from VELIB_USERNAME and VELIB_PASSWORD, either in the
environment or in a .env file in the working directory.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, envFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cfg.Verbose)
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd.Context(), getConfig(cmd), getLogger(cmd), cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./velib-runs.yaml)")
	flags.StringVar(&envFile, "env-file", "", "dotenv file with credentials (default: ./.env)")
	flags.String("username", "", "login name (prefer VELIB_USERNAME)")
	flags.StringP("output", "o", "", "CSV file to write (default: runs.csv)")
	flags.String("login-url", "", "login page URL")
	flags.String("listing-url", "", "runs listing URL")
	flags.Bool("headless", true, "run Chrome without a window")
	flags.String("chrome-path", "", "Chrome/Chromium executable")
	flags.String("post-login", "", "listing navigation after login (navigate|reload)")
	flags.Duration("page-load-timeout", 0, "limit for a page navigation")
	flags.Duration("render-timeout", 0, "limit for the listing to finish rendering")
	flags.Duration("poll-interval", 0, "delay between readiness checks")
	flags.Duration("settle-delay", 0, "pause after the reload in reload mode")
	flags.Bool("skip-invalid", false, "log and skip entries that cannot be parsed")
	flags.Bool("write-partial", false, "write the CSV with the runs read so far when the walk fails")
	flags.String("archive", "", "SQLite database keeping a history of scrapes")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.BoolP("verbose", "v", false, "debug logging")

	_ = rootCmd.RegisterFlagCompletionFunc("post-login", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.PostLoginNavigate, config.PostLoginReload}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newTableCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getConfig(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return nil
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	if l, ok := cmd.Context().Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
