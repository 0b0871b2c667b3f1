package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/electr1fy0/scribe/config"
	"github.com/electr1fy0/scribe/logging"
	"github.com/electr1fy0/scribe/model"
	"github.com/electr1fy0/scribe/storage"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "A terminal note editor that saves as you type",
	Long: `scribe keeps a list of notes and an editor for the selected one.
Edits are saved automatically once typing pauses, to a local file, SQLite,
Postgres, or a shared scribe server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(".env"); err != nil {
			return err
		}
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if verbose {
			c.LogLevel = "debug"
		}
		cfg = c
		return nil
	},
	RunE: runTUI,
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/scribe/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// consoleLogger is used by the headless commands; the TUI logs to a file.
func consoleLogger() zerolog.Logger {
	return logging.Console(os.Stderr, cfg.LogLevel)
}

func runTUI(cmd *cobra.Command, args []string) error {
	log, closer, err := logging.File(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	log.Info().Str("backend", cfg.Backend).Msg("starting")

	opts := model.Options{
		Quiescence:     cfg.Quiescence,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	}
	if wd, err := os.Getwd(); err == nil {
		opts.ExportDir = wd
	}

	var repo storage.Repository
	if needsPassphrase(cfg) {
		opts.Unlock = func(ctx context.Context, pass string) (storage.Repository, error) {
			r, err := openFileStore(ctx, cfg, pass)
			if err != nil {
				return nil, err
			}
			repo = r
			return r, nil
		}
	} else {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
		repo, err = openRepository(ctx, cfg, "", log)
		cancel()
		if err != nil {
			return err
		}
		opts.Repo = repo
	}

	p := tea.NewProgram(model.New(opts), tea.WithAltScreen())
	_, runErr := p.Run()

	if c, ok := repo.(storage.Closer); ok {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close repository")
		}
	}
	if runErr != nil {
		log.Error().Err(runErr).Msg("tui exited")
		return runErr
	}
	log.Info().Msg("bye")
	return nil
}
