package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cchalm/smart-coach/internal/config"
	"github.com/cchalm/smart-coach/internal/tui"
)

var (
	cfg     config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "smart-coach",
	Short: "Chat with an AI coach for network marketing",
	Long: `Smart Coach is a terminal chat with a generative AI coach that guides you through
building a network marketing business. Register once with your name and mobile
number, then ask your coach anything.`,
	PersistentPreRunE: loadRootConfig,
	RunE:              runChat,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

var logger = zap.NewNop()

func loadRootConfig(_ *cobra.Command, _ []string) error {
	// A missing .env file is fine; the environment may carry everything
	envErr := godotenv.Load()

	// The log file location is itself configuration, so load once to find it and again to report bad values
	cfg = config.Load(nil, nil)
	if verbose {
		cfg.Debug = true
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	logger = l
	if envErr != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	cfg = config.Load(nil, logger.Named("config"))
	if verbose {
		cfg.Debug = true
	}
	return cfg.Validate()
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := setupContext()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.session.Start(ctx); err != nil {
		// The session shows initialization failures as a configuration error
		d.logger.Warn("session started with an error", zap.Error(err))
	}

	model := tui.New(ctx, d.session, tui.Options{
		CredentialEnvVar: cfg.CredentialEnvVar(),
		TranscriptDir:    filepath.Join(cfg.DataDir, "transcripts"),
		Logger:           d.logger.Named("tui"),
	})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run chat: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs to the log file")
}
