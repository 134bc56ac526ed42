// Package cmd provides the CLI commands for webqa.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"webqa/internal/config"
	apperrors "webqa/internal/errors"
	"webqa/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string

	cfg     *config.AppConfig
	logger  *slog.Logger
	cleanup func()
}

// NewRootCmd creates the root command for the webqa CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "webqa",
		Short: "Ask questions about web pages indexed in Zilliz Cloud",
		Long: `webqa loads a list of web pages, stores their embeddings in Zilliz Cloud
(or Milvus) and answers questions about them with an OpenAI model.

Run 'webqa serve' for the HTTP API or 'webqa tui' for the terminal form.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr(), cmd.Name() == "tui")
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.cleanup != nil {
				opts.cleanup()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (default ./webqa.yaml, then ~/.config/webqa/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newTUICmd(opts))
	cmd.AddCommand(newAskCmd(opts))

	return cmd
}

// setup loads configuration and logging. The TUI owns the terminal, so its
// console logs are dropped and only the log file receives records.
func (o *rootOptions) setup(stderr io.Writer, quietConsole bool) error {
	var err error
	if o.configPath != "" {
		o.cfg, err = config.Load(o.configPath)
	} else {
		o.cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeConfigInvalid, "failed to load config", err)
	}
	if o.logLevel != "" {
		o.cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		o.cfg.Log.File = o.logFile
	}

	if quietConsole {
		stderr = io.Discard
	}
	logger, cleanup, err := logging.Setup(logging.Config{
		Level:     o.cfg.Log.Level,
		FilePath:  o.cfg.Log.File,
		MaxSizeMB: o.cfg.Log.MaxSizeMB,
		MaxFiles:  o.cfg.Log.MaxFiles,
		Stderr:    stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.logger = logger
	o.cleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
