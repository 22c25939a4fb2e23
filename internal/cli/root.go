// Package cli implements the formstate command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/config"
	"github.com/goliatone/go-formstate/internal/logging"
	"github.com/goliatone/go-formstate/pkg/renderers/tui"
)

// RootOptions holds global flags and the state built from them before any
// subcommand runs.
type RootOptions struct {
	ConfigPath string
	LogLevel   string

	Config config.Config
	Logger *zap.Logger

	// prompts replaces the terminal driver of the fill command.
	prompts tui.PromptDriver
}

func (o *RootOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// NewRootCommand creates the formstate root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "formstate",
		Short: "Reducer-driven forms with debounced validation and drafts",
		Long: `formstate loads form definitions (YAML, JSON or an OpenAPI request body),
fills them in the terminal, renders them as HTML, validates submitted values,
tracks course progress and serves all of it over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Logger != nil {
				_ = opts.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a formstate YAML config")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error), overrides the config")

	cmd.AddCommand(NewFillCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) init() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.Config = cfg
	o.Logger = logger
	return nil
}
