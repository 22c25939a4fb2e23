package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/html"
)

type renderOptions struct {
	source   sourceFlags
	renderer string
	output   string
	action   string
	method   string
	submit   string
	watch    bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <definition>",
		Short: "Render a form definition",
		Long: `Render a form definition with a non-interactive renderer (html by default).
With --watch the definition file is watched and the output is rewritten each
time it changes, until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, rootOpts, opts, args[0])
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.renderer, "renderer", "r", "html", "renderer to use")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.action, "action", "", "form action URL")
	cmd.Flags().StringVar(&opts.method, "method", "post", "form method")
	cmd.Flags().StringVar(&opts.submit, "submit-label", "", "submit button text")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-render whenever the definition file changes")

	return cmd
}

func runRender(cmd *cobra.Command, rootOpts *RootOptions, opts *renderOptions, raw string) error {
	ctx := cmd.Context()
	logger := rootOpts.logger()

	htmlRenderer, err := html.New(html.WithSubmitLabel(opts.submit))
	if err != nil {
		return err
	}
	registry, err := render.NewRegistry(htmlRenderer)
	if err != nil {
		return err
	}
	renderer, err := registry.Get(opts.renderer)
	if err != nil {
		return err
	}

	def, err := loadDefinition(ctx, raw, opts.source)
	if err != nil {
		return err
	}
	f := def.NewForm(form.WithLogger(logger))

	emit := func(def definition.Definition) error {
		out, err := renderer.Render(ctx, f, render.RenderOptions{
			Title:       def.DisplayTitle(),
			Description: def.Description,
			Action:      opts.action,
			Method:      opts.method,
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd, opts.output, out)
	}
	if err := emit(def); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	src, err := definition.ParseSource(raw)
	if err != nil {
		return err
	}
	if src.Kind() != definition.SourceKindFile {
		return errors.New("--watch needs a local definition file")
	}

	watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchAndRender(watchCtx, src.Location(), opts.source, logger, func(next definition.Definition) {
		if err := f.Dispatch(next.SetFields()); err != nil {
			logger.Warn("definition not applied", zap.Error(err))
			return
		}
		if err := emit(next); err != nil {
			logger.Error("render failed", zap.Error(err))
			return
		}
		logger.Info("definition re-rendered", zap.String("form", next.ID), zap.Int("fields", len(next.Fields)))
	})
}

// watchAndRender blocks until ctx is done, calling apply with every
// definition that reloads cleanly. Broken edits keep the previous output.
func watchAndRender(ctx context.Context, path string, flags sourceFlags, logger *zap.Logger, apply func(definition.Definition)) error {
	watcher, err := definition.NewWatcher(path,
		definition.WithWatchLogger(logger),
		definition.WithWatchDecoder(flags.decoder()),
	)
	if err != nil {
		return err
	}
	logger.Info("watching definition", zap.String("path", path))
	return watcher.Run(ctx, func(def definition.Definition, err error) {
		if err != nil {
			return
		}
		apply(def)
	})
}
