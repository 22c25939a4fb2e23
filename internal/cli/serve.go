package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/internal/httpapi"
	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/persistence"
)

type serveOptions struct {
	source sourceFlags
	addr   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [definition...]",
		Short: "Serve progress and forms over HTTP",
		Long: `Serve the HTTP API. Forms listed under "forms" in the config and given as
arguments are loaded once, restored from their drafts and kept live; every
change is validated and auto-saved on the configured delays.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts, args)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address, overrides server.addr")

	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *serveOptions, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, closeAll, err := buildServer(ctx, rootOpts, opts.source, append(append([]string{}, rootOpts.Config.Forms...), args...))
	if err != nil {
		return err
	}
	defer closeAll()

	addr := rootOpts.Config.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}
	return server.ListenAndServe(ctx, addr)
}

// buildServer wires the store, progress tracker and one controller per
// definition. closeAll flushes drafts and releases the store.
func buildServer(ctx context.Context, rootOpts *RootOptions, flags sourceFlags, sources []string) (*httpapi.Server, func(), error) {
	logger := rootOpts.logger()
	cfg := rootOpts.Config

	store, closeStore, err := openStore(rootOpts)
	if err != nil {
		return nil, func() {}, err
	}

	progress := persistence.NewProgress(ctx,
		persistence.NewProgressAdapter(store, cfg.Progress.Key, persistence.WithAdapterLogger(logger)),
		cfg.Progress.Sections,
	)
	server, err := httpapi.New(
		httpapi.WithLogger(logger),
		httpapi.WithProgress(progress),
		httpapi.WithRequestTimeout(cfg.Server.Timeout),
	)
	if err != nil {
		closeStore()
		return nil, func() {}, err
	}

	var controllers []*controller.Controller
	closeAll := func() {
		for _, ctrl := range controllers {
			ctrl.SaveNow(context.Background())
			ctrl.Close()
		}
		closeStore()
	}

	for _, raw := range sources {
		def, err := loadDefinition(ctx, raw, flags)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		ctrl := controller.New(ctx, def.NewForm(form.WithLogger(logger)),
			controller.WithLogger(logger.With(zap.String("form", def.ID))),
			controller.WithDraft(persistence.NewDraftAdapter(store, def.ID, persistence.WithAdapterLogger(logger))),
			controller.WithValidationDelay(cfg.Validation.Delay),
			controller.WithAutosaveDelay(cfg.Autosave.Delay),
		)
		controllers = append(controllers, ctrl)
		ctrl.RestoreDraft(ctx)
		if err := server.AddForm(def, ctrl); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		logger.Info("form published", zap.String("form", def.ID), zap.Int("fields", len(def.Fields)))
	}
	return server, closeAll, nil
}
