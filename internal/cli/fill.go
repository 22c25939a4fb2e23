package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/persistence"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/tui"
)

type fillOptions struct {
	source      sourceFlags
	format      string
	output      string
	fresh       bool
	maxAttempts int
}

// NewFillCommand creates the fill command.
func NewFillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &fillOptions{}

	cmd := &cobra.Command{
		Use:   "fill <definition>",
		Short: "Fill a form interactively and print the submitted values",
		Long: `Prompt for every field of a form definition, validating each answer as it
is given. Answers are auto-saved as a draft; an interrupted session resumes
from the draft next time unless --fresh is set.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFill(cmd, rootOpts, opts, args[0])
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(tui.OutputFormatJSON), "output format (json|form|pretty)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "ignore and discard any saved draft")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "give up after this many invalid answers per field (0 = unlimited)")

	return cmd
}

func runFill(cmd *cobra.Command, rootOpts *RootOptions, opts *fillOptions, raw string) error {
	ctx := cmd.Context()
	logger := rootOpts.logger()

	format, ok := tui.ParseOutputFormat(opts.format)
	if !ok {
		return fmt.Errorf("invalid format %q: must be one of json, form, pretty", opts.format)
	}

	def, err := loadDefinition(ctx, raw, opts.source)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer closeStore()

	drafts := persistence.NewDraftAdapter(store, def.ID, persistence.WithAdapterLogger(logger))
	f := def.NewForm(form.WithLogger(logger))
	ctrl := controller.New(ctx, f,
		controller.WithLogger(logger),
		controller.WithDraft(drafts),
		controller.WithValidationDelay(rootOpts.Config.Validation.Delay),
		controller.WithAutosaveDelay(rootOpts.Config.Autosave.Delay),
	)
	defer ctrl.Close()

	if opts.fresh {
		ctrl.DiscardDraft(ctx)
	} else if restored := ctrl.RestoreDraft(ctx); restored > 0 {
		logger.Info("draft restored", zap.String("form", def.ID), zap.Int("fields", restored))
	}

	options := []tui.Option{
		tui.WithOutputFormat(format),
		tui.WithMaxAttempts(opts.maxAttempts),
		tui.WithLogger(logger),
	}
	if rootOpts.prompts != nil {
		options = append(options, tui.WithPromptDriver(rootOpts.prompts))
	}

	out, err := tui.New(options...).Render(ctx, f, render.RenderOptions{
		Title:       def.DisplayTitle(),
		Description: def.Description,
	})
	if err != nil {
		ctrl.SaveNow(ctx)
		return fmt.Errorf("fill %s: %w", def.ID, err)
	}
	ctrl.DiscardDraft(ctx)
	return writeOutput(cmd, opts.output, out)
}
