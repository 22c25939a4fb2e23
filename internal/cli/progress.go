package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/persistence"
)

type progressOptions struct {
	format string
}

// NewProgressCommand creates the progress command and its subcommands.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &progressOptions{}

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show and update course progress",
		Long: `Course progress is a list of completed sections and a percentage, stored
under progress.key in the configured store.`,
	}
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	mutate := func(use, short string, apply func(*persistence.Progress, *cobra.Command, []string) (persistence.Snapshot, error), args cobra.PositionalArgs) *cobra.Command {
		return &cobra.Command{
			Use:           use,
			Short:         short,
			Args:          args,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runProgress(cmd, rootOpts, opts, func(p *persistence.Progress) (persistence.Snapshot, error) {
					return apply(p, cmd, args)
				})
			},
		}
	}

	cmd.AddCommand(
		mutate("show", "Print the stored progress",
			func(p *persistence.Progress, _ *cobra.Command, _ []string) (persistence.Snapshot, error) {
				return p.Snapshot(), nil
			}, cobra.NoArgs),
		mutate("complete <section>", "Mark a section complete",
			func(p *persistence.Progress, cmd *cobra.Command, args []string) (persistence.Snapshot, error) {
				return p.Complete(cmd.Context(), args[0])
			}, cobra.ExactArgs(1)),
		mutate("uncomplete <section>", "Mark a section incomplete",
			func(p *persistence.Progress, cmd *cobra.Command, args []string) (persistence.Snapshot, error) {
				return p.Uncomplete(cmd.Context(), args[0])
			}, cobra.ExactArgs(1)),
		mutate("toggle <section>", "Flip a section's completion",
			func(p *persistence.Progress, cmd *cobra.Command, args []string) (persistence.Snapshot, error) {
				return p.Toggle(cmd.Context(), args[0])
			}, cobra.ExactArgs(1)),
		mutate("reset", "Clear all progress",
			func(p *persistence.Progress, cmd *cobra.Command, _ []string) (persistence.Snapshot, error) {
				return p.Reset(cmd.Context()), nil
			}, cobra.NoArgs),
	)
	return cmd
}

func runProgress(cmd *cobra.Command, rootOpts *RootOptions, opts *progressOptions, apply func(*persistence.Progress) (persistence.Snapshot, error)) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be one of text, json", opts.format)
	}
	ctx := cmd.Context()

	store, closeStore, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer closeStore()

	adapter := persistence.NewProgressAdapter(store, rootOpts.Config.Progress.Key,
		persistence.WithAdapterLogger(rootOpts.logger()))
	progress := persistence.NewProgress(ctx, adapter, rootOpts.Config.Progress.Sections)

	snapshot, err := apply(progress)
	if err != nil {
		return err
	}
	if opts.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(snapshot)
	}
	printProgress(cmd.OutOrStdout(), progress, snapshot)
	return nil
}

func printProgress(w io.Writer, progress *persistence.Progress, snapshot persistence.Snapshot) {
	done := make(map[string]bool, len(snapshot.Completadas))
	for _, id := range snapshot.Completadas {
		done[id] = true
	}
	for _, section := range progress.Sections() {
		mark := " "
		if done[section] {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, section)
	}
	fmt.Fprintf(w, "%g%% complete\n", snapshot.Progreso)
}
