package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/model"
	"github.com/goliatone/go-formstate/pkg/validation"
)

// ErrInvalidForm is returned by validate when any field fails.
var ErrInvalidForm = errors.New("form is invalid")

// ValidationResult is the JSON output of the validate command.
type ValidationResult struct {
	Form   string            `json:"form"`
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

type validateOptions struct {
	source     sourceFlags
	valuesFile string
	set        []string
	format     string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <definition>",
		Short: "Validate values against a form definition",
		Long: `Apply values to a form definition and run every field rule once.

Values come from a JSON object file (--values) and/or repeated --set id=value
flags; --set wins when both name the same field. Exits non-zero when any
field fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, opts, args[0])
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.valuesFile, "values", "", "JSON file mapping field ids to values")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "field value as id=value (repeatable)")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text|json)")

	return cmd
}

func runValidate(cmd *cobra.Command, rootOpts *RootOptions, opts *validateOptions, raw string) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be one of text, json", opts.format)
	}
	ctx := cmd.Context()

	def, err := loadDefinition(ctx, raw, opts.source)
	if err != nil {
		return err
	}
	f := def.NewForm(form.WithLogger(rootOpts.logger()))

	actions, err := valueActions(f.Fields(), opts)
	if err != nil {
		return err
	}
	for _, action := range actions {
		if err := f.Dispatch(action); err != nil {
			return err
		}
	}

	fields := f.Fields()
	result := validation.New().Validate(fields)
	out := ValidationResult{Form: def.ID, Valid: result.Valid(), Errors: result}

	w := cmd.OutOrStdout()
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else if out.Valid {
		fmt.Fprintf(w, "✓ %s is valid\n", def.ID)
	} else {
		for _, field := range fields {
			if msg, failed := result[field.ID]; failed {
				fmt.Fprintf(w, "✗ %s: %s\n", field.ID, msg)
			}
		}
	}

	if !out.Valid {
		return fmt.Errorf("%w: %d field(s) failed", ErrInvalidForm, len(result))
	}
	return nil
}

// valueActions turns --values and --set into UPDATE_FIELD actions in field
// order.
func valueActions(fields model.Collection, opts *validateOptions) ([]form.Action, error) {
	values := make(map[string]model.Value)
	if opts.valuesFile != "" {
		data, err := os.ReadFile(opts.valuesFile)
		if err != nil {
			return nil, fmt.Errorf("read values: %w", err)
		}
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode values %s: %w", opts.valuesFile, err)
		}
	}
	for _, pair := range opts.set {
		id, rawValue, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --set %q: want id=value", pair)
		}
		field, found := fields.Find(id)
		if !found {
			return nil, fmt.Errorf("%w: %q", form.ErrFieldNotFound, id)
		}
		if field.Kind == model.KindCheckbox {
			checked, err := strconv.ParseBool(rawValue)
			if err != nil {
				return nil, fmt.Errorf("invalid --set %q: %s is a checkbox", pair, id)
			}
			values[id] = model.Checked(checked)
			continue
		}
		values[id] = model.Text(rawValue)
	}

	actions := make([]form.Action, 0, len(values))
	for _, field := range fields {
		if value, ok := values[field.ID]; ok {
			actions = append(actions, form.UpdateField{FieldID: field.ID, Value: value})
			delete(values, field.ID)
		}
	}
	for id := range values {
		return nil, fmt.Errorf("%w: %q", form.ErrFieldNotFound, id)
	}
	return actions, nil
}
