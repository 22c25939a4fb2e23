package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/persistence"
)

const httpTimeout = 10 * time.Second

// sourceFlags select a definition and how to read it.
type sourceFlags struct {
	operation string
	openapi   bool
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&s.openapi, "openapi", false, "treat the source as an OpenAPI 3 document")
	cmd.Flags().StringVar(&s.operation, "operation", "", "OpenAPI operationId to build the form from (implies --openapi)")
}

func (s sourceFlags) isOpenAPI() bool {
	return s.openapi || s.operation != ""
}

func (s sourceFlags) decoder() definition.Decoder {
	if !s.isOpenAPI() {
		return nil
	}
	operation := s.operation
	return func(ctx context.Context, data []byte) (definition.Definition, error) {
		return definition.FromOpenAPI(ctx, data, operation)
	}
}

func loadDefinition(ctx context.Context, raw string, flags sourceFlags) (definition.Definition, error) {
	src, err := definition.ParseSource(raw)
	if err != nil {
		return definition.Definition{}, err
	}
	loader := definition.NewLoader(definition.WithHTTPFallback(httpTimeout))
	if !flags.isOpenAPI() {
		return loader.Load(ctx, src)
	}
	data, err := loader.Read(ctx, src)
	if err != nil {
		return definition.Definition{}, err
	}
	return flags.decoder()(ctx, data)
}

func openStore(opts *RootOptions) (persistence.Store, func(), error) {
	store, closeFn, err := opts.Config.OpenStore()
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s store: %w", opts.Config.Storage.Driver, err)
	}
	return store, func() {
		if err := closeFn(); err != nil {
			opts.logger().Warn("store close failed", zap.Error(err))
		}
	}, nil
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty, ending with a newline.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if !strings.HasSuffix(string(data), "\n") {
		data = append(data, '\n')
	}
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
