package definition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/debounce"
)

// DefaultWatchDelay collapses the burst of events editors emit per save.
const DefaultWatchDelay = 200 * time.Millisecond

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchDelay overrides DefaultWatchDelay.
func WithWatchDelay(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWatchLoader replaces the loader used for reloads.
func WithWatchLoader(loader *Loader) WatchOption {
	return func(w *Watcher) {
		if loader != nil {
			w.loader = loader
		}
	}
}

// Decoder turns raw document bytes into a definition, for example an
// OpenAPI import bound to one operation.
type Decoder func(ctx context.Context, data []byte) (Definition, error)

// WithWatchDecoder replaces definition parsing on reload.
func WithWatchDecoder(decode Decoder) WatchOption {
	return func(w *Watcher) {
		w.decode = decode
	}
}

// Watcher reloads a definition file whenever it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	loader  *Loader
	decode  Decoder
	delay   time.Duration
	logger  *zap.Logger
}

// NewWatcher starts watching the directory holding path. The directory is
// watched rather than the file so atomic replace-on-save keeps working.
func NewWatcher(path string, options ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("definition: watch %q: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("definition: watch %q: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("definition: watch %q: %w", path, err)
	}

	w := &Watcher{
		path:    abs,
		watcher: fsw,
		loader:  NewLoader(),
		delay:   DefaultWatchDelay,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run delivers reloaded definitions to onChange until ctx is done, then
// releases the underlying watcher. onChange runs on a timer goroutine; load
// errors are passed through so callers can keep the previous definition.
func (w *Watcher) Run(ctx context.Context, onChange func(Definition, error)) error {
	defer w.watcher.Close()

	reload := debounce.New(w.delay,
		debounce.WithLogger(w.logger),
		debounce.WithName("definition-watch"),
	)
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("definition: watcher closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("definition changed",
				zap.String("path", w.path),
				zap.String("op", event.Op.String()),
			)
			reload.Schedule(func() {
				def, err := w.load(ctx)
				if err != nil {
					w.logger.Warn("definition reload failed", zap.String("path", w.path), zap.Error(err))
				}
				onChange(def, err)
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("definition: watcher closed")
			}
			w.logger.Warn("definition watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) load(ctx context.Context) (Definition, error) {
	src := SourceFromFile(w.path)
	if w.decode == nil {
		return w.loader.Load(ctx, src)
	}
	data, err := w.loader.Read(ctx, src)
	if err != nil {
		return Definition{}, err
	}
	return w.decode(ctx, data)
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
