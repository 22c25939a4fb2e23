package definition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem enables SourceFromFS lookups against files.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithHTTPClient enables URL sources through client.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		if client != nil {
			l.http = client
		}
	}
}

// WithHTTPFallback enables URL sources with a default client and timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		if l.http == nil {
			l.http = &http.Client{}
		}
		l.timeout = timeout
	}
}

// Loader reads definition documents from files, an fs.FS or HTTP. HTTP is
// disabled unless a client or the fallback is configured.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// NewLoader constructs a Loader.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Read returns the raw bytes behind src.
func (l *Loader) Read(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("definition loader: source is nil")
	}
	switch src.Kind() {
	case SourceKindFile:
		return loadFile(ctx, src.Location())
	case SourceKindFS:
		return loadFromFS(ctx, l.fs, src.Location())
	case SourceKindURL:
		if l.http == nil {
			return nil, errors.New("definition loader: http support disabled")
		}
		return loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		return nil, fmt.Errorf("definition loader: unsupported source kind %q", src.Kind())
	}
}

// Load reads and parses the definition behind src. A document without an id
// takes the source's base name.
func (l *Loader) Load(ctx context.Context, src Source) (Definition, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return Definition{}, err
	}
	def, err := parse(data, baseName(src))
	if err != nil {
		return Definition{}, fmt.Errorf("%w (%s)", err, src.Location())
	}
	return def, nil
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("definition loader: file path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func loadFromFS(ctx context.Context, filesystem fs.FS, name string) ([]byte, error) {
	if filesystem == nil {
		return nil, errors.New("definition loader: filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("definition loader: fs path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(filesystem, name)
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("definition loader: unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
