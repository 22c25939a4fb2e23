// Package httpapi exposes course progress and live forms over HTTP.
//
// Routing follows the handler -> service -> store layering: handlers parse
// and encode, forms are driven through their controller, progress through
// persistence.Progress.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/controller"
	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/persistence"
	"github.com/goliatone/go-formstate/pkg/render"
	"github.com/goliatone/go-formstate/pkg/renderers/html"
)

const (
	defaultRequestTimeout = 5 * time.Second
	maxBodyBytes          = 1 << 20
)

var errDuplicateForm = errors.New("httpapi: form already registered")

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress mounts the /progress routes backed by progress.
func WithProgress(progress *persistence.Progress) Option {
	return func(s *Server) {
		s.progress = progress
	}
}

// WithHTMLRenderer replaces the renderer behind GET /forms/{id}/html.
func WithHTMLRenderer(renderer render.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.html = renderer
		}
	}
}

// WithRequestTimeout bounds the context handed to every handler.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

type formEntry struct {
	def  definition.Definition
	ctrl *controller.Controller
}

// Server holds the live forms and the progress tracker.
type Server struct {
	mu    sync.RWMutex
	forms map[string]*formEntry

	progress *persistence.Progress
	html     render.Renderer
	timeout  time.Duration
	logger   *zap.Logger
}

// New builds a server. Without WithHTMLRenderer the embedded pongo2 form
// template is used.
func New(options ...Option) (*Server, error) {
	s := &Server{
		forms:   make(map[string]*formEntry),
		timeout: defaultRequestTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.html == nil {
		renderer, err := html.New()
		if err != nil {
			return nil, fmt.Errorf("httpapi: html renderer: %w", err)
		}
		s.html = renderer
	}
	return s, nil
}

// AddForm publishes a controller under its definition id.
func (s *Server) AddForm(def definition.Definition, ctrl *controller.Controller) error {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return errors.New("httpapi: form id is required")
	}
	if ctrl == nil {
		return errors.New("httpapi: controller is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.forms[id]; exists {
		return fmt.Errorf("%w: %q", errDuplicateForm, id)
	}
	s.forms[id] = &formEntry{def: def, ctrl: ctrl}
	return nil
}

func (s *Server) form(id string) (*formEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.forms[id]
	return entry, ok
}

func (s *Server) formIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Router assembles the routes with request id, panic recovery and request
// logging applied to all of them.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(requestTimeout(s.timeout))

	r.Get("/healthz", s.healthz)

	if s.progress != nil {
		r.Route("/progress", func(r chi.Router) {
			r.Use(jsonContent)
			r.Get("/", s.getProgress)
			r.Delete("/", s.resetProgress)
			r.Put("/sections/{section}", s.completeSection)
			r.Delete("/sections/{section}", s.uncompleteSection)
		})
	}

	r.Route("/forms", func(r chi.Router) {
		r.With(jsonContent).Get("/", s.listForms)
		r.Route("/{id}", func(r chi.Router) {
			r.With(jsonContent).Get("/", s.getForm)
			r.With(jsonContent).Post("/actions", s.dispatchAction)
			r.With(jsonContent).Post("/validate", s.validateForm)
			r.With(jsonContent).Post("/errors", s.applyErrors)
			r.Get("/html", s.renderHTML)
		})
	})
	return r
}

// ListenAndServe serves Router on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
