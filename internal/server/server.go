// Package server is the HTTP front of drivegate. Every route except the
// greeting and health check requires a bearer token; each request opens its
// own provider session from that token and drops it when the response is
// written.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tonimelisma/drivegate/internal/drive"
)

// KeyEnv is the environment variable holding the Fernet key.
const KeyEnv = "FERNET_API_KEY"

// Defaults for zero-valued Options.
const (
	DefaultMaxUploadSize   = 100 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

// Options configures a Server. Factory is required.
type Options struct {
	Host string
	Port int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxUploadSize int64
	PageSize      int

	// TokenTTL bounds bearer token age; zero accepts any age.
	TokenTTL time.Duration

	// KeyFunc returns the Fernet key for each request. Nil reads KeyEnv.
	KeyFunc func() string

	Factory *drive.SessionFactory
	Slots   *drive.UploadSlots
	Logger  *slog.Logger
	Version string
}

// Server routes requests onto the drive accessors.
type Server struct {
	opts     Options
	factory  *drive.SessionFactory
	slots    *drive.UploadSlots
	key      func() string
	tokenTTL time.Duration
	logger   *slog.Logger
	router   chi.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}

	if opts.PageSize <= 0 {
		opts.PageSize = drive.DefaultPageSize
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	if opts.Factory == nil {
		opts.Factory = &drive.SessionFactory{Logger: opts.Logger}
	}

	key := opts.KeyFunc
	if key == nil {
		key = func() string { return os.Getenv(KeyEnv) }
	}

	s := &Server{
		opts:     opts,
		factory:  opts.Factory,
		slots:    opts.Slots,
		key:      key,
		tokenTTL: opts.TokenTTL,
		logger:   opts.Logger,
	}

	s.router = s.routes()

	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID, s.logRequests, s.recoverPanics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, &APIError{Status: http.StatusNotFound, Message: msgNotFoundRoute})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, &APIError{Status: http.StatusMethodNotAllowed, Message: msgMethodNotAllowed})
	})

	r.Get("/", s.handleGreeting)
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Post("/", s.handleCreateEmptyFile)
			r.Get("/{id}", s.handleGetFile)
			r.Delete("/{id}", s.handleDeleteFile)
			r.Patch("/{id}", s.handleUpdateFile)
			r.Post("/{id}", s.handleUploadFile)
			r.Put("/{id}/content", s.handleReplaceContent)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", s.handleListFolders)
			r.Post("/", s.handleCreateFolder)
			r.Get("/root", s.handleRootFolder)
			r.Get("/{id}", s.handleGetFolder)
			r.Get("/{id}/files", s.handleListFolderFiles)
			r.Delete("/{id}", s.handleDeleteFolder)
			r.Patch("/{id}", s.handleUpdateFolder)
		})
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Run listens on Addr and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.Addr(), err)
	}

	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then drains
// in-flight requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down", slog.Duration("timeout", s.opts.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	return nil
}
