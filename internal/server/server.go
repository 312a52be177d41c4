package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/doctopus/leavewatch/internal/utils"
	"github.com/doctopus/leavewatch/pkg/report"
	"github.com/doctopus/leavewatch/pkg/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const shutdownTimeout = 10 * time.Second

// Fetcher loads the leave report. *report.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*report.Dataset, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (*report.Dataset, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (*report.Dataset, error) {
	return f(ctx, url)
}

// Config holds the server settings.
type Config struct {
	ReportURL string
	Username  string
	Password  string
}

// Server is the dashboard web server. The fetched report is cached in memory
// and only replaced by Refresh; the tracking mapping is reloaded from the
// store on every request.
type Server struct {
	cfg      Config
	store    tracking.Store
	fetcher  Fetcher
	validate *validator.Validate
	now      func() time.Time

	mu       sync.RWMutex
	data     *report.Dataset
	fetchErr error
}

// New builds a server. Call Refresh to load the report before serving.
func New(cfg Config, store tracking.Store, fetcher Fetcher) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Refresh fetches the report. On failure the previous dataset is kept and
// the error is remembered for display.
func (s *Server) Refresh(ctx context.Context) error {
	ds, err := s.fetcher.Fetch(ctx, s.cfg.ReportURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		utils.Log.WithError(err).Error("Could not fetch leave report")
		s.fetchErr = err
		return err
	}
	s.data = ds
	s.fetchErr = nil
	return nil
}

// snapshot returns the cached dataset and the last fetch error.
func (s *Server) snapshot() (*report.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data, s.fetchErr
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logger)
	r.Use(s.recoverer)
	r.Use(s.basicAuth)

	r.Get("/", s.handleIndex)
	r.Post("/refresh", s.handleRefresh)
	r.Route("/tracking", func(r chi.Router) {
		r.Post("/toggle", s.handleToggle)
		r.Post("/replacement", s.handleReplacement)
	})
	r.Get("/export.csv", s.handleExport)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/roster", s.handleRoster)
		r.Get("/tracking", s.handleTracking)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
