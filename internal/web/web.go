package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"urnik/internal/api"
	"urnik/internal/auth"
	"urnik/internal/config"
	appLog "urnik/internal/log"
	"urnik/internal/metrics"
	"urnik/internal/model"
	"urnik/internal/prefs"
)

// Upstream is the subset of the timetable API client the server uses.
type Upstream interface {
	Options(ctx context.Context) (model.Options, error)
	ClassTimetable(ctx context.Context, week, classID string, f model.Filter) (model.Timetable, error)
	ProfessorTimetables(ctx context.Context, week, professorID string) ([]model.Timetable, error)
	Groups(ctx context.Context, classID string) ([]model.SubjectGroups, error)
	Subjects(ctx context.Context, classID string) ([]model.Subject, error)
	Calendar(ctx context.Context, week, classID string, f model.Filter) ([]byte, error)
	ProfessorPDF(ctx context.Context, week, professorID string) ([]byte, error)
	Subscribe(ctx context.Context, classID, email string, f model.Filter) error
}

// Printer renders a page of this service to PDF.
type Printer interface {
	PrintPDF(ctx context.Context, url string) ([]byte, error)
}

// Server serves the timetable API and the rendered views.
type Server struct {
	cfg     *config.Config
	debug   bool
	api     Upstream
	prefs   prefs.Store
	printer Printer
	loc     *time.Location
	now     func() time.Time

	// tickerSpec drives the indicator stream; tests shorten it.
	tickerSpec string

	// printToken lets the headless renderer reach /view when basic auth
	// is enabled.
	printToken string

	router chi.Router

	optionsMu    sync.RWMutex
	optionsCache *optionsCache
}

type optionsCache struct {
	opts      model.Options
	updatedAt time.Time
}

// optionsTTL bounds how stale options may get when the refresh job is not
// running.
const optionsTTL = time.Hour

// NewServer constructs a new Server. printer may be nil, in which case PDF
// export always uses the upstream rendering.
func NewServer(cfg *config.Config, upstream Upstream, store prefs.Store, printer Printer, debug bool) *Server {
	s := &Server{
		cfg:        cfg,
		debug:      debug,
		api:        upstream,
		prefs:      store,
		printer:    printer,
		loc:        resolveLocationOrLocal(cfg.Timezone),
		now:        time.Now,
		tickerSpec: "@every 1m",
		printToken: uuid.NewString(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the router, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(s.router)
	}
	return s.router
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
// /view also accepts the server's print token.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	creds := auth.Credentials{
		Username: s.cfg.BasicAuth.Username,
		Password: s.cfg.BasicAuth.Password,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		if r.URL.Path == "/view" && r.URL.Query().Get("token") == s.printToken {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !creds.Check(u, p) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Urnik", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerRoutes() {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/prefs", s.handleGetPrefs)
		r.Put("/prefs", s.handlePutPrefs)
		r.Put("/prefs/class/{classID}", s.handleSelectClass)
		r.Get("/groups/{classID}", s.handleGroups)
		r.Get("/subjects/{classID}", s.handleSubjects)
		r.Get("/timetable", s.handleTimetable)
		r.Get("/indicator/stream", s.handleIndicatorStream)
		r.Get("/export/ics", s.handleExportICS)
		r.Get("/export/upstream-ics", s.handleExportUpstreamICS)
		r.Get("/export/pdf", s.handleExportPDF)
		r.Post("/subscribe", s.handleSubscribe)
	})

	r.Get("/view", s.handleView)
	r.Get("/email", s.handleEmailResult)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/view", http.StatusFound)
	})

	s.router = r
}

// StartServer runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// RefreshOptions fetches options from the upstream and replaces the cache.
func (s *Server) RefreshOptions(ctx context.Context) error {
	opts, err := s.api.Options(ctx)
	if err != nil {
		return err
	}
	s.optionsMu.Lock()
	s.optionsCache = &optionsCache{opts: opts, updatedAt: s.now()}
	s.optionsMu.Unlock()

	appLog.Info("options refreshed",
		"weeks", len(opts.Weeks), "classes", len(opts.Classes), "professors", len(opts.Professors))
	return nil
}

// options returns cached options, fetching them when missing or stale.
func (s *Server) options(ctx context.Context) (model.Options, error) {
	s.optionsMu.RLock()
	cached := s.optionsCache
	s.optionsMu.RUnlock()

	if cached != nil && s.now().Sub(cached.updatedAt) < optionsTTL {
		return cached.opts, nil
	}
	if err := s.RefreshOptions(ctx); err != nil {
		if cached != nil {
			appLog.Error("options refresh failed; serving stale cache", err)
			return cached.opts, nil
		}
		return model.Options{}, err
	}

	s.optionsMu.RLock()
	defer s.optionsMu.RUnlock()
	return s.optionsCache.opts, nil
}

// upstreamError maps an upstream failure to a JSON error response.
func (s *Server) upstreamError(w http.ResponseWriter, op string, err error) {
	appLog.Error("upstream request failed", err, "op", op)
	if api.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusBadGateway, "upstream unavailable")
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// safeFilePart keeps a value usable inside a Content-Disposition filename.
func safeFilePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
