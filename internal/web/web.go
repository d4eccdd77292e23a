package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"trustcal/internal/calendar"
	"trustcal/internal/config"
	appLog "trustcal/internal/log"
	"trustcal/internal/model"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Calendar is the read side the API serves.
type Calendar interface {
	Month(ctx context.Context, year int, month time.Month) (calendar.MonthView, error)
	Day(ctx context.Context, date time.Time) (calendar.DayView, error)
	Range(ctx context.Context, from, to time.Time) ([]calendar.DayView, error)
}

// Admin is the write side the API serves.
type Admin interface {
	SetOverride(ctx context.Context, date time.Time, status model.Status, adminID uuid.UUID) (model.CalendarEntry, error)
	MarkHoliday(ctx context.Context, date time.Time, title, description, reason string, adminID uuid.UUID) (model.CalendarEntry, error)
	AddCustomEvent(ctx context.Context, date time.Time, title, description string, adminID uuid.UUID) (model.CalendarEntry, error)
	AddFestival(ctx context.Context, name string, date time.Time, description string, recurring bool) (model.Festival, error)
	SetFestivalActive(ctx context.Context, id uuid.UUID, active bool) (model.Festival, error)
}

// FestivalLister lists festivals for the admin console.
type FestivalLister interface {
	ListFestivals(ctx context.Context, includeInactive bool) ([]model.Festival, error)
}

// Deps are the collaborators behind the HTTP API. Health and Metrics may
// be nil.
type Deps struct {
	Calendar  Calendar
	Admin     Admin
	Festivals FestivalLister
	Health    func(ctx context.Context) error
	Metrics   http.Handler
	// CalendarName titles the ICS export.
	CalendarName string
}

// Server provides the calendar HTTP API.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux
	now  func() time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.CalendarName == "" {
		deps.CalendarName = "Trust calendar"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mux:  http.NewServeMux(),
		now:  time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the mux, wrapped in basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/calendar/month", s.handleMonth)
	s.mux.HandleFunc("GET /api/calendar/day", s.handleDay)
	s.mux.HandleFunc("GET /api/calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /api/activity-types", s.handleActivityTypes)

	s.mux.HandleFunc("POST /api/calendar/override", s.handleOverride)
	s.mux.HandleFunc("POST /api/calendar/holiday", s.handleHoliday)
	s.mux.HandleFunc("POST /api/calendar/custom-event", s.handleCustomEvent)

	s.mux.HandleFunc("GET /api/festivals", s.handleListFestivals)
	s.mux.HandleFunc("POST /api/festivals", s.handleCreateFestival)
	s.mux.HandleFunc("PATCH /api/festivals/{id}/active", s.handleFestivalActive)

	if s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics)
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than lock everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="trustcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// adminIDFor derives a stable administrator ID from the basic-auth user.
// Unauthenticated deployments record uuid.Nil.
func adminIDFor(r *http.Request) uuid.UUID {
	u, _, ok := r.BasicAuth()
	if !ok || u == "" {
		return uuid.Nil
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("trustcal:admin:"+u))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			appLog.Error("health check failed", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
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

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
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
