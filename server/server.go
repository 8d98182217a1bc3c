package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jasonliu2000/reminders-backend/server/recurrence"
	"github.com/jasonliu2000/reminders-backend/server/storage"
)

const (
	headerContentType = "Content-Type"

	mimeTypeJSON     = "application/json; charset=utf-8"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	maxBodyBytes = 1 << 20
)

// Server serves the reminders JSON API.
type Server struct {
	storage storage.Storage
	engine  *recurrence.Engine
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for "not before today" checks.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEngine sets the recurrence engine used by range queries.
func WithEngine(e *recurrence.Engine) Option {
	return func(s *Server) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithIDGenerator overrides how new reminder IDs are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates a reminders API server backed by store.
func New(store storage.Storage, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, errors.New("storage is required")
	}

	s := &Server{
		storage: store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		newID:   uuid.NewString,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine(recurrence.WithLogger(s.logger))
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /reminders", s.handleCreate)
	s.mux.HandleFunc("GET /reminders", s.handleRange)
	s.mux.HandleFunc("GET /reminders/search", s.handleSearch)
	s.mux.HandleFunc("GET /reminders/{id}", s.handleGet)
	s.mux.HandleFunc("PATCH /reminders/{id}", s.handlePatch)
	s.mux.HandleFunc("DELETE /reminders/{id}", s.handleDelete)
	s.mux.HandleFunc("GET /reminders/{id}/occurrences", s.handleOccurrences)
	s.mux.HandleFunc("GET /reminders/{id}/ics", s.handleReminderICS)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendarICS)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(rec, r)

	s.logger.Debug("handled request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(began))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{Data: map[string]string{"status": "ok"}})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
