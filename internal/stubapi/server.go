// Package stubapi is a local stand-in for the remote verification service.
// It speaks the same routes and JSON envelopes so the console can run end
// to end without the hosted backend.
package stubapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vetdesk/internal/models"
	"vetdesk/internal/pkg/logger"
	"vetdesk/internal/queue"
	"vetdesk/internal/store"
	"vetdesk/internal/validator"
)

// MaxCSVRows caps the number of unique addresses in one uploaded file.
const MaxCSVRows = 10000

// checkConcurrency bounds parallel checks within one request.
const checkConcurrency = 16

type Options struct {
	Secret         string
	AllowedOrigins []string
	Checker        *validator.Checker
	Logs           store.LogStore
	// Queue, when set, defers log writes to the recorder. Otherwise logs are
	// written inline.
	Queue queue.Queue
	// CacheSize reports the result cache size for /health.
	CacheSize func() int
	// Database names the log backend in /health, e.g. "postgres".
	Database string
	Version  string
}

type Server struct {
	opts    Options
	started time.Time
}

func New(opts Options) *Server {
	if opts.Checker == nil {
		opts.Checker = validator.NewChecker(validator.Options{})
	}
	if opts.Logs == nil {
		opts.Logs = store.NewMemory()
		opts.Database = "memory"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{opts: opts, started: time.Now()}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check (no auth required)
	r.Get("/api/health", s.health)
	r.Get("/api/email-validation/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(s.opts.Secret))

		r.Post("/api/email-validation/validate-email", s.validateEmail)
		r.Post("/api/email-validation/validate-emails", s.validateEmails)
		r.Post("/api/files/validate-csv", s.validateCSV)
		r.Post("/api/files/export-csv", s.exportCSV)
		r.Post("/api/files/export-excel", s.exportExcel)
		r.Get("/api/analytics/validation-logs", s.validationLogs)
	})

	return r
}

// checkAll scores emails in parallel, keeping input order.
func (s *Server) checkAll(ctx context.Context, emails []string) []models.ValidationResult {
	out := make([]models.ValidationResult, len(emails))
	sem := make(chan struct{}, checkConcurrency)
	var wg sync.WaitGroup

	for i, e := range emails {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, e string) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.opts.Checker.Check(ctx, e)
		}(i, e)
	}
	wg.Wait()

	s.record(ctx, out)
	return out
}

func (s *Server) record(ctx context.Context, results []models.ValidationResult) {
	for _, r := range results {
		l := models.ValidationLog{Email: r.Email, Status: r.Tier(), Score: r.Score}
		if r.ProcessingTime != nil {
			l.ProcessingTime = *r.ProcessingTime
		}

		var err error
		if s.opts.Queue != nil {
			err = s.opts.Queue.Push(ctx, l)
		} else {
			err = s.opts.Logs.Record(ctx, l)
		}
		if err != nil {
			logger.Warn("validation log dropped", "email", r.Email, "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.Failure(msg))
}
