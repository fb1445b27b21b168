package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"pawco/internal/core"
	applog "pawco/internal/log"
	"pawco/internal/nav"
	appweb "pawco/web"
)

const requestIDHeader = "X-Request-ID"

// Ledger is what the views need from the ledger service.
type Ledger interface {
	Ping(ctx context.Context) error
	Records(ctx context.Context, f core.RecordFilter) ([]core.DailyRecord, error)
	Employees(ctx context.Context) ([]core.Employee, error)
	AddEmployee(ctx context.Context, name string) (core.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
	CreateRecord(ctx context.Context, rec core.DailyRecord) (int64, error)
	ReplaceRecords(ctx context.Context, snapshot []core.DailyRecord, loaded []int64) (core.ReplaceResult, error)
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	StoreName      string
	RequestTimeout time.Duration
	Now            func() time.Time
}

type Server struct {
	http.Server
	ledger         Ledger
	templates      *template.Template
	storeName      string
	requestTimeout time.Duration
	now            func() time.Time
	started        time.Time

	logger      *applog.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

// funcMap holds the display helpers shared by every template.
var funcMap = template.FuncMap{
	"money": func(m core.Money) string { return m.Format() },
	"avg":   func(m core.Money) string { return m.FormatAverage() },
	"count": func(n int) string { return humanize.Comma(int64(n)) },
	"input": func(m core.Money) string { return m.Input() },
	"weekday": func(d core.Date) string {
		return core.WeekdayOf(d).Label()
	},
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.StoreName == "" {
		opts.StoreName = "PAWCO"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 7 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	root := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           root,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:         ledger,
		storeName:      opts.StoreName,
		requestTimeout: opts.RequestTimeout,
		now:            opts.Now,
		started:        time.Now(),
		logger:         applog.Wrap(slog.Default(), applog.ComponentHTTP),
		rateLimiter:    newRateLimiter(writesPerMinute, time.Minute),
		metrics:        &securityMetrics{},
	}

	t, err := template.New("pawco").Funcs(funcMap).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		root.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	root.HandleFunc("GET /healthz", s.handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleDashboard)
	app.HandleFunc("GET /entry", s.handleEntryForm)
	app.HandleFunc("POST /entry", s.handleCreateRecord)
	app.HandleFunc("GET /day", s.handleDay)
	app.HandleFunc("GET /monthly", s.handleMonthly)
	app.HandleFunc("GET /employees", s.handleEmployees)
	app.HandleFunc("GET /settings", s.handleSettings)
	app.HandleFunc("POST /settings/employees", s.handleAddEmployee)
	app.HandleFunc("POST /settings/employees/delete", s.handleDeleteEmployee)
	app.HandleFunc("GET /settings/records/row", s.handleGridRow)
	app.HandleFunc("POST /settings/records", s.handleReplaceRecords)
	app.HandleFunc("GET /settings/records/export.xlsx", s.handleExport)
	root.Handle("/", s.withSecurityHeaders(app))

	return s
}

// Shutdown stops background routines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	inner := applog.Middleware(s.logger)(
		applog.RequestIDMiddleware(func(r *http.Request) string {
			return r.Header.Get(requestIDHeader)
		})(s.instrument(next)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := generateRequestID()
		r.Header.Set(requestIDHeader, requestID)
		w.Header().Set(requestIDHeader, requestID)
		setSecurityHeaders(w.Header())
		inner.ServeHTTP(w, r)
	})
}

// instrument logs the request and applies the write rate limit. It runs
// with the request-scoped logger already in the context.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := applog.NewStructuredLogger(applog.FromContext(ctx))
		clientIP := extractClientIP(r)

		logger.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, s.metrics) {
			TooManyRequestsError().Write(rw)
		} else {
			next.ServeHTTP(rw, r)
		}

		logger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestContext bounds storage calls made by one handler.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

// page is the data every full page shares.
type page struct {
	Title     string
	StoreName string
	Menu      []nav.MenuItem
	State     nav.State
	Error     string
	Notice    string
}

func (s *Server) newPage(state nav.State) page {
	return page{
		Title:     state.View.Title(),
		StoreName: s.storeName,
		Menu:      state.Menu(),
		State:     state,
	}
}

// render executes a named template into a buffer so a failing template never
// leaves a half-written page, then persists the navigation state.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, state *nav.State, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeInternal,
			applog.FieldOperation, applog.OpRender, "template", name)
		InternalServerError("Failed to render page").Write(w)
		return
	}

	if state != nil {
		state.Save(w)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderFailure shows a storage or internal failure inside the page layout.
func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, state nav.State, msg string, err error) {
	errorType := applog.ErrorTypeDatabase
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = applog.ErrorTypeTimeout
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), msg,
		applog.FieldError, err, applog.FieldErrorType, errorType, applog.FieldOperation, applog.OpRead)
	p := s.newPage(state)
	p.Error = msg
	s.render(w, r, http.StatusInternalServerError, "error_page", &state, p)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
