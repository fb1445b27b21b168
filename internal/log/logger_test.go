package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Config{Level: level, Component: ComponentApp, Output: buf}), buf
}

func TestLoggerStampsComponent(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	logger.WithComponent(ComponentStorage).Info("opened", "path", "x.db")

	out := buf.String()
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, "path=x.db") {
		t.Fatalf("unexpected output: %s", out)
	}
	if strings.Count(out, "component=") != 1 {
		t.Fatalf("component should be written once: %s", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelWarn)

	logger.Info("hidden")
	logger.Debug("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)

	var seen *Logger
	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = FromContext(r.Context())
			seen.Info("inside")
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Component() != ComponentApp {
		t.Fatalf("logger not propagated: %+v", seen)
	}
	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id missing: %s", buf.String())
	}

	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %s", got.Component())
	}
}

func TestStructuredLoggerHTTPLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "level=INFO"},
		{422, "level=WARN"},
		{500, "level=ERROR"},
	}
	for _, tt := range tests {
		logger, buf := newBufferLogger(slog.LevelInfo)
		sl := NewStructuredLogger(logger)
		r := httptest.NewRequest(http.MethodPost, "/entry", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "127.0.0.1")

		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("status %d: expected %s in %s", tt.status, tt.level, buf.String())
		}
	}
}

func TestStructuredLoggerDomainEvents(t *testing.T) {
	logger, buf := newBufferLogger(slog.LevelInfo)
	sl := NewStructuredLogger(logger)
	ctx := context.Background()

	sl.LogRecordCreated(ctx, 7, "2024-05-01", "Ayşe", 35000, 10)
	sl.LogRecordsReplaced(ctx, 1, 2, 3)
	sl.LogError(ctx, "failed", errors.New("boom"), ComponentStorage, OpReplace, nil)

	out := buf.String()
	for _, want := range []string{"record_id=7", "gross_cents=35000", "inserted=1", "deleted=3", "error=boom", "component=storage"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}
