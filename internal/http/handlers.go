package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pawco/internal/core"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ledger == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.ledger.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
		"status":         "ok",
	}
	checks["security"] = s.metrics.snapshot()

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// validationMessages maps domain errors to the text shown next to a form.
var validationMessages = []struct {
	err error
	msg string
}{
	{core.ErrEmptyRoster, "No employees registered. Add an employee in Settings before entering data."},
	{core.ErrUnknownEmployee, "Select an employee from the roster"},
	{core.ErrEmptyEmployee, "Employee is required"},
	{core.ErrNoCustomers, "Customer count must be at least 1"},
	{core.ErrInvalidCustomers, "Customer count cannot be negative"},
	{core.ErrNegativeAmount, "Amounts cannot be negative"},
	{core.ErrInvalidAmount, "Amounts must be numbers"},
	{core.ErrInvalidDate, "Enter a valid date"},
	{core.ErrEmployeeTooLong, "Employee name is too long"},
	{core.ErrEmptyEmployeeName, "Employee name is required"},
	{core.ErrDuplicateEmployee, "Employee already exists"},
	{core.ErrEmployeeNotFound, "Employee not found"},
	{core.ErrDuplicateRecordID, "The grid contains the same record twice"},
	{errInvalidCount, "Counts and ids must be whole numbers"},
}

// userMessage returns the display text for a validation error and whether
// err is one at all.
func userMessage(err error) (string, bool) {
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			return v.msg, true
		}
	}
	return "", false
}

// fieldMessage prefixes the message with the failing field when known.
func fieldMessage(err error) string {
	msg, ok := userMessage(err)
	if !ok {
		msg = err.Error()
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		if fe.Row > 0 {
			return "Row " + strconv.Itoa(fe.Row) + ", " + fe.Field + ": " + msg
		}
		return fe.Field + ": " + msg
	}
	return msg
}

// htmxError swaps msg into the target feedback element and raises an error
// notification. The caller's form stays in place.
func htmxError(w http.ResponseWriter, status int, msg, target string) {
	ErrorResponse(status, msg).
		Header("HX-Retarget", target).
		Header("HX-Reswap", "innerHTML").
		TriggerErrorNotification(msg).
		Write(w)
}
