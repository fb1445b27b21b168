// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the data-entry form, the bulk editor grid and roster actions.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pawco/internal/core"
)

// Form field names shared by the data-entry form and the bulk editor grid.
const (
	fieldID        = "id"
	fieldDate      = "date"
	fieldEmployee  = "employee"
	fieldPetCash   = "pet_cash"
	fieldPetCard   = "pet_card"
	fieldGroomCash = "groom_cash"
	fieldGroomCard = "groom_card"
	fieldExpense   = "expense"
	fieldCustomers = "customers"
	fieldConfirm   = "confirm"
	fieldLoadedIDs = "loaded_ids"
)

var errInvalidCount = errors.New("invalid number")

// FieldError names the form field that failed to parse.
type FieldError struct {
	Field string
	Row   int // 1-based grid row, 0 for single forms
	Err   error
}

func (e *FieldError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d, %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}

// ParseEntryForm reads a data-entry submission. Blank amounts count as zero;
// the stricter entry rules are applied by the ledger service.
func ParseEntryForm(form url.Values) (core.DailyRecord, error) {
	return parseRecordFields(func(key string) string { return form.Get(key) }, 0)
}

// ParseRecordGrid reads the bulk editor: one value per row for every column.
// Rows left completely blank are dropped; a blank id marks a new row.
func ParseRecordGrid(form url.Values) ([]core.DailyRecord, error) {
	columns := []string{fieldID, fieldDate, fieldEmployee, fieldPetCash, fieldPetCard,
		fieldGroomCash, fieldGroomCard, fieldExpense, fieldCustomers}

	rows := len(form[fieldDate])
	for _, c := range columns {
		if len(form[c]) != rows {
			return nil, fmt.Errorf("malformed grid: column %s has %d values, expected %d", c, len(form[c]), rows)
		}
	}

	records := make([]core.DailyRecord, 0, rows)
	for i := 0; i < rows; i++ {
		cell := func(key string) string { return form[key][i] }
		if blankRow(cell, columns) {
			continue
		}
		rec, err := parseRecordFields(cell, i+1)
		if err != nil {
			return nil, err
		}
		id, err := parseID(cell(fieldID))
		if err != nil {
			return nil, &FieldError{Field: fieldID, Row: i + 1, Err: err}
		}
		rec.ID = id
		records = append(records, rec)
	}
	return records, nil
}

// Confirmed reports whether the destructive bulk action was acknowledged.
func Confirmed(form url.Values) bool {
	switch strings.ToLower(strings.TrimSpace(form.Get(fieldConfirm))) {
	case "on", "yes", "true", "1":
		return true
	}
	return false
}

// ParseEmployeeID reads the roster id of a delete action.
func ParseEmployeeID(form url.Values) (int64, error) {
	id, err := parseID(form.Get(fieldID))
	if err != nil || id <= 0 {
		return 0, &FieldError{Field: fieldID, Err: errInvalidCount}
	}
	return id, nil
}

// ParseLoadedIDs reads the comma-separated ids the bulk editor was rendered
// with. Only these may be deleted by a replace.
func ParseLoadedIDs(form url.Values) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(form.Get(fieldLoadedIDs), ",") {
		id, err := parseID(part)
		if err != nil {
			return nil, &FieldError{Field: fieldLoadedIDs, Err: err}
		}
		if id > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FormatLoadedIDs is the inverse of ParseLoadedIDs.
func FormatLoadedIDs(records []core.DailyRecord) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		if rec.ID > 0 {
			parts = append(parts, strconv.FormatInt(rec.ID, 10))
		}
	}
	return strings.Join(parts, ",")
}

func parseRecordFields(get func(string) string, row int) (core.DailyRecord, error) {
	var rec core.DailyRecord

	d, err := core.ParseDate(sanitizeInput(get(fieldDate)))
	if err != nil {
		return rec, &FieldError{Field: fieldDate, Row: row, Err: core.ErrInvalidDate}
	}
	rec.Date = d
	rec.Employee = sanitizeInput(get(fieldEmployee))

	amounts := []struct {
		field string
		dst   *core.Money
	}{
		{fieldPetCash, &rec.PetCash},
		{fieldPetCard, &rec.PetCard},
		{fieldGroomCash, &rec.GroomCash},
		{fieldGroomCard, &rec.GroomCard},
		{fieldExpense, &rec.Expense},
	}
	for _, a := range amounts {
		m, err := parseOptionalAmount(get(a.field))
		if err != nil {
			return rec, &FieldError{Field: a.field, Row: row, Err: err}
		}
		*a.dst = m
	}

	n, err := parseCount(get(fieldCustomers))
	if err != nil {
		return rec, &FieldError{Field: fieldCustomers, Row: row, Err: err}
	}
	rec.Customers = n
	return rec, nil
}

func parseOptionalAmount(s string) (core.Money, error) {
	s = sanitizeInput(s)
	if s == "" {
		return core.Money{}, nil
	}
	return core.ParseAmount(s)
}

func parseCount(s string) (int, error) {
	s = sanitizeInput(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errInvalidCount
	}
	if n < 0 {
		return 0, core.ErrInvalidCustomers
	}
	return n, nil
}

func parseID(s string) (int64, error) {
	s = sanitizeInput(s)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, errInvalidCount
	}
	return id, nil
}

func blankRow(get func(string) string, columns []string) bool {
	for _, c := range columns {
		if sanitizeInput(get(c)) != "" {
			return false
		}
	}
	return true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
