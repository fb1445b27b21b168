package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"pawco/internal/core"
	"pawco/internal/export"
	applog "pawco/internal/log"
	"pawco/internal/nav"
)

// gridRow is one editable line of the bulk editor.
type gridRow struct {
	ID        string
	Date      string
	Employee  string
	PetCash   string
	PetCard   string
	GroomCash string
	GroomCard string
	Expense   string
	Customers string
}

func gridRowOf(rec core.DailyRecord) gridRow {
	row := gridRow{
		Date:      rec.Date.String(),
		Employee:  rec.Employee,
		PetCash:   rec.PetCash.Input(),
		PetCard:   rec.PetCard.Input(),
		GroomCash: rec.GroomCash.Input(),
		GroomCard: rec.GroomCard.Input(),
		Expense:   rec.Expense.Input(),
		Customers: strconv.Itoa(rec.Customers),
	}
	if rec.ID > 0 {
		row.ID = strconv.FormatInt(rec.ID, 10)
	}
	return row
}

// rosterPanel is the employee management partial.
type rosterPanel struct {
	Roster []core.Employee
	Error  string
	Notice string
}

// gridPanel is the bulk editor partial.
type gridPanel struct {
	Rows      []gridRow
	LoadedIDs string
	Employees []string
	Error     string
	Notice    string
}

type settingsData struct {
	page
	RosterPanel rosterPanel
	GridPanel   gridPanel
}

// handleSettings renders roster management and the bulk record editor.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Settings, s.now())

	ctx, cancel := s.requestContext(r)
	defer cancel()

	roster, err := s.ledger.Employees(ctx)
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load employees", err)
		return
	}
	grid, err := s.loadGrid(r)
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load records", err)
		return
	}
	grid.Employees = employeeChoices(roster, nil)

	data := settingsData{
		page:        s.newPage(state),
		RosterPanel: rosterPanel{Roster: roster},
		GridPanel:   grid,
	}
	s.render(w, r, http.StatusOK, "settings_page", &state, data)
}

func (s *Server) loadGrid(r *http.Request) (gridPanel, error) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	records, err := s.ledger.Records(ctx, core.RecordFilter{NewestFirst: true})
	if err != nil {
		return gridPanel{}, err
	}
	rows := make([]gridRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, gridRowOf(rec))
	}
	return gridPanel{Rows: rows, LoadedIDs: FormatLoadedIDs(records)}, nil
}

// handleAddEmployee appends a name to the roster.
func (s *Server) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	emp, err := s.ledger.AddEmployee(ctx, r.PostForm.Get("name"))
	if err != nil {
		s.rosterFailure(w, r, applog.OpCreate, err)
		return
	}
	s.rosterResult(w, r, fmt.Sprintf("Added %s", emp.Name))
}

// handleDeleteEmployee removes one roster entry by id; records keep the name.
func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	id, err := ParseEmployeeID(r.PostForm)
	if err != nil {
		BadRequestError("Invalid employee id").Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	if err := s.ledger.DeleteEmployee(ctx, id); err != nil {
		s.rosterFailure(w, r, applog.OpDelete, err)
		return
	}
	s.rosterResult(w, r, "Employee removed")
}

func (s *Server) rosterFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	status := http.StatusUnprocessableEntity
	msg, known := userMessage(err)
	errorType := applog.ErrorTypeValidation
	switch {
	case errors.Is(err, core.ErrEmployeeNotFound):
		status = http.StatusNotFound
		errorType = applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrDuplicateEmployee):
		errorType = applog.ErrorTypeConflict
	case !known:
		errorType = applog.ErrorTypeDatabase
		applog.FromContext(ctx).ErrorContext(ctx, "Roster update failed",
			applog.FieldError, err, applog.FieldErrorType, errorType, applog.FieldOperation, op)
		status = http.StatusInternalServerError
		msg = "Failed to update employees"
	}
	if known {
		applog.FromContext(ctx).DebugContext(ctx, "Roster update rejected",
			applog.FieldError, err, applog.FieldErrorType, errorType, applog.FieldOperation, op)
	}

	if isHTMX(r) {
		htmxError(w, status, msg, "#roster-feedback")
		return
	}

	state := nav.FromRequest(r, nav.Settings, s.now())
	rctx, cancel := s.requestContext(r)
	defer cancel()
	roster, rerr := s.ledger.Employees(rctx)
	if rerr != nil {
		s.renderFailure(w, r, state, "Failed to load employees", rerr)
		return
	}
	grid, gerr := s.loadGrid(r)
	if gerr != nil {
		s.renderFailure(w, r, state, "Failed to load records", gerr)
		return
	}
	grid.Employees = employeeChoices(roster, nil)
	data := settingsData{
		page:        s.newPage(state),
		RosterPanel: rosterPanel{Roster: roster, Error: msg},
		GridPanel:   grid,
	}
	s.render(w, r, status, "settings_page", &state, data)
}

func (s *Server) rosterResult(w http.ResponseWriter, r *http.Request, notice string) {
	if !isHTMX(r) {
		http.Redirect(w, r, nav.Settings.Path(), http.StatusSeeOther)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	roster, err := s.ledger.Employees(ctx)
	if err != nil {
		s.rosterFailure(w, r, applog.OpRead, err)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "roster", rosterPanel{Roster: roster, Notice: notice}); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Roster template failed", applog.FieldError, err)
		InternalServerError("Failed to render roster").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerRosterChanged(len(roster)).
		TriggerSuccessNotification(notice).
		BodyHTML(buf.String()).
		Write(w)
}

// handleGridRow returns a blank editor row for the client to append.
func (s *Server) handleGridRow(w http.ResponseWriter, r *http.Request) {
	row := gridRow{Date: core.DateOf(s.now()).String(), Customers: "0"}
	s.render(w, r, http.StatusOK, "grid_row", nil, row)
}

// handleReplaceRecords applies the edited grid after explicit confirmation.
func (s *Server) handleReplaceRecords(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	if !Confirmed(r.PostForm) {
		s.gridError(w, r, http.StatusUnprocessableEntity, "Tick the confirmation box to replace the records")
		return
	}

	snapshot, err := ParseRecordGrid(r.PostForm)
	if err != nil {
		s.gridError(w, r, http.StatusBadRequest, "Bulk replace failed: "+fieldMessage(err))
		return
	}
	loaded, err := ParseLoadedIDs(r.PostForm)
	if err != nil {
		s.gridError(w, r, http.StatusBadRequest, "Bulk replace failed: "+fieldMessage(err))
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.ledger.ReplaceRecords(ctx, snapshot, loaded)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if _, known := userMessage(err); !known {
			status = http.StatusInternalServerError
			applog.FromContext(ctx).ErrorContext(ctx, "Bulk replace failed",
				applog.FieldError, err, applog.FieldOperation, applog.OpReplace)
		}
		s.gridError(w, r, status, "Bulk replace failed: "+err.Error())
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, nav.Settings.Path(), http.StatusSeeOther)
		return
	}

	grid, err := s.loadGrid(r)
	if err != nil {
		InternalServerError("Records saved, but reloading the grid failed").Write(w)
		return
	}
	roster, err := s.ledger.Employees(ctx)
	if err != nil {
		InternalServerError("Records saved, but reloading the roster failed").Write(w)
		return
	}
	grid.Employees = employeeChoices(roster, nil)
	grid.Notice = fmt.Sprintf("Saved: %d added, %d changed, %d removed", res.Inserted, res.Updated, res.Deleted)

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "records_grid", grid); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Grid template failed", applog.FieldError, err)
		InternalServerError("Failed to render records").Write(w)
		return
	}
	NewHTMXResponse().
		TriggerRecordsReplaced(res.Inserted, res.Updated, res.Deleted).
		TriggerSuccessNotification(grid.Notice).
		BodyHTML(buf.String()).
		Write(w)
}

func (s *Server) gridError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if isHTMX(r) {
		htmxError(w, status, msg, "#grid-feedback")
		return
	}
	ErrorResponse(status, msg).Write(w)
}

// handleExport streams every record as an XLSX workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	records, err := s.ledger.Records(ctx, core.RecordFilter{})
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Export failed",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeDatabase, applog.FieldOperation, applog.OpList)
		InternalServerError("Failed to load records").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, records); err != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentExport).ErrorContext(ctx, "Export failed",
			applog.FieldError, err, applog.FieldOperation, applog.OpExport)
		InternalServerError("Failed to build workbook").Write(w)
		return
	}

	filename := fmt.Sprintf("pawco-records-%s.xlsx", core.DateOf(s.now()).String())
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
