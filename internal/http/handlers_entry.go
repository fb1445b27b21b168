package http

import (
	"errors"
	"net/http"
	"net/url"

	"pawco/internal/core"
	applog "pawco/internal/log"
	"pawco/internal/nav"
)

// entryForm echoes submitted values back into the form.
type entryForm struct {
	Date      string
	Employee  string
	PetCash   string
	PetCard   string
	GroomCash string
	GroomCard string
	Expense   string
	Customers string
}

type entryData struct {
	page
	Roster  []core.Employee
	Blocked bool
	Form    entryForm
}

func blankEntryForm(today core.Date) entryForm {
	return entryForm{Date: today.String(), Customers: "1"}
}

func entryFormFrom(v url.Values) entryForm {
	return entryForm{
		Date:      v.Get(fieldDate),
		Employee:  v.Get(fieldEmployee),
		PetCash:   v.Get(fieldPetCash),
		PetCard:   v.Get(fieldPetCard),
		GroomCash: v.Get(fieldGroomCash),
		GroomCard: v.Get(fieldGroomCard),
		Expense:   v.Get(fieldExpense),
		Customers: v.Get(fieldCustomers),
	}
}

// handleEntryForm renders the data-entry form, or the blocking notice while
// the roster is empty.
func (s *Server) handleEntryForm(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Entry, s.now())

	ctx, cancel := s.requestContext(r)
	defer cancel()

	roster, err := s.ledger.Employees(ctx)
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load employees", err)
		return
	}

	data := entryData{
		page:    s.newPage(state),
		Roster:  roster,
		Blocked: len(roster) == 0,
		Form:    blankEntryForm(core.DateOf(s.now())),
	}
	s.render(w, r, http.StatusOK, "entry_page", &state, data)
}

// handleCreateRecord stores one submission and moves to the Day Summary of
// the submitted date.
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Entry, s.now())

	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	rec, err := ParseEntryForm(r.PostForm)
	if err == nil {
		var id int64
		id, err = s.ledger.CreateRecord(ctx, rec)
		if err == nil {
			applog.FromContext(ctx).InfoContext(ctx, "Record submitted",
				applog.FieldRecordID, id, applog.FieldDate, rec.Date.String())

			next := state.AfterEntry(rec.Date)
			next.Save(w)
			if isHTMX(r) {
				NewHTMXResponse().
					Redirect(next.URL()).
					TriggerSuccessNotification("Entry saved").
					Write(w)
				return
			}
			http.Redirect(w, r, next.URL(), http.StatusSeeOther)
			return
		}
	}

	status := http.StatusUnprocessableEntity
	msg, known := userMessage(err)
	var fe *FieldError
	switch {
	case errors.As(err, &fe):
		msg = fieldMessage(err)
		applog.FromContext(ctx).DebugContext(ctx, "Entry form rejected",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeValidation, applog.FieldOperation, applog.OpParse)
	case known:
		applog.FromContext(ctx).DebugContext(ctx, "Entry rejected",
			applog.FieldError, err, applog.FieldErrorType, applog.ErrorTypeValidation, applog.FieldOperation, applog.OpValidate)
	default:
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to save record",
			applog.FieldError, err, applog.FieldOperation, applog.OpCreate)
		status = http.StatusInternalServerError
		msg = "Failed to save the entry, please retry"
	}

	if isHTMX(r) {
		htmxError(w, status, msg, "#entry-feedback")
		return
	}

	roster, rosterErr := s.ledger.Employees(ctx)
	if rosterErr != nil {
		s.renderFailure(w, r, state, "Failed to load employees", rosterErr)
		return
	}
	data := entryData{
		page:    s.newPage(state),
		Roster:  roster,
		Blocked: len(roster) == 0,
		Form:    entryFormFrom(r.PostForm),
	}
	data.Error = msg
	s.render(w, r, status, "entry_page", &state, data)
}
