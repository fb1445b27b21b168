// Package nav holds the navigation state carried between views: the active
// view and the context it needs (selected date, selected employee).
//
// A State is decoded from each request, handed to the view, and the (possibly
// updated) State returned by the view is written back as a cookie. There is
// no history stack.
package nav

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"pawco/internal/core"
)

// View identifies one of the application's pages.
type View string

const (
	Dashboard View = "dashboard"
	Entry     View = "entry"
	Day       View = "day"
	Monthly   View = "monthly"
	Employees View = "employees"
	Settings  View = "settings"
)

// CookieName stores the carried context between requests.
const CookieName = "pawco_nav"

var views = []struct {
	view  View
	path  string
	title string
}{
	{Dashboard, "/", "Dashboard"},
	{Entry, "/entry", "Data Entry"},
	{Day, "/day", "Day Summary"},
	{Monthly, "/monthly", "Monthly Summary"},
	{Employees, "/employees", "Employee Performance"},
	{Settings, "/settings", "Settings"},
}

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	View   View
	Title  string
	Href   string
	Active bool
}

// State is the navigation context for one request.
type State struct {
	View         View
	SelectedDate core.Date
	Employee     string
}

// New returns the initial state: the dashboard with today selected.
func New(now time.Time) State {
	return State{View: Dashboard, SelectedDate: core.DateOf(now)}
}

// Go switches the active view, keeping the carried context.
func (s State) Go(v View) State {
	if v.Valid() {
		s.View = v
	}
	return s
}

// SelectDate keeps d as the Day Summary context. Zero dates are ignored.
func (s State) SelectDate(d core.Date) State {
	if !d.IsZero() {
		s.SelectedDate = d
	}
	return s
}

// SelectEmployee keeps name as the Employee Performance context.
func (s State) SelectEmployee(name string) State {
	s.Employee = strings.TrimSpace(name)
	return s
}

// AfterEntry is the transition taken after a successful data entry: show the
// Day Summary for the submitted date.
func (s State) AfterEntry(d core.Date) State {
	return s.SelectDate(d).Go(Day)
}

// URL is the location of the current view with its context as query parameters.
func (s State) URL() string {
	path := s.View.Path()
	q := url.Values{}
	switch s.View {
	case Day:
		if !s.SelectedDate.IsZero() {
			q.Set("date", s.SelectedDate.String())
		}
	case Employees:
		if s.Employee != "" {
			q.Set("name", s.Employee)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// Menu lists every view, marking the active one.
func (s State) Menu() []MenuItem {
	items := make([]MenuItem, 0, len(views))
	for _, v := range views {
		items = append(items, MenuItem{View: v.view, Title: v.title, Href: v.path, Active: v.view == s.View})
	}
	return items
}

// Valid reports whether v names a known view.
func (v View) Valid() bool {
	for _, x := range views {
		if x.view == v {
			return true
		}
	}
	return false
}

// Path is the route that renders v.
func (v View) Path() string {
	for _, x := range views {
		if x.view == v {
			return x.path
		}
	}
	return "/"
}

// Title is the human-readable name of v.
func (v View) Title() string {
	for _, x := range views {
		if x.view == v {
			return x.title
		}
	}
	return ""
}

// FromRequest decodes the state for view v: the cookie is the base, query
// parameters override it, and anything missing falls back to New(now).
func FromRequest(r *http.Request, v View, now time.Time) State {
	s := New(now)
	if c, err := r.Cookie(CookieName); err == nil {
		s = decode(c.Value, s)
	}
	q := r.URL.Query()
	if d, err := core.ParseDate(q.Get("date")); err == nil {
		s = s.SelectDate(d)
	}
	if name, ok := q["name"]; ok && len(name) > 0 {
		s = s.SelectEmployee(name[0])
	}
	return s.Go(v)
}

// Save writes the carried context as a session cookie.
func (s State) Save(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.encode(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s State) encode() string {
	q := url.Values{}
	q.Set("v", string(s.View))
	if !s.SelectedDate.IsZero() {
		q.Set("d", s.SelectedDate.String())
	}
	if s.Employee != "" {
		q.Set("e", s.Employee)
	}
	return url.QueryEscape(q.Encode())
}

// decode overlays the cookie value on base; malformed parts are ignored.
func decode(raw string, base State) State {
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return base
	}
	q, err := url.ParseQuery(unescaped)
	if err != nil {
		return base
	}
	s := base.Go(View(q.Get("v")))
	if d, err := core.ParseDate(q.Get("d")); err == nil {
		s = s.SelectDate(d)
	}
	if e := q.Get("e"); e != "" {
		s = s.SelectEmployee(e)
	}
	return s
}
