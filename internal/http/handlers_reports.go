package http

import (
	"net/http"
	"sort"

	"pawco/internal/core"
	"pawco/internal/nav"
	"pawco/internal/report"
)

type dashboardData struct {
	page
	HasRecords bool
	Overview   report.Overview
	Best       report.WeekdayMean
	HasBest    bool
	Charts     []report.Chart
}

type dayData struct {
	page
	Date    core.Date
	Prev    core.Date
	Next    core.Date
	Summary report.DaySummary
	Rows    []report.Row
	Charts  []report.Chart
}

type monthlyData struct {
	page
	Months []report.MonthTotals
	Charts []report.Chart
}

type employeesData struct {
	page
	Names    []string
	Selected string
	Summary  report.EmployeeSummary
	Chart    report.Chart
}

// handleDashboard renders all-time metrics and the three aggregation charts.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Dashboard, s.now())

	ctx, cancel := s.requestContext(r)
	defer cancel()

	records, err := s.ledger.Records(ctx, core.RecordFilter{})
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load records", err)
		return
	}

	ov := report.Overall(records)
	means := report.ByWeekday(records)
	best, hasBest := report.BestWeekday(means)

	data := dashboardData{
		page:       s.newPage(state),
		HasRecords: len(records) > 0,
		Overview:   ov,
		Best:       best,
		HasBest:    hasBest,
		Charts: []report.Chart{
			report.WeekdayChart(means),
			report.DepartmentChart(ov.Totals),
			report.PaymentChart(ov.Totals),
			report.TrendChart(report.Trend(records)),
		},
	}
	s.render(w, r, http.StatusOK, "dashboard_page", &state, data)
}

// handleDay summarises every entry of the selected date.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Day, s.now())
	day := state.SelectedDate

	ctx, cancel := s.requestContext(r)
	defer cancel()

	records, err := s.ledger.Records(ctx, core.RecordFilter{Day: day})
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load the day's records", err)
		return
	}

	summary := report.ByDay(records, day)
	data := dayData{
		page:    s.newPage(state),
		Date:    day,
		Prev:    core.DateOf(day.AddDate(0, 0, -1)),
		Next:    core.DateOf(day.AddDate(0, 0, 1)),
		Summary: summary,
		Rows:    report.Enrich(records),
		Charts: []report.Chart{
			report.DepartmentChart(summary.Totals),
			report.PaymentChart(summary.Totals),
		},
	}
	s.render(w, r, http.StatusOK, "day_page", &state, data)
}

// handleMonthly renders the month table and the two comparison charts.
func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Monthly, s.now())

	ctx, cancel := s.requestContext(r)
	defer cancel()

	records, err := s.ledger.Records(ctx, core.RecordFilter{})
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load records", err)
		return
	}

	months := report.ByMonth(records)
	data := monthlyData{
		page:   s.newPage(state),
		Months: months,
		Charts: []report.Chart{
			report.MonthlyRevenueChart(months),
			report.MonthlyDepartmentChart(months),
		},
	}
	s.render(w, r, http.StatusOK, "monthly_page", &state, data)
}

// handleEmployees shows one employee's attributed revenue. The selector
// lists the roster plus names that only survive on historical records.
func (s *Server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	state := nav.FromRequest(r, nav.Employees, s.now())

	ctx, cancel := s.requestContext(r)
	defer cancel()

	roster, err := s.ledger.Employees(ctx)
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load employees", err)
		return
	}
	records, err := s.ledger.Records(ctx, core.RecordFilter{})
	if err != nil {
		s.renderFailure(w, r, state, "Failed to load records", err)
		return
	}

	names := employeeChoices(roster, records)
	selected := state.Employee
	if selected == "" && len(names) > 0 {
		selected = names[0]
	}
	state = state.SelectEmployee(selected)

	summary := report.ByEmployee(records, selected)
	data := employeesData{
		page:     s.newPage(state),
		Names:    names,
		Selected: selected,
		Summary:  summary,
		Chart:    report.EmployeeDailyChart(summary),
	}
	s.render(w, r, http.StatusOK, "employees_page", &state, data)
}

func employeeChoices(roster []core.Employee, records []core.DailyRecord) []string {
	seen := make(map[string]struct{}, len(roster))
	names := make([]string, 0, len(roster))
	for _, e := range roster {
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}
	for _, n := range report.Names(records) {
		if _, ok := seen[n]; !ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
