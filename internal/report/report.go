// Package report turns daily records into the aggregates shown by the
// dashboard views. Every function is pure; means over an empty set are zero.
package report

import (
	"sort"

	"pawco/internal/core"
)

// Row is a record enriched with its derived fields.
type Row struct {
	core.DailyRecord
	PetTotal      core.Money
	GroomTotal    core.Money
	Gross         core.Money
	Net           core.Money
	AverageBasket core.Money
	Weekday       core.Weekday
	MonthKey      string
}

// Totals holds field-wise sums over a set of records.
type Totals struct {
	Entries   int
	PetCash   core.Money
	PetCard   core.Money
	GroomCash core.Money
	GroomCard core.Money
	Expense   core.Money
	Customers int
}

// WeekdayMean is the mean gross revenue of all records on one weekday.
type WeekdayMean struct {
	Weekday   core.Weekday
	Label     string
	Entries   int
	MeanGross core.Money
}

// MonthTotals sums one year-month.
type MonthTotals struct {
	Key string // "2006-01"
	Totals
}

// EmployeeSummary describes the records attributed to one employee.
type EmployeeSummary struct {
	Name      string
	Entries   int
	Total     core.Money
	MeanGross core.Money
	Daily     []DayPoint
}

// DayPoint is one date's gross revenue.
type DayPoint struct {
	Date  core.Date
	Gross core.Money
}

// DaySummary sums every record on one date.
type DaySummary struct {
	Date core.Date
	Totals
}

// Overview carries the dashboard's all-time metrics.
type Overview struct {
	Totals
	// MeanBasket is the mean of the per-record average basket, not total gross
	// over total customers.
	MeanBasket core.Money
}

// TrendPoint is one date's combined gross, net and expense.
type TrendPoint struct {
	Date    core.Date
	Gross   core.Money
	Net     core.Money
	Expense core.Money
}

// Enrich attaches derived fields to each record, preserving order.
func Enrich(records []core.DailyRecord) []Row {
	out := make([]Row, 0, len(records))
	for _, r := range records {
		out = append(out, Row{
			DailyRecord:   r,
			PetTotal:      r.PetTotal(),
			GroomTotal:    r.GroomTotal(),
			Gross:         r.Gross(),
			Net:           r.Net(),
			AverageBasket: r.AverageBasket(),
			Weekday:       core.WeekdayOf(r.Date),
			MonthKey:      r.Date.MonthKey(),
		})
	}
	return out
}

// Add folds one record into the totals.
func (t *Totals) Add(r core.DailyRecord) {
	t.Entries++
	t.PetCash = t.PetCash.Add(r.PetCash)
	t.PetCard = t.PetCard.Add(r.PetCard)
	t.GroomCash = t.GroomCash.Add(r.GroomCash)
	t.GroomCard = t.GroomCard.Add(r.GroomCard)
	t.Expense = t.Expense.Add(r.Expense)
	t.Customers += r.Customers
}

func (t Totals) PetTotal() core.Money   { return t.PetCash.Add(t.PetCard) }
func (t Totals) GroomTotal() core.Money { return t.GroomCash.Add(t.GroomCard) }
func (t Totals) Gross() core.Money      { return t.PetTotal().Add(t.GroomTotal()) }
func (t Totals) Net() core.Money        { return t.Gross().Sub(t.Expense) }
func (t Totals) Cash() core.Money       { return t.PetCash.Add(t.GroomCash) }
func (t Totals) Card() core.Money       { return t.PetCard.Add(t.GroomCard) }

// AverageBasket is total gross over total customers, zero without customers.
func (t Totals) AverageBasket() core.Money {
	return t.Gross().DivRound(int64(t.Customers))
}

// Sum totals every record.
func Sum(records []core.DailyRecord) Totals {
	var t Totals
	for _, r := range records {
		t.Add(r)
	}
	return t
}

// Overall computes the dashboard metrics over all records.
func Overall(records []core.DailyRecord) Overview {
	ov := Overview{Totals: Sum(records)}
	var basketSum core.Money
	for _, r := range records {
		basketSum = basketSum.Add(r.AverageBasket())
	}
	ov.MeanBasket = basketSum.DivRound(int64(len(records)))
	return ov
}

// ByWeekday returns the mean gross revenue for each weekday, Monday first.
// All seven days are present; days without records report zero.
func ByWeekday(records []core.DailyRecord) []WeekdayMean {
	var (
		sums   [7]core.Money
		counts [7]int
	)
	for _, r := range records {
		w := core.WeekdayOf(r.Date)
		sums[w] = sums[w].Add(r.Gross())
		counts[w]++
	}
	out := make([]WeekdayMean, 0, 7)
	for _, w := range core.Weekdays() {
		out = append(out, WeekdayMean{
			Weekday:   w,
			Label:     w.Label(),
			Entries:   counts[w],
			MeanGross: sums[w].DivRound(int64(counts[w])),
		})
	}
	return out
}

// BestWeekday returns the weekday with the highest mean gross revenue and
// false when there are no records at all.
func BestWeekday(means []WeekdayMean) (WeekdayMean, bool) {
	var (
		best  WeekdayMean
		found bool
	)
	for _, m := range means {
		if m.Entries == 0 {
			continue
		}
		if !found || m.MeanGross.Cents > best.MeanGross.Cents {
			best, found = m, true
		}
	}
	return best, found
}

// ByMonth groups records by year-month, ascending. The groups partition the
// input: their gross revenues add up to the all-time gross.
func ByMonth(records []core.DailyRecord) []MonthTotals {
	idx := make(map[string]int)
	var out []MonthTotals
	for _, r := range records {
		key := r.Date.MonthKey()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, MonthTotals{Key: key})
		}
		out[i].Add(r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key < out[b].Key })
	return out
}

// ByEmployee summarizes the records attributed to name. Entries counts
// data-entry events, not customer transactions.
func ByEmployee(records []core.DailyRecord, name string) EmployeeSummary {
	s := EmployeeSummary{Name: name}
	var mine []core.DailyRecord
	for _, r := range records {
		if r.Employee != name {
			continue
		}
		mine = append(mine, r)
		s.Entries++
		s.Total = s.Total.Add(r.Gross())
	}
	s.MeanGross = s.Total.DivRound(int64(s.Entries))
	for _, p := range Trend(mine) {
		s.Daily = append(s.Daily, DayPoint{Date: p.Date, Gross: p.Gross})
	}
	return s
}

// ByDay sums the records dated exactly d.
func ByDay(records []core.DailyRecord, d core.Date) DaySummary {
	s := DaySummary{Date: d}
	for _, r := range records {
		if r.Date.Equal(d) {
			s.Add(r)
		}
	}
	return s
}

// Trend sums records per date, ascending.
func Trend(records []core.DailyRecord) []TrendPoint {
	idx := make(map[string]int)
	var out []TrendPoint
	for _, r := range records {
		key := r.Date.String()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, TrendPoint{Date: r.Date})
		}
		out[i].Gross = out[i].Gross.Add(r.Gross())
		out[i].Net = out[i].Net.Add(r.Net())
		out[i].Expense = out[i].Expense.Add(r.Expense)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date.Before(out[b].Date) })
	return out
}

// Names returns the distinct employee names found in records, sorted.
func Names(records []core.DailyRecord) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		if r.Employee == "" {
			continue
		}
		if _, ok := seen[r.Employee]; ok {
			continue
		}
		seen[r.Employee] = struct{}{}
		out = append(out, r.Employee)
	}
	sort.Strings(out)
	return out
}
