package report

import "encoding/json"

// Chart is a renderer-neutral chart description: tabular data plus field
// names. web/static/app.js maps it onto Chart.js.
type Chart struct {
	Kind   string   `json:"type"` // bar, line, pie
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Series []Series `json:"series"`
}

// Series is one named column of values, aligned with Chart.Labels.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// JSON encodes the chart for a data attribute.
func (c Chart) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Empty reports whether the chart has nothing to plot.
func (c Chart) Empty() bool {
	for _, s := range c.Series {
		for _, v := range s.Values {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

func WeekdayChart(means []WeekdayMean) Chart {
	c := Chart{Kind: "bar", Title: "Mean gross revenue by weekday"}
	s := Series{Name: "Mean gross"}
	for _, m := range means {
		c.Labels = append(c.Labels, m.Label)
		s.Values = append(s.Values, m.MeanGross.Units())
	}
	c.Series = []Series{s}
	return c
}

func DepartmentChart(t Totals) Chart {
	return Chart{
		Kind:   "pie",
		Title:  "Revenue by department",
		Labels: []string{"Pet shop", "Grooming"},
		Series: []Series{{Name: "Revenue", Values: []float64{t.PetTotal().Units(), t.GroomTotal().Units()}}},
	}
}

func PaymentChart(t Totals) Chart {
	return Chart{
		Kind:   "pie",
		Title:  "Revenue by payment method",
		Labels: []string{"Cash", "Card"},
		Series: []Series{{Name: "Revenue", Values: []float64{t.Cash().Units(), t.Card().Units()}}},
	}
}

func TrendChart(points []TrendPoint) Chart {
	c := Chart{Kind: "line", Title: "Revenue, profit and expense over time"}
	gross := Series{Name: "Gross revenue"}
	net := Series{Name: "Net profit"}
	exp := Series{Name: "Expense"}
	for _, p := range points {
		c.Labels = append(c.Labels, p.Date.String())
		gross.Values = append(gross.Values, p.Gross.Units())
		net.Values = append(net.Values, p.Net.Units())
		exp.Values = append(exp.Values, p.Expense.Units())
	}
	c.Series = []Series{gross, net, exp}
	return c
}

func MonthlyRevenueChart(months []MonthTotals) Chart {
	c := Chart{Kind: "bar", Title: "Revenue and profit by month"}
	gross := Series{Name: "Gross revenue"}
	net := Series{Name: "Net profit"}
	for _, m := range months {
		c.Labels = append(c.Labels, m.Key)
		gross.Values = append(gross.Values, m.Gross().Units())
		net.Values = append(net.Values, m.Net().Units())
	}
	c.Series = []Series{gross, net}
	return c
}

func MonthlyDepartmentChart(months []MonthTotals) Chart {
	c := Chart{Kind: "line", Title: "Department totals by month"}
	pet := Series{Name: "Pet shop"}
	groom := Series{Name: "Grooming"}
	for _, m := range months {
		c.Labels = append(c.Labels, m.Key)
		pet.Values = append(pet.Values, m.PetTotal().Units())
		groom.Values = append(groom.Values, m.GroomTotal().Units())
	}
	c.Series = []Series{pet, groom}
	return c
}

func EmployeeDailyChart(s EmployeeSummary) Chart {
	c := Chart{Kind: "bar", Title: s.Name + ": daily gross revenue"}
	gross := Series{Name: "Gross revenue"}
	for _, p := range s.Daily {
		c.Labels = append(c.Labels, p.Date.String())
		gross.Values = append(gross.Values, p.Gross.Units())
	}
	c.Series = []Series{gross}
	return c
}
