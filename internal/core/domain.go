package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and form representation of a calendar day.
const DateLayout = "2006-01-02"

// MaxEmployeeNameLength bounds roster names and record attributions.
const MaxEmployeeNameLength = 100

type (
	// Date is a calendar day without a time component, always in UTC.
	Date struct {
		time.Time
	}

	// Money is an amount in minor units (kuruş).
	Money struct {
		Cents int64
	}

	// DailyRecord is one data-entry event: revenue split by department and
	// payment method, the day's expense and the customers served.
	DailyRecord struct {
		ID        int64
		Date      Date
		PetCash   Money
		PetCard   Money
		GroomCash Money
		GroomCard Money
		Expense   Money
		Customers int
		Employee  string
	}

	// Employee is a roster entry eligible for attribution on a record.
	Employee struct {
		ID   int64
		Name string
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrInvalidCustomers  = errors.New("customer count cannot be negative")
	ErrNoCustomers       = errors.New("customer count must be at least 1")
	ErrEmptyEmployee     = errors.New("employee is required")
	ErrEmployeeTooLong   = errors.New("employee name too long")
	ErrEmptyEmployeeName = errors.New("employee name is required")
	ErrDuplicateEmployee = errors.New("employee already exists")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrUnknownEmployee   = errors.New("employee is not in the roster")
	ErrEmptyRoster       = errors.New("no employees registered")
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateRecordID = errors.New("duplicate record id")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Out-of-range days such as
// 2024-02-30 are rejected rather than normalized.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey is the year-month grouping key, e.g. "2024-05".
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Equal compares calendar days.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// PetTotal is pet-shop cash plus card.
func (r DailyRecord) PetTotal() Money { return r.PetCash.Add(r.PetCard) }

// GroomTotal is grooming cash plus card.
func (r DailyRecord) GroomTotal() Money { return r.GroomCash.Add(r.GroomCard) }

// Gross is the record's gross revenue across both departments.
func (r DailyRecord) Gross() Money { return r.PetTotal().Add(r.GroomTotal()) }

// Net is gross revenue minus expense. It may be negative.
func (r DailyRecord) Net() Money { return r.Gross().Sub(r.Expense) }

// CashTotal is cash taken across both departments.
func (r DailyRecord) CashTotal() Money { return r.PetCash.Add(r.GroomCash) }

// CardTotal is card payments across both departments.
func (r DailyRecord) CardTotal() Money { return r.PetCard.Add(r.GroomCard) }

// AverageBasket is gross revenue per customer, zero when no customers were served.
func (r DailyRecord) AverageBasket() Money {
	return r.Gross().DivRound(int64(r.Customers))
}

// Validate checks the invariants every stored record must satisfy.
func (r DailyRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	for _, m := range []Money{r.PetCash, r.PetCard, r.GroomCash, r.GroomCard, r.Expense} {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if r.Customers < 0 {
		return ErrInvalidCustomers
	}
	if len(r.Employee) > MaxEmployeeNameLength {
		return ErrEmployeeTooLong
	}
	return nil
}

// ValidateEntry applies the stricter rules of the data-entry form on top of
// Validate: an attributed employee and at least one customer.
func (r DailyRecord) ValidateEntry() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Employee) == "" {
		return ErrEmptyEmployee
	}
	if r.Customers < 1 {
		return ErrNoCustomers
	}
	return nil
}

// NormalizeEmployeeName trims a roster name and checks it is usable.
func NormalizeEmployeeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyEmployeeName
	}
	if len(name) > MaxEmployeeNameLength {
		return "", ErrEmployeeTooLong
	}
	return name, nil
}
