package sheets

import (
	"context"

	"pawco/internal/core"
)

// Header is the column layout of a mirrored record row.
var Header = []string{
	"ID", "Date", "Weekday", "Employee",
	"Pet Cash", "Pet Card", "Groom Cash", "Groom Card",
	"Expense", "Customers", "Gross", "Net",
}

// Ports for outbound adapters.
type (
	// RecordMirror keeps a read-only copy of the ledger outside the database.
	RecordMirror interface {
		// Upsert writes rec, replacing any row with the same ID.
		Upsert(ctx context.Context, rec core.DailyRecord) error
		// ReplaceAll rewrites the mirror so it holds exactly recs.
		ReplaceAll(ctx context.Context, recs []core.DailyRecord) error
	}
)

// Row renders rec in Header order.
func Row(rec core.DailyRecord) []any {
	return []any{
		rec.ID,
		rec.Date.String(),
		core.WeekdayOf(rec.Date).Label(),
		rec.Employee,
		rec.PetCash.Units(),
		rec.PetCard.Units(),
		rec.GroomCash.Units(),
		rec.GroomCard.Units(),
		rec.Expense.Units(),
		rec.Customers,
		rec.Gross().Units(),
		rec.Net().Units(),
	}
}
