package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"pawco/internal/amqp"
	"pawco/internal/core"
	"pawco/internal/storage"
)

type published struct {
	action string
	id     int64
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	closed bool
}

func (f *fakePublisher) PublishRecordSync(_ context.Context, action string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, published{action, id})
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newService(t *testing.T, pub Publisher) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewLedgerService(repo, pub)
}

func entry(employee string, customers int) core.DailyRecord {
	return core.DailyRecord{
		Date:      core.NewDate(2024, 5, 1),
		PetCash:   core.Money{Cents: 10000},
		PetCard:   core.Money{Cents: 5000},
		GroomCard: core.Money{Cents: 20000},
		Expense:   core.Money{Cents: 8000},
		Customers: customers,
		Employee:  employee,
	}
}

func TestCreateRecordBlockedByEmptyRoster(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()

	if _, err := svc.CreateRecord(ctx, entry("Ayşe", 10)); !errors.Is(err, core.ErrEmptyRoster) {
		t.Fatalf("expected ErrEmptyRoster, got %v", err)
	}
	recs, _ := svc.Records(ctx, core.RecordFilter{})
	if len(recs) != 0 || len(pub.events) != 0 {
		t.Fatalf("nothing should be stored or published: %v %v", recs, pub.events)
	}
}

func TestCreateRecordValidation(t *testing.T) {
	svc := newService(t, &fakePublisher{})
	ctx := context.Background()
	if _, err := svc.AddEmployee(ctx, "Ayşe"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		rec  core.DailyRecord
		want error
	}{
		{"unknown employee", entry("Mehmet", 1), core.ErrUnknownEmployee},
		{"blank employee", entry("  ", 1), core.ErrEmptyEmployee},
		{"no customers", entry("Ayşe", 0), core.ErrNoCustomers},
		{"negative amount", func() core.DailyRecord { r := entry("Ayşe", 1); r.Expense = core.Money{Cents: -1}; return r }(), core.ErrNegativeAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateRecord(ctx, tt.rec); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	recs, _ := svc.Records(ctx, core.RecordFilter{})
	if len(recs) != 0 {
		t.Fatalf("invalid entries must not be stored: %v", recs)
	}
}

func TestCreateRecordStoresAndPublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()
	_, _ = svc.AddEmployee(ctx, "Ayşe")

	id, err := svc.CreateRecord(ctx, entry(" Ayşe ", 10))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recs, _ := svc.Records(ctx, core.RecordFilter{Day: core.NewDate(2024, 5, 1)})
	if len(recs) != 1 || recs[0].ID != id || recs[0].Employee != "Ayşe" {
		t.Fatalf("records=%+v", recs)
	}
	if recs[0].Gross().Cents != 35000 || recs[0].Net().Cents != 27000 {
		t.Fatalf("gross=%d net=%d", recs[0].Gross().Cents, recs[0].Net().Cents)
	}
	if len(pub.events) != 1 || pub.events[0] != (published{amqp.ActionUpsert, id}) {
		t.Fatalf("events=%v", pub.events)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc := newService(t, &fakePublisher{err: amqp.ErrCircuitOpen})
	ctx := context.Background()
	_, _ = svc.AddEmployee(ctx, "Ali")

	if _, err := svc.CreateRecord(ctx, entry("Ali", 1)); err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
}

func TestNilPublisher(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	_, _ = svc.AddEmployee(ctx, "Ali")

	if _, err := svc.CreateRecord(ctx, entry("Ali", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ReplaceRecords(ctx, nil, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
}

func TestReplaceRecordsPublishesResyncOnlyOnChange(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()
	_, _ = svc.AddEmployee(ctx, "Ali")
	_, _ = svc.CreateRecord(ctx, entry("Ali", 1))
	pub.events = nil

	recs, _ := svc.Records(ctx, core.RecordFilter{})
	loaded := []int64{recs[0].ID}
	res, err := svc.ReplaceRecords(ctx, recs, loaded)
	if err != nil || res.Changed() {
		t.Fatalf("identical snapshot: res=%+v err=%v", res, err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no-op replace should not publish: %v", pub.events)
	}

	recs[0].Expense = core.Money{Cents: 0}
	recs = append(recs, core.DailyRecord{Date: core.NewDate(2024, 5, 2), Employee: "Former"})
	res, err = svc.ReplaceRecords(ctx, recs, loaded)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if res.Updated != 1 || res.Inserted != 1 || res.Deleted != 0 {
		t.Fatalf("res=%+v", res)
	}
	if len(pub.events) != 1 || pub.events[0].action != amqp.ActionResync {
		t.Fatalf("events=%v", pub.events)
	}
}

func TestEmployeeRoster(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	emp, err := svc.AddEmployee(ctx, "Ali")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddEmployee(ctx, "Ali"); !errors.Is(err, core.ErrDuplicateEmployee) {
		t.Fatalf("expected ErrDuplicateEmployee, got %v", err)
	}
	if _, err := svc.AddEmployee(ctx, " "); !errors.Is(err, core.ErrEmptyEmployeeName) {
		t.Fatalf("expected ErrEmptyEmployeeName, got %v", err)
	}
	if err := svc.DeleteEmployee(ctx, emp.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteEmployee(ctx, emp.ID); !errors.Is(err, core.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	roster, _ := svc.Employees(ctx)
	if len(roster) != 0 {
		t.Fatalf("roster=%v", roster)
	}
}

func TestClose(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		if err := (&LedgerService{}).Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes publisher", func(t *testing.T) {
		pub := &fakePublisher{}
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "c.db"))
		if err != nil {
			t.Fatal(err)
		}
		if err := NewLedgerService(repo, pub).Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !pub.closed {
			t.Fatal("publisher not closed")
		}
	})
}
