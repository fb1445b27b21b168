package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pawco/internal/amqp"
	"pawco/internal/core"
	applog "pawco/internal/log"
	"pawco/internal/storage"
)

// Publisher announces stored changes to the sync worker.
type Publisher interface {
	PublishRecordSync(ctx context.Context, action string, recordID int64) error
	Close() error
}

// LedgerService orchestrates ledger writes across SQLite and AMQP. Storage is
// the source of truth; publishing is best effort and never fails a write.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher
	log       *applog.StructuredLogger
}

// NewLedgerService wires the repository and an optional publisher (nil
// disables sync events).
func NewLedgerService(storage *storage.SQLiteRepository, publisher Publisher) *LedgerService {
	return &LedgerService{
		storage:   storage,
		publisher: publisher,
		log:       applog.NewStructuredLogger(applog.Wrap(slog.Default(), applog.ComponentLedger)),
	}
}

// Ping checks the database.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Records fetches records matching f.
func (s *LedgerService) Records(ctx context.Context, f core.RecordFilter) ([]core.DailyRecord, error) {
	return s.storage.Records(ctx, f)
}

// Employees returns the roster.
func (s *LedgerService) Employees(ctx context.Context) ([]core.Employee, error) {
	return s.storage.Employees(ctx)
}

// AddEmployee appends name to the roster.
func (s *LedgerService) AddEmployee(ctx context.Context, name string) (core.Employee, error) {
	return s.storage.InsertEmployee(ctx, name)
}

// DeleteEmployee removes one roster entry; records keep the name.
func (s *LedgerService) DeleteEmployee(ctx context.Context, id int64) error {
	return s.storage.DeleteEmployee(ctx, id)
}

// CreateRecord stores a new data-entry record and announces it.
//
// Entry is refused while the roster is empty, and the employee must be a
// current roster member.
func (s *LedgerService) CreateRecord(ctx context.Context, rec core.DailyRecord) (int64, error) {
	roster, err := s.storage.Employees(ctx)
	if err != nil {
		return 0, fmt.Errorf("load roster: %w", err)
	}
	if len(roster) == 0 {
		return 0, core.ErrEmptyRoster
	}

	rec.ID = 0
	rec.Employee = strings.TrimSpace(rec.Employee)
	if err := rec.ValidateEntry(); err != nil {
		return 0, err
	}
	if !onRoster(roster, rec.Employee) {
		return 0, fmt.Errorf("%q: %w", rec.Employee, core.ErrUnknownEmployee)
	}

	id, err := s.storage.InsertRecord(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("save record: %w", err)
	}
	s.log.LogRecordCreated(ctx, id, rec.Date.String(), rec.Employee, rec.Gross().Cents, rec.Customers)

	s.publish(ctx, amqp.ActionUpsert, id)
	return id, nil
}

// ReplaceRecords applies the bulk editor's snapshot (deleting only ids in
// loaded) and asks the worker for a full resync when anything changed.
func (s *LedgerService) ReplaceRecords(ctx context.Context, snapshot []core.DailyRecord, loaded []int64) (core.ReplaceResult, error) {
	res, err := s.storage.ReplaceAllRecords(ctx, snapshot, loaded)
	if err != nil {
		return res, fmt.Errorf("replace records: %w", err)
	}
	s.log.LogRecordsReplaced(ctx, res.Inserted, res.Updated, res.Deleted)

	if res.Changed() {
		s.publish(ctx, amqp.ActionResync, 0)
	}
	return res, nil
}

func (s *LedgerService) publish(ctx context.Context, action string, id int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "action", action, "record_id", id)
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, action, id); err != nil {
		s.log.LogError(ctx, "Failed to publish sync message", err, applog.ComponentAMQP, applog.OpSync,
			applog.NewFields().WithRecord(id, "", "", 0, 0).WithErrorType(applog.ErrorTypeNetwork))
	}
}

func onRoster(roster []core.Employee, name string) bool {
	for _, e := range roster {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Close closes both storage and AMQP connections.
func (s *LedgerService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %w", errors.Join(errs...))
	}
	return nil
}
