package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pawco/internal/amqp"
	"pawco/internal/core"
	applog "pawco/internal/log"
	"pawco/internal/sheets"
)

// RecordSource is the read side of the ledger the worker mirrors from.
type RecordSource interface {
	Record(ctx context.Context, id int64) (core.DailyRecord, error)
	Records(ctx context.Context, f core.RecordFilter) ([]core.DailyRecord, error)
}

// SyncWorker copies stored records into a mirror in response to sync messages.
type SyncWorker struct {
	source RecordSource
	mirror sheets.RecordMirror
	log    *applog.Logger
}

func NewSyncWorker(source RecordSource, mirror sheets.RecordMirror) *SyncWorker {
	return &SyncWorker{
		source: source,
		mirror: mirror,
		log:    applog.Wrap(slog.Default(), applog.ComponentWorker),
	}
}

// HandleSyncMessage processes a single record sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	w.log.InfoContext(ctx, "Processing sync message",
		applog.FieldMessageID, msg.MessageID,
		applog.FieldOperation, msg.Action,
		applog.FieldRecordID, msg.RecordID)

	switch msg.Action {
	case amqp.ActionUpsert:
		return w.syncRecord(ctx, msg.RecordID)
	case amqp.ActionResync:
		return w.Resync(ctx)
	default:
		return fmt.Errorf("unknown sync action %q", msg.Action)
	}
}

func (w *SyncWorker) syncRecord(ctx context.Context, id int64) error {
	rec, err := w.source.Record(ctx, id)
	if errors.Is(err, core.ErrRecordNotFound) {
		// Removed by a later bulk replace; the resync that followed it covers the mirror.
		w.log.WarnContext(ctx, "Record no longer exists, skipping",
			applog.FieldRecordID, id, applog.FieldErrorType, applog.ErrorTypeNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}

	if err := w.mirror.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("mirror record %d: %w", id, err)
	}

	w.log.InfoContext(ctx, "Successfully synced record",
		applog.FieldRecordID, id,
		applog.FieldDate, rec.Date.String(),
		applog.FieldEmployee, rec.Employee,
		applog.FieldGross, rec.Gross().Cents)
	return nil
}

// Resync rewrites the mirror from the full ledger.
func (w *SyncWorker) Resync(ctx context.Context) error {
	recs, err := w.source.Records(ctx, core.RecordFilter{})
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, recs); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	w.log.InfoContext(ctx, "Mirror resynced", applog.FieldOperation, applog.OpSync, "records", len(recs))
	return nil
}

// StartupSyncCheck rebuilds the mirror when the worker starts, recovering
// from messages missed while it was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	w.log.InfoContext(ctx, "Performing startup sync check", applog.FieldOperation, applog.OpStartup)
	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("startup resync: %w", err)
	}
	return nil
}
