package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"pawco/internal/core"
)

const (
	recordsTable   = "daily_records"
	employeesTable = "employees"
)

var recordColumns = []string{
	"id",
	"record_date",
	"pet_cash_cents",
	"pet_card_cents",
	"groom_cash_cents",
	"groom_card_cents",
	"expense_cents",
	"customer_count",
	"employee_name",
}

// psql builds SQLite statements with ? placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type SQLiteRepository struct {
	db *sql.DB
	// writeMu serializes every write so a bulk replace cannot interleave
	// with a single-row insert.
	writeMu sync.Mutex
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Records fetches daily records matching f. The zero filter returns every
// record ordered by date then id.
func (r *SQLiteRepository) Records(ctx context.Context, f core.RecordFilter) ([]core.DailyRecord, error) {
	q := psql.Select(recordColumns...).From(recordsTable)
	switch {
	case !f.Day.IsZero():
		q = q.Where(sq.Eq{"record_date": f.Day.String()})
	default:
		if !f.From.IsZero() {
			q = q.Where(sq.GtOrEq{"record_date": f.From.String()})
		}
		if !f.To.IsZero() {
			q = q.Where(sq.LtOrEq{"record_date": f.To.String()})
		}
	}
	if f.Employee != "" {
		q = q.Where(sq.Eq{"employee_name": f.Employee})
	}
	if f.NewestFirst {
		q = q.OrderBy("record_date DESC", "id DESC")
	} else {
		q = q.OrderBy("record_date ASC", "id ASC")
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Record fetches one record by id.
func (r *SQLiteRepository) Record(ctx context.Context, id int64) (core.DailyRecord, error) {
	query, args, err := psql.Select(recordColumns...).From(recordsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("build record query: %w", err)
	}
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.DailyRecord{}, fmt.Errorf("record %d: %w", id, core.ErrRecordNotFound)
	}
	return rec, err
}

// InsertRecord appends one record and returns its assigned id.
func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.DailyRecord) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("validate record: %w", err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	id, err := insertRecord(ctx, r.db, rec)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", id,
		"date", rec.Date.String(),
		"employee", rec.Employee,
		"gross_cents", rec.Gross().Cents,
		"customers", rec.Customers)

	return id, nil
}

// Employees returns the roster ordered by name.
func (r *SQLiteRepository) Employees(ctx context.Context) ([]core.Employee, error) {
	query, args, err := psql.Select("id", "name").From(employeesTable).OrderBy("name ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build employees query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []core.Employee
	for rows.Next() {
		var e core.Employee
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}

// EmployeeExists reports whether name is on the roster (case-sensitive).
func (r *SQLiteRepository) EmployeeExists(ctx context.Context, name string) (bool, error) {
	query, args, err := psql.Select("COUNT(1)").From(employeesTable).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build employee lookup: %w", err)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup employee: %w", err)
	}
	return n > 0, nil
}

// InsertEmployee adds a roster entry. Empty and duplicate names are rejected
// with core.ErrEmptyEmployeeName and core.ErrDuplicateEmployee.
func (r *SQLiteRepository) InsertEmployee(ctx context.Context, name string) (core.Employee, error) {
	name, err := core.NormalizeEmployeeName(name)
	if err != nil {
		return core.Employee{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	query, args, err := psql.Insert(employeesTable).Columns("name").Values(name).ToSql()
	if err != nil {
		return core.Employee{}, fmt.Errorf("build employee insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Employee{}, fmt.Errorf("insert employee %q: %w", name, core.ErrDuplicateEmployee)
		}
		return core.Employee{}, fmt.Errorf("insert employee: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Employee{}, fmt.Errorf("employee id: %w", err)
	}

	slog.InfoContext(ctx, "Employee added", "id", id, "name", name)
	return core.Employee{ID: id, Name: name}, nil
}

// DeleteEmployee removes exactly one roster entry. Records attributed to the
// employee are left untouched.
func (r *SQLiteRepository) DeleteEmployee(ctx context.Context, id int64) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	query, args, err := psql.Delete(employeesTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build employee delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete employee rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete employee %d: %w", id, core.ErrEmployeeNotFound)
	}

	slog.InfoContext(ctx, "Employee deleted", "id", id)
	return nil
}

// ReplaceAllRecords applies an edited copy of the records table.
//
// loaded lists the ids the editor was showing when snapshot was taken. Rows
// whose id exists are updated when they differ, rows with id 0 or an id no
// longer present are inserted as new rows, and loaded ids missing from the
// snapshot are deleted. Rows stored after the editor was loaded are never in
// loaded, so they survive. Everything runs in one transaction under the write
// lock: on any error nothing changes.
func (r *SQLiteRepository) ReplaceAllRecords(ctx context.Context, snapshot []core.DailyRecord, loaded []int64) (core.ReplaceResult, error) {
	var res core.ReplaceResult

	seen := make(map[int64]struct{}, len(snapshot))
	for i, rec := range snapshot {
		if err := rec.Validate(); err != nil {
			return res, fmt.Errorf("row %d: %w", i+1, err)
		}
		if rec.ID == 0 {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			return res, fmt.Errorf("row %d: %w %d", i+1, core.ErrDuplicateRecordID, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	current, err := currentRecords(ctx, tx)
	if err != nil {
		return res, err
	}

	keep := make(map[int64]struct{}, len(snapshot))
	for _, rec := range snapshot {
		old, exists := current[rec.ID]
		if rec.ID == 0 || !exists {
			if _, err := insertRecord(ctx, tx, rec); err != nil {
				return core.ReplaceResult{}, err
			}
			res.Inserted++
			continue
		}
		keep[rec.ID] = struct{}{}
		if sameRecord(old, rec) {
			continue
		}
		if err := updateRecord(ctx, tx, rec); err != nil {
			return core.ReplaceResult{}, err
		}
		res.Updated++
	}

	var stale []int64
	for _, id := range loaded {
		if _, ok := current[id]; !ok {
			continue
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
			keep[id] = struct{}{}
		}
	}
	if len(stale) > 0 {
		query, args, err := psql.Delete(recordsTable).Where(sq.Eq{"id": stale}).ToSql()
		if err != nil {
			return core.ReplaceResult{}, fmt.Errorf("build records delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return core.ReplaceResult{}, fmt.Errorf("delete records: %w", err)
		}
		res.Deleted = len(stale)
	}

	if err := tx.Commit(); err != nil {
		return core.ReplaceResult{}, fmt.Errorf("commit replace: %w", err)
	}

	slog.InfoContext(ctx, "Records replaced",
		"rows", len(snapshot),
		"inserted", res.Inserted,
		"updated", res.Updated,
		"deleted", res.Deleted)

	return res, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func insertRecord(ctx context.Context, db execer, rec core.DailyRecord) (int64, error) {
	query, args, err := psql.Insert(recordsTable).
		Columns(recordColumns[1:]...).
		Values(
			rec.Date.String(),
			rec.PetCash.Cents,
			rec.PetCard.Cents,
			rec.GroomCash.Cents,
			rec.GroomCard.Cents,
			rec.Expense.Cents,
			rec.Customers,
			rec.Employee,
		).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build record insert: %w", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record id: %w", err)
	}
	return id, nil
}

func updateRecord(ctx context.Context, db execer, rec core.DailyRecord) error {
	query, args, err := psql.Update(recordsTable).
		SetMap(map[string]any{
			"record_date":      rec.Date.String(),
			"pet_cash_cents":   rec.PetCash.Cents,
			"pet_card_cents":   rec.PetCard.Cents,
			"groom_cash_cents": rec.GroomCash.Cents,
			"groom_card_cents": rec.GroomCard.Cents,
			"expense_cents":    rec.Expense.Cents,
			"customer_count":   rec.Customers,
			"employee_name":    rec.Employee,
			"updated_at":       sq.Expr("CURRENT_TIMESTAMP"),
		}).
		Where(sq.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record update: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update record %d: %w", rec.ID, err)
	}
	return nil
}

func currentRecords(ctx context.Context, tx *sql.Tx) (map[int64]core.DailyRecord, error) {
	query, args, err := psql.Select(recordColumns...).From(recordsTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot query: %w", err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]core.DailyRecord)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return out, nil
}

func scanRecord(row rowScanner) (core.DailyRecord, error) {
	var (
		rec  core.DailyRecord
		date string
	)
	err := row.Scan(
		&rec.ID,
		&date,
		&rec.PetCash.Cents,
		&rec.PetCard.Cents,
		&rec.GroomCash.Cents,
		&rec.GroomCard.Cents,
		&rec.Expense.Cents,
		&rec.Customers,
		&rec.Employee,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.DailyRecord{}, err
		}
		return core.DailyRecord{}, fmt.Errorf("scan record: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.DailyRecord{}, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	rec.Date = d
	return rec, nil
}

func sameRecord(a, b core.DailyRecord) bool {
	return a.ID == b.ID &&
		a.Date.Equal(b.Date) &&
		a.PetCash == b.PetCash &&
		a.PetCard == b.PetCard &&
		a.GroomCash == b.GroomCash &&
		a.GroomCard == b.GroomCard &&
		a.Expense == b.Expense &&
		a.Customers == b.Customers &&
		a.Employee == b.Employee
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
