package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"pawco/internal/core"
	ports "pawco/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheet is a minimal Sheets values API over a single worksheet.
type fakeSheet struct {
	mu     sync.Mutex
	rows   [][]any
	writes []string
	clears int
}

var startRow = regexp.MustCompile(`!A(\d+)$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := strings.Index(r.URL.Path, "/values/")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rng := r.URL.Path[idx+len("/values/"):]

	switch {
	case r.Method == http.MethodGet:
		col := make([][]any, 0, len(f.rows))
		for _, row := range f.rows {
			col = append(col, row[:1])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": col})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		f.rows = nil
		f.clears++
		_ = json.NewEncoder(w).Encode(map[string]any{"clearedRange": strings.TrimSuffix(rng, ":clear")})

	case r.Method == http.MethodPut:
		if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		m := startRow.FindStringSubmatch(rng)
		if m == nil {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		start, _ := strconv.Atoi(m[1])
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i, row := range body.Values {
			pos := start - 1 + i
			for len(f.rows) <= pos {
				f.rows = append(f.rows, []any{""})
			}
			f.rows[pos] = row
		}
		f.writes = append(f.writes, rng)
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng, "updatedRows": len(body.Values)})

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Records"), fake
}

func record(id int64, employee string, petCash int64) core.DailyRecord {
	return core.DailyRecord{
		ID:        id,
		Date:      core.NewDate(2024, 5, 1),
		PetCash:   core.Money{Cents: petCash * 100},
		GroomCard: core.Money{Cents: 20000},
		Expense:   core.Money{Cents: 8000},
		Customers: 10,
		Employee:  employee,
	}
}

func TestUpsertWritesHeaderThenAppendsAndUpdates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, record(7, "Ayşe", 100)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if len(fake.rows) != 2 || fake.rows[0][0] != "ID" {
		t.Fatalf("expected header plus one row, got %v", fake.rows)
	}

	if err := c.Upsert(ctx, record(8, "Ali", 50)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if len(fake.rows) != 3 || fake.writes[1] != "Records!A3" {
		t.Fatalf("expected append at row 3, writes=%v rows=%v", fake.writes, fake.rows)
	}

	if err := c.Upsert(ctx, record(7, "Ayşe", 300)); err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if len(fake.rows) != 3 || fake.writes[2] != "Records!A2" {
		t.Fatalf("expected in-place update of row 2, writes=%v", fake.writes)
	}
	// Pet Cash column after the update.
	if got := fake.rows[1][4]; got != float64(300) {
		t.Fatalf("pet cash = %v", got)
	}
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	c, fake := newTestClient(t)

	bad := record(1, "Ali", 10)
	bad.PetCard = core.Money{Cents: -5}
	if err := c.Upsert(context.Background(), bad); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if err := c.Upsert(context.Background(), record(0, "Ali", 10)); err == nil {
		t.Fatal("expected error for record without id")
	}
	if len(fake.writes) != 0 {
		t.Fatalf("nothing should be written, got %v", fake.writes)
	}
}

func TestReplaceAllRewritesSheet(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_ = c.Upsert(ctx, record(1, "Old", 1))
	if err := c.ReplaceAll(ctx, []core.DailyRecord{record(5, "A", 10), record(6, "B", 20)}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if fake.clears != 1 {
		t.Fatalf("expected one clear, got %d", fake.clears)
	}
	if len(fake.rows) != 3 || fake.rows[1][0] != float64(5) || fake.rows[2][3] != "B" {
		t.Fatalf("rows=%v", fake.rows)
	}

	if err := c.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("replace empty: %v", err)
	}
	if len(fake.rows) != 1 {
		t.Fatalf("expected only the header, got %v", fake.rows)
	}
}

func TestNilServiceErrors(t *testing.T) {
	c := &Client{spreadsheetID: "x", sheetName: "Records"}
	if err := c.Upsert(context.Background(), record(1, "A", 1)); err == nil {
		t.Fatal("expected error without service")
	}
	if err := c.ReplaceAll(context.Background(), nil); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	if _, err := New(context.Background(), Options{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := New(context.Background(), Options{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = New(context.Background(), Options{SpreadsheetID: "id", CredentialsFile: "/non/existent.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindRowByID(t *testing.T) {
	values := [][]any{{"ID"}, {"3"}, {}, {float64(12)}, {" 44 "}}
	tests := []struct {
		id   int64
		want int
	}{
		{3, 2},
		{12, 4},
		{44, 5},
		{99, 0},
	}
	for _, tt := range tests {
		if got := findRowByID(values, tt.id); got != tt.want {
			t.Errorf("findRowByID(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRowLayout(t *testing.T) {
	row := ports.Row(record(7, "Ayşe", 100))
	if len(row) != len(ports.Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(ports.Header))
	}
	if row[2] != "Wednesday" || row[3] != "Ayşe" {
		t.Fatalf("row=%v", row)
	}
	if row[10] != float64(300) || row[11] != float64(220) {
		t.Fatalf("gross/net = %v/%v", row[10], row[11])
	}
}
