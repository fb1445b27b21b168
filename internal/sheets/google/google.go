package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"pawco/internal/core"
	applog "pawco/internal/log"
	ports "pawco/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors daily records into one worksheet, one row per record with
// the record ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	log           *applog.Logger
}

var _ ports.RecordMirror = (*Client)(nil)

// Options selects the spreadsheet and the service account used to reach it.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Records"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		log:           applog.Wrap(slog.Default(), applog.ComponentSheets),
	}
}

// newSheetsService resolves credentials from inline JSON, a key file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(opts.CredentialsJSON)
	credsFile := strings.TrimSpace(opts.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credsJSON != "":
		credentials = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentials = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	applog.Wrap(slog.Default(), applog.ComponentSheets).InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentials),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert overwrites the row holding rec.ID or appends a new one. An empty
// sheet gets the header row first.
func (c *Client) Upsert(ctx context.Context, rec core.DailyRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if rec.ID <= 0 {
		return fmt.Errorf("upsert record without id")
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read ids from %s: %w", c.sheetName, err)
	}

	values := [][]any{ports.Row(rec)}
	row := findRowByID(resp.Values, rec.ID)
	if row == 0 {
		row = len(resp.Values) + 1
		if len(resp.Values) == 0 {
			values = [][]any{headerRow(), ports.Row(rec)}
			row = 1
		}
	}

	target := fmt.Sprintf("%s!A%d", c.sheetName, row)
	if err := c.write(ctx, target, values); err != nil {
		return err
	}

	c.log.DebugContext(ctx, "Mirrored record to sheet",
		applog.FieldRecordID, rec.ID, applog.FieldOperation, applog.OpSync, "row", row, "sheet", c.sheetName)
	return nil
}

// ReplaceAll clears the worksheet and writes the header plus recs.
func (c *Client) ReplaceAll(ctx context.Context, recs []core.DailyRecord) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	clearRange := fmt.Sprintf("%s!A:L", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(recs)+1)
	values = append(values, headerRow())
	for _, r := range recs {
		values = append(values, ports.Row(r))
	}
	if err := c.write(ctx, fmt.Sprintf("%s!A1", c.sheetName), values); err != nil {
		return err
	}

	c.log.InfoContext(ctx, "Rewrote record sheet",
		applog.FieldOperation, applog.OpSync, "rows", len(recs), "sheet", c.sheetName)
	return nil
}

func (c *Client) write(ctx context.Context, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// findRowByID returns the 1-based row whose first cell equals id, or 0.
func findRowByID(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err == nil && v == id {
			return i + 1
		}
	}
	return 0
}
