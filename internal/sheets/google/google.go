package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"caisse/internal/core"

	ports "caisse/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	dailySheet    string
	statsSheet    string
	journalSheet  string
}

// Ensure interface conformance
var (
	_ ports.DailySheetSource = (*Client)(nil)
	_ ports.InvoiceJournal   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE for auth
// Optional sheet names: GOOGLE_DAILY_SHEET_NAME (default "Feuilles"),
// GOOGLE_STATS_SHEET_NAME (default "Stats"),
// GOOGLE_JOURNAL_SHEET_NAME (default "Journal").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	daily := strings.TrimSpace(os.Getenv("GOOGLE_DAILY_SHEET_NAME"))
	if daily == "" {
		daily = "Feuilles"
	}
	stats := strings.TrimSpace(os.Getenv("GOOGLE_STATS_SHEET_NAME"))
	if stats == "" {
		stats = "Stats"
	}
	journal := strings.TrimSpace(os.Getenv("GOOGLE_JOURNAL_SHEET_NAME"))
	if journal == "" {
		journal = "Journal"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		dailySheet:    daily,
		statsSheet:    stats,
		journalSheet:  journal,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsInline := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))

	if credentialsInline == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case credentialsInline != "":
		credentialsJSON = []byte(credentialsInline)
	case credentialsFile != "":
		credentialsJSON, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// FetchDailySheets reads the daily-sheet tab and returns the rows whose
// date falls inside the range. Rows that fail to parse are skipped, not
// fatal: the register exports are hand-edited and occasionally dirty.
func (c *Client) FetchDailySheets(ctx context.Context, rng core.DateRange) ([]core.DailySheetRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	readRange := fmt.Sprintf("%s!A:R", c.dailySheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", readRange, err)
	}

	sheets, skipped := parseDailyRows(resp.Values, rng)
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unparseable daily-sheet rows",
			"sheet", c.dailySheet, "skipped", skipped)
	}
	return sheets, nil
}

// FetchPaymentStats reads the monthly summary tab. A month without a row
// yields nil, not an error.
func (c *Client) FetchPaymentStats(ctx context.Context, month string) (*core.PaymentStats, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	readRange := fmt.Sprintf("%s!A:J", c.statsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", readRange, err)
	}

	return parseStatsRows(resp.Values, month), nil
}

// AppendInvoice appends a settled invoice to the journal tab and returns
// the written range.
func (c *Client) AppendInvoice(ctx context.Context, inv core.InvoiceRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	// Find the next empty row by getting the sheet dimensions first
	rng := fmt.Sprintf("%s!A:A", c.journalSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", c.journalSheet, err)
	}

	nextRow := len(resp.Values) + 1

	date := inv.PaidDate
	if date.IsZero() {
		date = inv.ReceivedDate
	}
	dataRange := fmt.Sprintf("%s!A%d:H%d", c.journalSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		inv.ID,
		date.Format("2006-01-02"),
		inv.Label,
		inv.Amount.InexactFloat64(),
		string(inv.PaymentMethod),
		string(inv.Payer),
		string(inv.Category),
		string(inv.Status),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}
