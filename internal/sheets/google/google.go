package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"smartbudget/internal/ledger"
	ports "smartbudget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheet is the sheet read when none is configured.
const DefaultSheet = "Gastos"

// Config selects the spreadsheet range holding the ledger.
type Config struct {
	SpreadsheetID string
	// Sheet is the tab name; a leading year is added unless present.
	Sheet string
	// Range is an A1 range inside the sheet, e.g. "A1:D". Empty reads the whole sheet.
	Range string
	// Year prefixes the sheet name when > 0.
	Year int
	// CredentialsJSON or CredentialsFile hold service account credentials.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	rng           string
}

// Ensure interface conformance
var (
	_ ports.LedgerReader = (*Client)(nil)
	_ ports.LedgerWriter = (*Client)(nil)
)

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME, GOOGLE_SHEET_RANGE,
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE and GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	cfg := Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		Sheet:           strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		Range:           strings.TrimSpace(os.Getenv("GOOGLE_SHEET_RANGE")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		cfg.CredentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return cfg
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg), nil
}

func newClient(svc *gsheet.Service, cfg Config) *Client {
	sheet := cfg.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	if cfg.Year > 0 {
		sheet = yearPrefixedName(sheet, cfg.Year)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: sheet, rng: cfg.Range}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.CredentialsJSON != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// A1 returns the range read and written by the client.
func (c *Client) A1() string {
	if c.rng == "" {
		return quoteSheet(c.sheet)
	}
	return quoteSheet(c.sheet) + "!" + c.rng
}

// ReadLedger reads the configured range; the first row is the header.
func (c *Client) ReadLedger(ctx context.Context) (ledger.Table, error) {
	if c.svc == nil {
		return ledger.Table{}, errors.New("sheets service not initialized")
	}
	rng := c.A1()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return ledger.Table{}, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseValues(resp.Values), nil
}

// WriteLedger overwrites the configured range with t, header first.
func (c *Client) WriteLedger(ctx context.Context, t ledger.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := c.A1()
	vr := &gsheet.ValueRange{Values: toValues(t)}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
