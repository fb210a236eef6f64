package google

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"smartbudget/internal/ledger"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsJSON: "{}"})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	b, err := credentials(Config{CredentialsFile: path})
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Fatalf("credentials = %s, %v", b, err)
	}
	if _, err := credentials(Config{CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", " abc ")
	t.Setenv("GOOGLE_SHEET_NAME", "Gastos")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/sa.json")

	cfg := ConfigFromEnv()
	if cfg.SpreadsheetID != "abc" || cfg.Sheet != "Gastos" || cfg.CredentialsFile != "/etc/sa.json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Gastos", 2025, "2025 Gastos"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestA1Range(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{}, "Gastos"},
		{Config{Sheet: "Gastos", Range: "A1:D"}, "Gastos!A1:D"},
		{Config{Sheet: "Gastos", Year: 2025}, "'2025 Gastos'"},
		{Config{Sheet: "Juan's", Range: "A:D"}, "'Juan''s'!A:D"},
	}
	for _, tt := range tests {
		if got := newClient(nil, tt.cfg).A1(); got != tt.want {
			t.Errorf("A1() for %+v = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestReadLedger_NoService(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "id"})
	if _, err := c.ReadLedger(context.Background()); err == nil {
		t.Fatal("expected error without a service")
	}
	if err := c.WriteLedger(context.Background(), ledger.Table{}); err == nil {
		t.Fatal("expected error without a service")
	}
}

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"Fecha", "Concepto", "Monto"},
		{"2025-01-05", "Super", 1234.5},
		{45658.0, "Luz", 30.0},
		{"2025-01-07", nil, "12,5"},
		{"", "", ""},
		{},
	}
	got := parseValues(values)
	want := ledger.Table{
		Header: []string{"Fecha", "Concepto", "Monto"},
		Rows: [][]string{
			{"2025-01-05", "Super", "1234.5"},
			{"45658", "Luz", "30"},
			{"2025-01-07", "", "12,5"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseValues = %#v, want %#v", got, want)
	}

	back := toValues(got)
	if len(back) != 4 || back[0][0] != "Fecha" {
		t.Fatalf("unexpected values %#v", back)
	}
}
