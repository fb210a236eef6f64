package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"smartbudget/internal/core"
)

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Supermercado   DÍA ", "supermercado día"},
		{"Café, con-leche!!", "café con leche"},
		{"Pago #1234 (tarjeta)", "pago 1234 tarjeta"},
		{"ÑANDÚ_shop", "ñandú_shop"},
		{"e\u0301xito", "\u00e9xito"}, // decomposed accent is composed, not stripped
		{"", ""},
		{"$$$", ""},
	}
	for _, tc := range cases {
		if got := NormalizeText(tc.in); got != tc.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.50", 12.5, true},
		{"-12.50", 12.5, true},
		{"12,50", 12.5, true},
		{"$ 1.234,50", 1234.5, true},
		{"1,234.50", 1234.5, true},
		{"€7", 7, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseAmount(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		opts DateOptions
		want string
		ok   bool
	}{
		{"iso", "2025-03-09", DateOptions{}, "2025-03-09", true},
		{"iso with time", "2025-03-09 18:30:00", DateOptions{}, "2025-03-09", true},
		{"rfc3339", "2025-03-09T23:10:00Z", DateOptions{}, "2025-03-09", true},
		{"month first", "03/04/2025", DateOptions{}, "2025-03-04", true},
		{"day first", "03/04/2025", DateOptions{DayFirst: true}, "2025-04-03", true},
		{"swap when month overflows", "25/04/2025", DateOptions{}, "2025-04-25", true},
		{"two digit year", "1/2/25", DateOptions{DayFirst: true}, "2025-02-01", true},
		{"dashes", "15-01-2025", DateOptions{}, "2025-01-15", true},
		{"serial", "45658", DateOptions{}, "2025-01-01", true},
		{"impossible day", "31/02/2025", DateOptions{DayFirst: true}, "", false},
		{"text", "ayer", DateOptions{}, "", false},
		{"empty", "  ", DateOptions{}, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseDate(tc.in, tc.opts)
			if ok != tc.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			}
			if ok && got.Format("2006-01-02") != tc.want {
				t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
			}
		})
	}
}

func TestResolveMissingColumns(t *testing.T) {
	_, err := DefaultSchema(DateOptions{}).Resolve([]string{"Fecha", "Detalle"})
	var se *core.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Missing) != 2 {
		t.Fatalf("expected 2 missing fields, got %v", se.Missing)
	}
	msg := se.Error()
	for _, want := range []string{"concept", "amount", "description"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should mention %q", msg, want)
		}
	}
	if strings.Contains(strings.Join(se.Missing, ","), "date") {
		t.Errorf("date is present and must not be reported missing: %v", se.Missing)
	}
}

func TestResolveAliasesAndCasing(t *testing.T) {
	cols, err := DefaultSchema(DateOptions{}).Resolve([]string{" DATE ", "Concepto", "MONTO", "Descripción"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Columns{FieldDate: 0, FieldConcept: 1, FieldAmount: 2, FieldDescription: 3}
	for k, v := range want {
		if cols[k] != v {
			t.Errorf("column %s = %d, want %d", k, cols[k], v)
		}
	}
}

func TestNormalize(t *testing.T) {
	table := Table{
		Header: []string{"Fecha", "Concepto", "Monto"},
		Rows: [][]string{
			{"2025-02-10", "Farmacia", "-30"},
			{"2025-01-05", "Supermercado DÍA!", "120.5"},
			{"no es fecha", "Cine", "15"},
			{"2025-01-07", "Café", "0"},
			{"2025-01-08", "Café", "gratis"},
			{"2025-01-09", "¡¡!!", "10"},
			{"2025-01-06", "Transporte"}, // short row, amount missing
		},
	}

	txns, rep, err := Normalize(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d: %+v", len(txns), txns)
	}
	if rep.RowsRead != 7 || rep.Kept != 2 || rep.InvalidDate != 1 || rep.InvalidAmount != 3 || rep.EmptyConcept != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Dropped() != 5 {
		t.Fatalf("expected 5 dropped, got %d", rep.Dropped())
	}

	first := txns[0]
	if first.Concept != "supermercado día" || first.Description != "" {
		t.Fatalf("unexpected text normalization: %+v", first)
	}
	if first.MonthKey != "2025-01" || first.Year != 2025 || first.MonthNumber != 1 {
		t.Fatalf("unexpected derived columns: %+v", first)
	}
	if txns[1].Amount != 30 {
		t.Fatalf("negative amount should become positive, got %v", txns[1].Amount)
	}
	for _, tx := range txns {
		if err := tx.Validate(); err != nil {
			t.Fatalf("retained transaction invalid: %v", err)
		}
	}
}

func TestNormalizeSortsAscending(t *testing.T) {
	table := NewTable([][]string{
		{"date", "concept", "amount", "description"},
		{"2025-03-01", "c", "3", "tres"},
		{"2025-01-01", "a", "1", "uno"},
		{"2025-02-01", "b", "2", "dos"},
	})
	txns, _, err := Normalize(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(txns); i++ {
		if txns[i].Date.Before(txns[i-1].Date.Time) {
			t.Fatalf("transactions not sorted: %v before %v", txns[i-1].Date, txns[i].Date)
		}
	}
	if txns[0].Description != "uno" {
		t.Fatalf("description should be normalized and kept, got %q", txns[0].Description)
	}
}

func TestNormalizeSchemaErrorBeforeRows(t *testing.T) {
	table := Table{Header: []string{"when", "what"}, Rows: [][]string{{"2025-01-01", "x"}}}
	_, _, err := Normalize(table)
	var se *core.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Missing) != 3 {
		t.Fatalf("expected all three required fields missing, got %v", se.Missing)
	}
}

func TestNormalizeDayFirstSchema(t *testing.T) {
	table := NewTable([][]string{
		{"fecha", "concepto", "monto"},
		{"02/03/2025", "luz", "40"},
	})
	txns, _, err := NewNormalizer(DefaultSchema(DateOptions{DayFirst: true})).Normalize(table)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	if !txns[0].Date.Equal(want) {
		t.Fatalf("expected %v, got %v", want, txns[0].Date)
	}
}
