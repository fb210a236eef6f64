package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"smartbudget/internal/aggregate"
)

func TestParseGroup(t *testing.T) {
	tests := []struct {
		raw     string
		want    aggregate.Granularity
		wantErr bool
	}{
		{"", aggregate.Monthly, false},
		{"daily", aggregate.Daily, false},
		{"weekly", aggregate.Weekly, false},
		{"yearly", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseGroup(url.Values{"group": {tt.raw}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGroup(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseGroup(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseContamination(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"0.1", 0.1, false},
		{"0.5", 0.5, false},
		{"0", 0, true},
		{"0.6", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseContamination(url.Values{"contamination": {tt.raw}})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseContamination(%q) error = %v", tt.raw, err)
			}
			var pe *ParamError
			if err != nil && !errors.As(err, &pe) {
				t.Fatalf("expected ParamError, got %T", err)
			}
			if got != tt.want {
				t.Fatalf("ParseContamination(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseTopK(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"3", 3, false},
		{"0", 0, true},
		{"51", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseTopK(url.Values{"top_k": {tt.raw}})
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTopK(%q) = %d, %v", tt.raw, got, err)
		}
	}
}

func TestReadLedgerUpload(t *testing.T) {
	t.Run("raw semicolon body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("fecha;concepto;monto\n01/02/2025;luz;10\n"))
		up, err := ReadLedgerUpload(httptest.NewRecorder(), req, 1<<20)
		if err != nil {
			t.Fatal(err)
		}
		if up.Name != "body" || up.Table.Len() != 1 || up.Table.Header[1] != "concepto" {
			t.Fatalf("unexpected upload %+v", up)
		}
	})

	t.Run("multipart without file field", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("other", "x")
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		_, err := ReadLedgerUpload(httptest.NewRecorder(), req, 1<<20)
		var ue *UploadError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UploadError, got %v", err)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a,b\n", 100)))
		_, err := ReadLedgerUpload(httptest.NewRecorder(), req, 16)
		if !errors.Is(err, ErrUploadTooLarge) {
			t.Fatalf("expected ErrUploadTooLarge, got %v", err)
		}
	})

	t.Run("corrupt workbook", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not a zip"))
		req.Header.Set("Content-Type", xlsxMIME)
		_, err := ReadLedgerUpload(httptest.NewRecorder(), req, 1<<20)
		var ue *UploadError
		if !errors.As(err, &ue) {
			t.Fatalf("expected UploadError, got %v", err)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  Gas\x00tos\t "); got != "Gastos" {
		t.Fatalf("sanitizeInput = %q", got)
	}
}
