// Package http provides HTTP server and handler implementations.
//
// This file implements ledger upload parsing and query parameter
// validation shared by the analysis handlers.

package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/anomaly"
	"smartbudget/internal/ledger"
	"smartbudget/internal/sheets/file"
)

const (
	uploadField = "file"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxTopK     = 50
)

var (
	ErrEmptyUpload    = errors.New("empty upload")
	ErrUploadTooLarge = errors.New("upload too large")
	ErrNotConfigured  = errors.New("analysis service not configured")
)

// UploadError reports a ledger upload that could not be read.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "invalid upload: " + e.Err.Error() }

func (e *UploadError) Unwrap() error { return e.Err }

// ParamError reports an invalid query parameter.
type ParamError struct {
	Name   string
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Name, e.Value, e.Reason)
}

// Upload is a ledger received in a request with the name it came under.
type Upload struct {
	Name  string
	Table ledger.Table
}

// ReadLedgerUpload reads a ledger from a multipart "file" field or from the
// raw request body, bounded by maxBytes. Workbooks are recognized by file
// extension or Content-Type and read from the sheet named by ?sheet=.
func ReadLedgerUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	sheet := sanitizeInput(r.URL.Query().Get("sheet"))

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(r, maxBytes, sheet)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return Upload{}, uploadReadError(err)
	}
	format := file.FormatCSV
	if mediaType == xlsxMIME {
		format = file.FormatXLSX
	}
	return parseUpload("body", data, format, sheet)
}

func readMultipart(r *http.Request, maxBytes int64, sheet string) (Upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return Upload{}, uploadReadError(err)
	}
	defer r.MultipartForm.RemoveAll()

	f, header, err := r.FormFile(uploadField)
	if err != nil {
		return Upload{}, &UploadError{Err: fmt.Errorf("missing %q field: %w", uploadField, err)}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, uploadReadError(err)
	}
	format, err := file.DetectFormat(header.Filename)
	if err != nil {
		// Unknown extensions are tried as delimited text.
		format = file.FormatCSV
	}
	return parseUpload(header.Filename, data, format, sheet)
}

func parseUpload(name string, data []byte, format file.Format, sheet string) (Upload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Upload{}, ErrEmptyUpload
	}
	var (
		t   ledger.Table
		err error
	)
	if format == file.FormatXLSX {
		t, err = file.ReadXLSX(bytes.NewReader(data), sheet)
	} else {
		t, err = file.ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return Upload{}, &UploadError{Err: err}
	}
	return Upload{Name: name, Table: t}, nil
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, tooLarge.Limit)
	}
	return &UploadError{Err: err}
}

// ParseGroup reads ?group=daily|weekly|monthly, monthly by default.
func ParseGroup(query url.Values) (aggregate.Granularity, error) {
	raw := strings.TrimSpace(query.Get("group"))
	g, err := aggregate.ParseGranularity(raw)
	if err != nil {
		return "", &ParamError{Name: "group", Value: raw, Reason: "must be daily, weekly or monthly"}
	}
	return g, nil
}

// ParseContamination reads ?contamination=, 0 when absent.
func ParseContamination(query url.Values) (float64, error) {
	raw := strings.TrimSpace(query.Get("contamination"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParamError{Name: "contamination", Value: raw, Reason: "must be a number"}
	}
	if err := (anomaly.Config{Contamination: v}).Validate(); err != nil {
		return 0, &ParamError{Name: "contamination", Value: raw, Reason: "must be in (0, 0.5]"}
	}
	return v, nil
}

// ParseTopK reads ?top_k=, 0 when absent.
func ParseTopK(query url.Values) (int, error) {
	raw := strings.TrimSpace(query.Get("top_k"))
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil || k < 1 || k > maxTopK {
		return 0, &ParamError{Name: "top_k", Value: raw, Reason: fmt.Sprintf("must be an integer between 1 and %d", maxTopK)}
	}
	return k, nil
}
