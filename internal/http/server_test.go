package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/middleware/ratelimit"
	"smartbudget/internal/services"
	"smartbudget/internal/sheets/file"
)

var concepts = []string{"supermercado coto", "nafta ypf", "farmacia central", "cine hoyts"}

func ledgerRows(months int) [][]string {
	rows := [][]string{{"Fecha", "Concepto", "Monto", "Descripción"}}
	for m := 0; m < months; m++ {
		for d := 1; d <= 20; d++ {
			c := concepts[(m+d)%len(concepts)]
			rows = append(rows, []string{
				fmt.Sprintf("2025-%02d-%02d", m+1, d),
				c,
				fmt.Sprintf("%d.50", 10+(m*7+d*3)%40),
				"Gasto en " + c,
			})
		}
	}
	return rows
}

func ledgerCSV(months int) string {
	var b bytes.Buffer
	if err := file.WriteCSV(&b, ledger.NewTable(ledgerRows(months))); err != nil {
		panic(err)
	}
	return b.String()
}

func newTestServer(t *testing.T, opts ServerOptions) *Server {
	t.Helper()
	svcOpts := services.DefaultOptions()
	svcOpts.Forecast.Trees = 20
	srv := NewServer(":0", services.NewAnalysisService(svcOpts, log.Discard()), opts, log.Discard())
	t.Cleanup(func() {
		srv.rateLimiter.Stop()
		srv.caches.Stop()
	})
	return srv
}

func do(srv *Server, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHealthReadyAndSchema(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/schema"} {
		rr := do(srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}

	schema := decode(t, do(srv, http.MethodGet, "/api/schema", "", nil))
	fields := schema["fields"].([]any)
	if len(fields) != 4 {
		t.Fatalf("expected 4 schema fields, got %v", fields)
	}
	first := fields[0].(map[string]any)
	if first["name"] != ledger.FieldDate || first["required"] != true {
		t.Fatalf("unexpected first field %v", first)
	}

	if !strings.Contains(do(srv, http.MethodGet, "/metrics", "", nil).Body.String(), "http_requests_total") {
		t.Fatal("metrics missing request counter")
	}
}

func TestServerWithoutAnalyzer(t *testing.T) {
	srv := NewServer(":0", nil, ServerOptions{}, log.Discard())
	t.Cleanup(func() {
		srv.rateLimiter.Stop()
		srv.caches.Stop()
	})

	rr := do(srv, http.MethodGet, "/api/schema", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("schema status=%d body=%s", rr.Code, rr.Body.String())
	}
	if decode(t, rr)["day_first"] != false {
		t.Fatalf("expected default date options, got %s", rr.Body.String())
	}

	for _, path := range []string{"/readyz", "/api/analyze"} {
		method := http.MethodGet
		if path == "/api/analyze" {
			method = http.MethodPost
		}
		rr := do(srv, method, path, "text/csv", []byte(ledgerCSV(3)))
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status=%d, want 503", path, rr.Code)
		}
	}
}

func TestReadyReportsSourceFailure(t *testing.T) {
	srv := newTestServer(t, ServerOptions{Ready: func(context.Context) error { return errors.New("sheets unreachable") }})
	rr := do(srv, http.MethodGet, "/readyz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode(t, rr)
	checks := body["checks"].(map[string]any)
	if !strings.Contains(checks["source"].(string), "sheets unreachable") {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestAnalyzeRawCSV(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	rr := do(srv, http.MethodPost, "/api/analyze?group=weekly", "text/csv", []byte(ledgerCSV(4)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["group"] != "weekly" || body["source"] != "body" {
		t.Fatalf("group=%v source=%v", body["group"], body["source"])
	}
	if len(body["transactions"].([]any)) != 80 {
		t.Fatalf("expected 80 transactions, got %d", len(body["transactions"].([]any)))
	}
	if body["forecast"] == nil {
		t.Fatalf("expected a forecast, got error %v", body["forecast_error"])
	}
	spend := body["spend"].([]any)
	if len(spend) == 0 || !strings.Contains(spend[0].(map[string]any)["period"].(string), "-W") {
		t.Fatalf("expected weekly periods, got %v", spend)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestAnalyzeMultipartShortHistory(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "gastos.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(ledgerCSV(1)))
	_ = mw.Close()

	srv := newTestServer(t, ServerOptions{})
	rr := do(srv, http.MethodPost, "/api/analyze", mw.FormDataContentType(), body.Bytes())
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	out := decode(t, rr)
	if out["source"] != "gastos.csv" || out["group"] != "monthly" {
		t.Fatalf("source=%v group=%v", out["source"], out["group"])
	}
	if _, ok := out["forecast"]; ok {
		t.Fatal("short history must not produce a forecast")
	}
	if !strings.Contains(out["forecast_error"].(string), "insufficient history") {
		t.Fatalf("forecast_error=%v", out["forecast_error"])
	}
}

func TestAnalyzeXLSXBody(t *testing.T) {
	var buf bytes.Buffer
	if err := file.WriteXLSX(&buf, ledger.NewTable(ledgerRows(2)), "Gastos"); err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, ServerOptions{})
	rr := do(srv, http.MethodPost, "/api/analyze?sheet=Gastos", xlsxMIME, buf.Bytes())
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if n := len(decode(t, rr)["transactions"].([]any)); n != 40 {
		t.Fatalf("expected 40 transactions, got %d", n)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		maxUpload  int64
		wantStatus int
		wantError  string
	}{
		{"missing columns", http.MethodPost, "/api/analyze", "Fecha,Monto\n2025-01-01,10\n", 0, http.StatusUnprocessableEntity, "missing required columns"},
		{"empty body", http.MethodPost, "/api/analyze", "  ", 0, http.StatusBadRequest, "empty upload"},
		{"bad group", http.MethodPost, "/api/analyze?group=yearly", ledgerCSV(1), 0, http.StatusBadRequest, "invalid group"},
		{"too large", http.MethodPost, "/api/analyze", ledgerCSV(3), 64, http.StatusRequestEntityTooLarge, "upload too large"},
		{"wrong method", http.MethodGet, "/api/analyze", "", 0, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, ServerOptions{MaxUploadBytes: tt.maxUpload})
			rr := do(srv, tt.method, tt.target, "text/csv", []byte(tt.body))
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantError == "" {
				return
			}
			body := decode(t, rr)
			if !strings.Contains(body["error"].(string), tt.wantError) {
				t.Fatalf("error=%v want %q", body["error"], tt.wantError)
			}
			if tt.wantStatus == http.StatusUnprocessableEntity && len(body["missing"].([]any)) != 1 {
				t.Fatalf("missing=%v", body["missing"])
			}
		})
	}
}

func TestAnomaliesEndpoint(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	rr := do(srv, http.MethodPost, "/api/anomalies?contamination=0.1", "text/csv", []byte(ledgerCSV(2)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["contamination"] != 0.1 || body["threshold"] == nil {
		t.Fatalf("contamination=%v threshold=%v", body["contamination"], body["threshold"])
	}
	if len(body["days"].([]any)) != 40 {
		t.Fatalf("expected 40 days, got %d", len(body["days"].([]any)))
	}
	if len(body["anomalies"].([]any)) == 0 {
		t.Fatal("expected some flagged days")
	}

	rr = do(srv, http.MethodPost, "/api/anomalies?contamination=0.9", "text/csv", []byte(ledgerCSV(2)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out of range contamination status=%d", rr.Code)
	}
}

func TestTipsEndpoint(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	rr := do(srv, http.MethodPost, "/api/tips?top_k=2", "text/csv", []byte(ledgerCSV(3)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	tips := body["tips"].([]any)
	if len(tips) == 0 || len(tips) > 2 {
		t.Fatalf("tips=%v", tips)
	}
	if len(body["advanced_tips"].([]any)) == 0 {
		t.Fatal("expected advanced tips")
	}

	if rr := do(srv, http.MethodPost, "/api/tips?top_k=abc", "text/csv", []byte(ledgerCSV(3))); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad top_k status=%d", rr.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	tests := []struct {
		path     string
		filename string
		header   string
	}{
		{"/api/export/transactions.csv", "gastos_limpios.csv", "fecha,concepto,descripcion,monto"},
		{"/api/export/pivot.csv", "resumen_mensual.csv", "mes,"},
		{"/api/export/daily.csv", "gasto_diario.csv", "fecha,monto,score,anomalia"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rr := do(srv, http.MethodPost, tt.path, "text/csv", []byte(ledgerCSV(2)))
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Header().Get("Content-Disposition"), tt.filename) {
				t.Fatalf("Content-Disposition=%q", rr.Header().Get("Content-Disposition"))
			}
			if !strings.HasPrefix(rr.Body.String(), tt.header) {
				t.Fatalf("body starts with %q", strings.SplitN(rr.Body.String(), "\n", 2)[0])
			}
		})
	}

	if rr := do(srv, http.MethodPost, "/api/export/secret.csv", "text/csv", []byte(ledgerCSV(1))); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown export status=%d", rr.Code)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t, ServerOptions{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRateLimited(t *testing.T) {
	srv := newTestServer(t, ServerOptions{RateLimit: ratelimit.Config{Requests: 1}})
	if rr := do(srv, http.MethodPost, "/api/tips", "text/csv", []byte(ledgerCSV(2))); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := do(srv, http.MethodPost, "/api/tips", "text/csv", []byte(ledgerCSV(2)))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second status=%d retry=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	// Health checks are never limited.
	if rr := do(srv, http.MethodGet, "/healthz", "", nil); rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

type countingAnalyzer struct {
	*services.AnalysisService
	reports, prepares int
}

func (c *countingAnalyzer) Report(ctx context.Context, t ledger.Table) (*services.Report, error) {
	c.reports++
	return c.AnalysisService.Report(ctx, t)
}

func (c *countingAnalyzer) Prepare(ctx context.Context, t ledger.Table) (*services.Prepared, error) {
	c.prepares++
	return c.AnalysisService.Prepare(ctx, t)
}

func TestResultsAreCachedPerLedger(t *testing.T) {
	svcOpts := services.DefaultOptions()
	svcOpts.Forecast.Trees = 20
	analyzer := &countingAnalyzer{AnalysisService: services.NewAnalysisService(svcOpts, log.Discard())}
	srv := NewServer(":0", analyzer, ServerOptions{CacheSize: 4}, log.Discard())
	t.Cleanup(func() {
		srv.rateLimiter.Stop()
		srv.caches.Stop()
	})

	body := []byte(ledgerCSV(4))
	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/api/analyze", "text/csv", body); rr.Code != http.StatusOK {
			t.Fatalf("analyze status %d: %s", rr.Code, rr.Body.String())
		}
		if rr := do(srv, http.MethodPost, "/api/tips", "text/csv", body); rr.Code != http.StatusOK {
			t.Fatalf("tips status %d: %s", rr.Code, rr.Body.String())
		}
	}
	if analyzer.reports != 1 || analyzer.prepares != 1 {
		t.Fatalf("expected one computation each, got reports=%d prepares=%d", analyzer.reports, analyzer.prepares)
	}

	if rr := do(srv, http.MethodPost, "/api/analyze", "text/csv", []byte(ledgerCSV(5))); rr.Code != http.StatusOK {
		t.Fatalf("analyze status %d", rr.Code)
	}
	if analyzer.reports != 2 {
		t.Fatalf("a different ledger must not hit the cache, reports=%d", analyzer.reports)
	}

	rr := do(srv, http.MethodGet, "/metrics", "", nil)
	if !strings.Contains(rr.Body.String(), "report_cache_hits_total 1") {
		t.Errorf("metrics lack the cache hit:\n%s", rr.Body.String())
	}
}
