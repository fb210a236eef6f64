package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smartbudget/internal/ledger"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.analyzer == nil {
		checks["analysis"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["analysis"] = "ok"
	}

	if s.opts.Ready != nil {
		if err := s.opts.Ready(ctx); err != nil {
			checks["source"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["source"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	var b strings.Builder
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_client_errors_total", "counter", "Responses with a 4xx status", traceMetrics.ClientErrors)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Average response time", traceMetrics.AverageResponseTime)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	reports, prepared := s.cacheStats()
	metric("report_cache_hits_total", "counter", "Reports served from cache", reports.Hits)
	metric("report_cache_misses_total", "counter", "Reports computed", reports.Misses)
	metric("prepared_cache_hits_total", "counter", "Prepared ledgers served from cache", prepared.Hits)
	metric("prepared_cache_misses_total", "counter", "Prepared ledgers computed", prepared.Misses)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))

	NewResponse().BodyString(b.String()).Write(w)
}

type schemaField struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Required bool     `json:"required"`
}

// handleSchema lists the accepted ledger columns.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	var dates ledger.DateOptions
	if s.analyzer != nil {
		dates = s.analyzer.Options().Dates
	}
	schema := ledger.DefaultSchema(dates)
	fields := make([]schemaField, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = schemaField{Name: f.Name, Aliases: f.Aliases, Required: f.Required}
	}
	NewResponse().JSON(map[string]any{
		"fields":    fields,
		"day_first": dates.DayFirst,
	}).Write(w)
}

// requireAnalyzer answers 503 while no analysis service is configured.
func (s *Server) requireAnalyzer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.analyzer == nil {
			writeError(w, r, ErrNotConfigured)
			return
		}
		next.ServeHTTP(w, r)
	})
}
