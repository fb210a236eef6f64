package http

import (
	"bytes"
	"net/http"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/core"
	"smartbudget/internal/export"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
)

type analyzeResponse struct {
	*services.Report
	Source string                `json:"source"`
	Group  aggregate.Granularity `json:"group"`
	Spend  []core.PeriodTotal    `json:"spend"`
}

// handleAnalyze runs the full report on an uploaded ledger.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	group, err := ParseGroup(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, err := ReadLedgerUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()
	rep, err := s.report(ctx, up.Table)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(ctx)).
		LogAnalysisCompleted(ctx, "upload", up.Name, len(rep.Transactions), rep.Pivot.Len())

	NewResponse().JSON(analyzeResponse{
		Report: rep,
		Source: up.Name,
		Group:  group,
		Spend:  aggregate.SpendBy(rep.Transactions, group),
	}).Write(w)
}

type anomaliesResponse struct {
	Contamination float64            `json:"contamination"`
	Threshold     *float64           `json:"threshold,omitempty"`
	Days          []core.DailyRecord `json:"days"`
	Anomalies     []core.DailyRecord `json:"anomalies"`
}

// handleAnomalies flags unusual spending days.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	contamination, err := ParseContamination(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, err := ReadLedgerUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()
	p, err := s.prepare(ctx, up.Table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, det, err := s.analyzer.DetectAnomalies(ctx, p.Transactions, contamination)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := anomaliesResponse{
		Contamination: contamination,
		Days:          days,
		Anomalies:     []core.DailyRecord{},
	}
	if resp.Contamination == 0 {
		resp.Contamination = s.analyzer.Options().Anomaly.Contamination
	}
	if det != nil {
		threshold := det.Threshold()
		resp.Threshold = &threshold
	}
	for _, d := range days {
		if d.Anomaly {
			resp.Anomalies = append(resp.Anomalies, d)
		}
	}
	NewResponse().JSON(resp).Write(w)
}

// handleTips returns basic and advanced savings tips.
func (s *Server) handleTips(w http.ResponseWriter, r *http.Request) {
	topK, err := ParseTopK(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, err := ReadLedgerUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()
	p, err := s.prepare(ctx, up.Table)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().JSON(map[string][]string{
		"tips":          s.analyzer.BasicSavingsTips(p.Pivot, topK),
		"advanced_tips": s.analyzer.AdvancedSavingsTips(p.Pivot),
	}).Write(w)
}

// handleExport renders one CSV export of the cleaned ledger.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	switch name {
	case "transactions.csv", "pivot.csv", "daily.csv":
	default:
		NotFoundError("unknown export " + name).Write(w)
		return
	}
	contamination, err := ParseContamination(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	up, err := ReadLedgerUpload(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.analysisContext(r)
	defer cancel()
	p, err := s.prepare(ctx, up.Table)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		buf      bytes.Buffer
		filename string
	)
	switch name {
	case "transactions.csv":
		filename = export.TransactionsFile
		err = export.WriteTransactions(&buf, p.Transactions)
	case "pivot.csv":
		filename = export.PivotFile
		err = export.WritePivot(&buf, p.Pivot)
	case "daily.csv":
		filename = export.DailyFile
		var days []core.DailyRecord
		days, _, err = s.analyzer.DetectAnomalies(ctx, p.Transactions, contamination)
		if err == nil {
			err = export.WriteDaily(&buf, days)
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().CSV(filename, buf.Bytes()).Write(w)
}
