package http

import (
	"context"

	"smartbudget/internal/cache"
	"smartbudget/internal/ledger"
	"smartbudget/internal/services"
)

// report returns the cached report for t or computes and stores it.
func (s *Server) report(ctx context.Context, t ledger.Table) (*services.Report, error) {
	if s.reports == nil {
		return s.analyzer.Report(ctx, t)
	}
	key := cache.TableKey(t)
	if rep, ok := s.reports.Get(key); ok {
		return rep, nil
	}
	rep, err := s.analyzer.Report(ctx, t)
	if err != nil {
		return nil, err
	}
	s.reports.Set(key, rep)
	return rep, nil
}

// prepare is report's counterpart for the prepared ledger.
func (s *Server) prepare(ctx context.Context, t ledger.Table) (*services.Prepared, error) {
	if s.prepared == nil {
		return s.analyzer.Prepare(ctx, t)
	}
	key := cache.TableKey(t)
	if p, ok := s.prepared.Get(key); ok {
		return p, nil
	}
	p, err := s.analyzer.Prepare(ctx, t)
	if err != nil {
		return nil, err
	}
	s.prepared.Set(key, p)
	return p, nil
}

func (s *Server) cacheStats() (reports, prepared cache.Stats) {
	if s.reports != nil {
		reports = s.reports.Stats()
	}
	if s.prepared != nil {
		prepared = s.prepared.Stats()
	}
	return reports, prepared
}
