package cache

import (
	"context"
	"time"

	"modastore/backend/internal/domain"
)

// ReportCache holds short-lived period sales summaries. Invalidate drops
// every cached summary at once; sale and session mutations call it so a
// report read never serves totals older than the last write.
type ReportCache interface {
	Get(ctx context.Context, from string, to string) (*domain.PeriodSummary, bool, error)
	Set(ctx context.Context, from string, to string, value *domain.PeriodSummary, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string, _ string) (*domain.PeriodSummary, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ string, _ *domain.PeriodSummary, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error {
	return nil
}
