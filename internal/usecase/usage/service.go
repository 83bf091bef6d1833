package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/topicrag/internal/domain/usage"
)

// Service builds embedding usage reports.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when no budget is configured.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport returns token usage for the window of period containing now.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())

	var c domusage.Counters
	if s.br != nil {
		c = s.br.Snapshot()
	}
	if period == domusage.PeriodMonth {
		return domusage.NewReport(period, start, end, c.MonthlyLimit, c.MonthlyUsed)
	}
	return domusage.NewReport(period, start, end, c.DailyLimit, c.DailyUsed)
}
