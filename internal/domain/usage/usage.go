// Package usage models embedding token usage reports.
package usage

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod signals an unsupported report period.
var ErrInvalidPeriod = errors.New("invalid usage period")

// Period is the aggregation granularity.
type Period string

// Report periods. Both are UTC calendar windows.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates s. An empty string selects PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Bounds returns the UTC window of p containing t.
func (p Period) Bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Counters is the raw state of both budget windows. A zero limit means unlimited.
type Counters struct {
	DailyLimit, DailyUsed     int64
	MonthlyLimit, MonthlyUsed int64
}

// Report is the embedding token usage for one period.
type Report struct {
	period    Period
	start     time.Time
	end       time.Time
	limit     int64
	used      int64
	remaining int64
}

// NewReport builds a report for p from limit and used. remaining is -1 when
// the limit is zero.
func NewReport(p Period, start, end time.Time, limit, used int64) Report {
	remaining := int64(-1)
	if limit > 0 {
		remaining = max(limit-used, 0)
	}
	return Report{period: p, start: start, end: end, limit: limit, used: used, remaining: remaining}
}

// Period returns the aggregation granularity.
func (r Report) Period() Period { return r.period }

// Start returns the window start.
func (r Report) Start() time.Time { return r.start }

// End returns the window end, which is also when the budget resets.
func (r Report) End() time.Time { return r.end }

// Limit returns the token cap, 0 when unlimited.
func (r Report) Limit() int64 { return r.limit }

// Used returns the tokens consumed in the window.
func (r Report) Used() int64 { return r.used }

// Remaining returns tokens left, -1 when unlimited.
func (r Report) Remaining() int64 { return r.remaining }

// Exhausted reports whether a limited budget is spent.
func (r Report) Exhausted() bool { return r.limit > 0 && r.remaining == 0 }
