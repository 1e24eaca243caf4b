package countstore

import (
	"context"
	"fmt"
	"time"
)

// Counting periods. Hour and day buckets roll over on UTC boundaries; total
// never expires.
const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

// CountStore tracks per-user action rates for flooding and cadence signals.
// Counts are advisory: losing them degrades spam scoring, never correctness.
type CountStore interface {
	Increment(ctx context.Context, name, val string) error
	GetCount(ctx context.Context, name, val, period string) (int, error)
}

func periodBucket(name, val, period string, now time.Time) string {
	switch period {
	case PeriodTotal:
		return fmt.Sprintf("%s/%s", name, val)
	case PeriodDay:
		return fmt.Sprintf("%s/%s/%s", name, val, now.UTC().Format(time.DateOnly))
	case PeriodHour:
		return fmt.Sprintf("%s/%s/%s", name, val, now.UTC().Format("2006-01-02T15"))
	default:
		return fmt.Sprintf("%s/%s", name, val)
	}
}

var allPeriods = []string{PeriodTotal, PeriodDay, PeriodHour}
