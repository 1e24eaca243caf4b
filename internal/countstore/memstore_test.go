package countstore

import (
	"context"
	"testing"
	"time"
)

func TestMemCountStore_PeriodBuckets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	store := NewMemCountStore()
	store.nowFn = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if err := store.Increment(ctx, "like", "user-a"); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}
	store.Increment(ctx, "like", "user-b")
	store.Increment(ctx, "upload", "user-a")

	cases := []struct {
		name   string
		action string
		val    string
		period string
		want   int
	}{
		{"total", "like", "user-a", PeriodTotal, 3},
		{"day", "like", "user-a", PeriodDay, 3},
		{"hour", "like", "user-a", PeriodHour, 3},
		{"other user isolated", "like", "user-b", PeriodTotal, 1},
		{"other action isolated", "upload", "user-a", PeriodTotal, 1},
		{"unseen is zero", "share", "user-a", PeriodTotal, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.GetCount(ctx, tc.action, tc.val, tc.period)
			if err != nil {
				t.Fatalf("GetCount failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("GetCount(%s/%s/%s) = %d, want %d", tc.action, tc.val, tc.period, got, tc.want)
			}
		})
	}
}

func TestMemCountStore_TimeBucketsRoll(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)
	store := NewMemCountStore()
	store.nowFn = func() time.Time { return now }

	store.Increment(ctx, "comment", "user-a")

	// An hour later the hourly bucket is empty, the daily still counts.
	now = now.Add(time.Hour)
	if got, _ := store.GetCount(ctx, "comment", "user-a", PeriodHour); got != 0 {
		t.Fatalf("hourly count should roll over, got %d", got)
	}
	if got, _ := store.GetCount(ctx, "comment", "user-a", PeriodDay); got != 1 {
		t.Fatalf("daily count should persist within the day, got %d", got)
	}

	// A day later only the total remains.
	now = now.Add(24 * time.Hour)
	if got, _ := store.GetCount(ctx, "comment", "user-a", PeriodDay); got != 0 {
		t.Fatalf("daily count should roll over, got %d", got)
	}
	if got, _ := store.GetCount(ctx, "comment", "user-a", PeriodTotal); got != 1 {
		t.Fatalf("total count should never roll, got %d", got)
	}
}
