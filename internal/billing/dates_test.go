package billing

import (
	"testing"
	"time"
)

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		end  time.Time
		want int
	}{
		{time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), 2},
		{time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC), 15},
		{time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC), 0},
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		if got := DaysRemaining(tt.end, now); got != tt.want {
			t.Errorf("DaysRemaining(%s) = %d, want %d", tt.end.Format(time.DateOnly), got, tt.want)
		}
	}
}

func TestNextBillingDate(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	if got := NextBillingDate(start, 30); !got.Equal(time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("NextBillingDate = %v", got)
	}
	if got := NextBillingDate(start, 0); !got.Equal(time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("default cycle = %v", got)
	}
}

func TestIsPast(t *testing.T) {
	now := time.Now()
	if !IsPast(now.Add(-time.Minute), now) || IsPast(now.Add(time.Minute), now) {
		t.Error("IsPast mismatch")
	}
}
