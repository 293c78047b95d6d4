package utils

import (
	"testing"
	"time"
)

func TestDaysUntil(t *testing.T) {
	const day = int64(24 * 60 * 60)
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC).Unix()

	cases := []struct {
		name     string
		deadline int64
		want     int
	}{
		{"already past", now - 10, 0},
		{"right now", now, 0},
		{"one second away", now + 1, 1},
		{"under a day", now + day - 1, 1},
		{"exactly one day", now + day, 1},
		{"just over a day", now + day + 1, 2},
		{"exactly seven days", now + 7*day, 7},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DaysUntil(now, c.deadline); got != c.want {
				t.Errorf("DaysUntil = %d, want %d", got, c.want)
			}
		})
	}
}

func TestFromUnixSecondsVNZeroValue(t *testing.T) {
	if !FromUnixSecondsVN(0).IsZero() {
		t.Error("expected zero time for 0")
	}
	if !FromUnixSecondsVN(-5).IsZero() {
		t.Error("expected zero time for negative input")
	}
	if FormatRFC3339VN(time.Time{}) != "" {
		t.Error("expected empty string for zero time")
	}
}
