package domain

import (
	"testing"
	"time"
)

func TestWindowSinceBoundaries(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// Wednesday 2024-03-13 15:04:05 local.
	now := time.Date(2024, time.March, 13, 15, 4, 5, 0, loc)

	cases := []struct {
		window Window
		want   time.Time
	}{
		{WindowDaily, time.Date(2024, time.March, 13, 0, 0, 0, 0, loc)},
		{WindowWeekly, time.Date(2024, time.March, 10, 0, 0, 0, 0, loc)},
		{WindowMonthly, time.Date(2024, time.March, 1, 0, 0, 0, 0, loc)},
		{WindowYearly, time.Date(2024, time.January, 1, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		got, bounded := tc.window.Since(now, loc)
		if !bounded || !got.Equal(tc.want) {
			t.Fatalf("%s: got %v (%v), want %v", tc.window, got, bounded, tc.want)
		}
	}

	if _, bounded := WindowAll.Since(now, loc); bounded {
		t.Fatal("all window must be unbounded")
	}
}

func TestWeeklyWindowOnSundayStartsToday(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, time.March, 10, 0, 0, 1, 0, loc)
	got, _ := WindowWeekly.Since(now, loc)
	if !got.Equal(time.Date(2024, time.March, 10, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected weekly start %v", got)
	}
}

func TestWindowContainsMillisecondBoundary(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, time.March, 13, 12, 0, 0, 0, loc)
	boundary := time.Date(2024, time.March, 10, 0, 0, 0, 0, loc)

	if !WindowWeekly.Contains(boundary, now, loc) {
		t.Fatal("boundary instant must be inside the window")
	}
	if WindowWeekly.Contains(boundary.Add(-time.Millisecond), now, loc) {
		t.Fatal("one millisecond before the boundary must be outside the window")
	}
}

func TestParseWindowAndPeriod(t *testing.T) {
	if w, ok := ParseWindow(""); !ok || w != WindowAll {
		t.Fatalf("empty window should be all, got %q", w)
	}
	if _, ok := ParseWindow("hourly"); ok {
		t.Fatal("hourly is not a window")
	}
	if p, ok := ParsePeriod("MONTH"); !ok || p.Window() != WindowMonthly {
		t.Fatalf("unexpected period %q", p)
	}
	if _, ok := ParsePeriod("year"); ok {
		t.Fatal("year is not a leaderboard period")
	}
}
