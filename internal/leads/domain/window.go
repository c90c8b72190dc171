package domain

import (
	"strings"
	"time"
)

// Window scopes an aggregation to leads created on or after a lower bound.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowYearly  Window = "yearly"
	WindowAll     Window = "all"
)

// Period is the leaderboard scope.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParseWindow accepts the window names used by the stats endpoints.
// An empty string means WindowAll.
func ParseWindow(raw string) (Window, bool) {
	switch Window(strings.ToLower(strings.TrimSpace(raw))) {
	case WindowDaily:
		return WindowDaily, true
	case WindowWeekly:
		return WindowWeekly, true
	case WindowMonthly:
		return WindowMonthly, true
	case WindowYearly:
		return WindowYearly, true
	case WindowAll, "":
		return WindowAll, true
	}
	return "", false
}

// ParsePeriod accepts "week" or "month". An empty string means PeriodWeek.
func ParsePeriod(raw string) (Period, bool) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodWeek, "":
		return PeriodWeek, true
	case PeriodMonth:
		return PeriodMonth, true
	}
	return "", false
}

// Window maps a leaderboard period to its aggregation window.
func (p Period) Window() Window {
	if p == PeriodMonth {
		return WindowMonthly
	}
	return WindowWeekly
}

// Since returns the inclusive lower bound of the window evaluated at now in
// loc. The second result is false for WindowAll, which has no bound.
func (w Window) Since(now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	y, m, d := local.Date()

	switch w {
	case WindowDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc), true
	case WindowWeekly:
		// Weeks start on Sunday.
		return time.Date(y, m, d-int(local.Weekday()), 0, 0, 0, 0, loc), true
	case WindowMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), true
	case WindowYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}

// Contains reports whether t falls inside the window evaluated at now.
func (w Window) Contains(t, now time.Time, loc *time.Location) bool {
	since, bounded := w.Since(now, loc)
	if !bounded {
		return true
	}
	return !t.Before(since)
}

// Clock abstracts time.Now for services that compute windows.
type Clock func() time.Time

// SystemClock returns the current wall clock time.
func SystemClock() time.Time {
	return time.Now()
}
