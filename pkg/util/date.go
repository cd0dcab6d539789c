package util

import (
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseDate parses a calendar date as the warehouse exports it ("2006-01-02",
// optionally followed by a time part) and truncates it to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	if t, ok := ParseTime(s); ok {
		return Day(t), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// Day drops the clock part of t in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BucketStart rounds t down to the start of its bucket: the day itself for
// "daily", the first of the month for "monthly".
func BucketStart(t time.Time, granularity string) time.Time {
	t = t.UTC()
	switch granularity {
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// AddPeriods steps t forward by n buckets. Monthly steps are calendar months
// anchored on the first of the month, so Jan 1 + 1 is Feb 1 and never Mar 3.
func AddPeriods(t time.Time, n int, granularity string) time.Time {
	switch granularity {
	case "monthly":
		start := BucketStart(t, granularity)
		return start.AddDate(0, n, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Quarter returns the calendar quarter (1..4) of t.
func Quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
