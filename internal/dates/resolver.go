// Package dates decides which calendar dates a request may be answered
// from. Dates travel as YYYYMMDD strings, the upstream path format.
package dates

import "time"

const layout = "20060102"

// CandidateDates returns the dates to probe, in priority order. When the
// caller pinned an explicit date retrying is not permitted and only that
// date is returned; otherwise the requested date is followed by up to
// lookback previous days.
func CandidateDates(requested string, allowRetry bool, lookback int) []string {
	if !allowRetry {
		return []string{requested}
	}
	out := make([]string, 0, lookback+1)
	out = append(out, requested)
	for i := 1; i <= lookback; i++ {
		out = append(out, SubtractDays(requested, i))
	}
	return out
}

// SubtractDays moves a YYYYMMDD date n days back, rolling over month and
// year boundaries. An unparsable date is returned unchanged.
func SubtractDays(date string, n int) string {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, -n).Format(layout)
}

// DefaultDate is the date served when the caller supplies none: yesterday
// in UTC+9. The upstream publishes one listing per day with a one-day lag,
// so "now, shifted to UTC+9, minus 24 hours" is the newest day that is
// reliably complete.
func DefaultDate(now time.Time) string {
	return now.UTC().Add(9 * time.Hour).Add(-24 * time.Hour).Format(layout)
}

// Display renders a YYYYMMDD date as the slash form used in listings and
// summaries. An unparsable date is returned unchanged.
func Display(date string) string {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date
	}
	return t.Format("2006/01/02")
}

// Valid reports whether date is a real YYYYMMDD calendar date.
func Valid(date string) bool {
	_, err := time.Parse(layout, date)
	return err == nil
}
