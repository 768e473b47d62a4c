package core

import (
	"strings"
	"time"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// DateOf drops the time of day of t, keeping its calendar day (as UTC midnight).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar day.
func Today() time.Time {
	return DateOf(NowFunc())
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, CleanString(s))
}
