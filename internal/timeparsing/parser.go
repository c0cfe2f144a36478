// Package timeparsing turns user-supplied time expressions into timestamps.
//
// Expressions are tried in layers, first match wins:
//  1. Compact duration (+6h, -1d, 2w)
//  2. Absolute timestamp (RFC3339, date-only, date and time)
//  3. Natural language (yesterday, last monday, 3 days ago)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// compactDurationRe matches [+-]?(\d+)([hdwmy]).
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

// ParseCompactDuration parses compact duration syntax relative to now.
//
// Units: h hours, d days, w weeks, m months, y years. No sign means forward:
//
//	"+6h" -> now + 6 hours
//	"-1d" -> now - 1 day
//	"3m"  -> now + 3 months
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	sign, amount, unit, err := splitCompact(s)
	if err != nil {
		return time.Time{}, err
	}
	if sign == "-" {
		amount = -amount
	}
	return applyDuration(now, amount, unit), nil
}

func splitCompact(s string) (sign string, amount int, unit string, err error) {
	m := compactDurationRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0, "", fmt.Errorf("not a compact duration: %q", s)
	}
	amount, err = strconv.Atoi(m[2])
	if err != nil {
		return "", 0, "", fmt.Errorf("invalid duration amount: %q", m[2])
	}
	return m[1], amount, m[3], nil
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	default:
		return base
	}
}

// IsCompactDuration reports whether s uses compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// absoluteLayouts are tried in order by ParseAbsolute.
var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseAbsolute parses RFC3339 and common date layouts. Layouts without a
// zone are read in the local time zone.
func ParseAbsolute(s string) (time.Time, error) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an absolute time: %q", s)
}

// ParseRelativeTime parses s with every layer, see the package doc.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, err := ParseAbsolute(s); err == nil {
		return t, nil
	}
	t, err := ParseNaturalLanguage(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q (try RFC3339, 2006-01-02, -7d or \"yesterday\")", s)
	}
	return t, nil
}

// ParsePast is ParseRelativeTime for lower bounds on past events such as
// history queries: an unsigned compact duration counts backwards, so "7d"
// means seven days ago.
func ParsePast(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if sign, amount, unit, err := splitCompact(s); err == nil && sign == "" {
		return applyDuration(now, -amount, unit), nil
	}
	return ParseRelativeTime(s, now)
}
