// Package daterange parses fuzzy date strings and answers interval-overlap
// questions for the temporal filter.
//
// The dataset carries dates at three precisions: exact days ("1976-09-09"),
// year-months ("1966-05"), and bare years ("1921"). A fuzzy token means a
// different instant depending on which side of a range it sits on: "1921"
// as a start is January 1st, 1921, but "1921" as an end must mean "through
// the end of 1921" - otherwise every single-year-dated entity would appear
// to vanish on day 2 of the window.
//
// Malformed non-empty date text FAILS CLOSED: the range that contains it
// does not count as active. Treating dirty data as "always visible" would
// silently pollute every window. This mirrors how the curated corpus is
// policed today; if the corpus is ever machine-generated, revisit.
//
// Example:
//
//	start, end, ok := daterange.Bounds("1921 - 1949-10-01")
//	// start = 1921-01-01 00:00, end = 1949-10-01 00:00, ok = true
//
//	active := daterange.AnyRangeActive([]string{"1893 - 1976"}, winStart, winEnd)
package daterange

import (
	"regexp"
	"strings"
	"time"
)

// Sentinels for open-ended range halves. Chosen well outside any
// historical dataset so every real window sits inside them.
var (
	// MinInstant stands in for an absent range start.
	MinInstant = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	// MaxInstant stands in for an absent range end.
	MaxInstant = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

var (
	yearRe      = regexp.MustCompile(`^\d{4}$`)
	yearMonthRe = regexp.MustCompile(`^\d{4}-\d{1,2}$`)
	yearSpanRe  = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

// dayLayouts are tried in order for full-precision dates.
var dayLayouts = []string{"2006-01-02", "2006-1-2"}

// Parse parses a date string at any supported precision.
//
// Bare years resolve to the year's first instant, year-months to the
// month's first instant. Anything else that is not an ISO-like day date
// fails with ok=false.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if yearRe.MatchString(s) {
		t, err := time.Parse("2006", s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if yearMonthRe.MatchString(s) {
		for _, layout := range []string{"2006-01", "2006-1"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ExpandVague pushes a fuzzy date to the last instant of its implied
// span. A bare year advances to December 31st end-of-day, a year-month to
// the month's last day end-of-day (computed as first-of-next-period minus
// one day, so leap Februaries come out right). Full-precision dates are
// returned unchanged apart from extending to end-of-day when used as a
// range end is the caller's concern; here only fuzzy inputs expand.
func ExpandVague(original string, parsed time.Time) time.Time {
	original = strings.TrimSpace(original)

	switch {
	case yearRe.MatchString(original):
		lastDay := parsed.AddDate(1, 0, 0).AddDate(0, 0, -1)
		return endOfDay(lastDay)
	case yearMonthRe.MatchString(original):
		lastDay := parsed.AddDate(0, 1, 0).AddDate(0, 0, -1)
		return endOfDay(lastDay)
	default:
		return parsed
	}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SplitRange splits a range string into its start and end halves.
//
// Delimiter precedence, first match wins:
//  1. " - " (space-dash-space)
//  2. em-dash
//  3. en-dash
//  4. bare "YYYY-YYYY" digit pattern
//  5. trailing "-" (open-ended end)
//  6. leading "-" (open-ended start)
//  7. no delimiter: the whole string is both bounds (a point-in-time range)
//
// Unambiguous separators must be tried before the bare-digit fallback
// because plain dates themselves contain dashes ("1949-10-01").
func SplitRange(s string) (startStr, endStr string) {
	s = strings.TrimSpace(s)

	if i := strings.Index(s, " - "); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+3:])
	}
	if i := strings.Index(s, "—"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len("—"):])
	}
	if i := strings.Index(s, "–"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len("–"):])
	}
	if m := yearSpanRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2]
	}
	if strings.HasSuffix(s, "-") {
		return strings.TrimSpace(strings.TrimSuffix(s, "-")), ""
	}
	if strings.HasPrefix(s, "-") {
		return "", strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	return s, s
}

// Bounds resolves a range string to concrete interval bounds.
//
// Open-ended halves default to MinInstant/MaxInstant. When the start and
// end are the same fuzzy token (a point-in-time range like "1921"), the
// end expands to the token's last instant. ok is false when a non-empty
// half fails to parse - the fail-closed rule.
func Bounds(rangeStr string) (start, end time.Time, ok bool) {
	startStr, endStr := SplitRange(rangeStr)

	start = MinInstant
	if startStr != "" {
		t, parsed := Parse(startStr)
		if !parsed {
			return time.Time{}, time.Time{}, false
		}
		start = t
	}

	end = MaxInstant
	if endStr != "" {
		t, parsed := Parse(endStr)
		if !parsed {
			return time.Time{}, time.Time{}, false
		}
		if startStr == endStr {
			t = ExpandVague(endStr, t)
		}
		end = t
	}

	return start, end, true
}

// Overlaps reports whether [aStart, aEnd] intersects [bStart, bEnd].
// Boundary touches count as overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// AnyRangeActive reports whether any of the node's range strings overlaps
// the window. An empty slice is NOT active here; the caller decides what
// "no temporal property" means for the node's category (always-active
// categories and untimed nodes are handled above this function).
func AnyRangeActive(ranges []string, windowStart, windowEnd time.Time) bool {
	for _, r := range ranges {
		start, end, ok := Bounds(r)
		if !ok {
			continue // fail closed on malformed text
		}
		if Overlaps(start, end, windowStart, windowEnd) {
			return true
		}
	}
	return false
}

// PairsActive reports whether any positionally-paired (starts[i], ends[i])
// interval overlaps the window. This is the edge activity rule:
//
//   - no pairs at all: always active
//   - a start with no paired end: open-ended through MaxInstant
//   - a fuzzy end expands to the last instant of its span
//   - a malformed non-empty start or end disqualifies that pair only
func PairsActive(starts, ends []string, windowStart, windowEnd time.Time) bool {
	if len(starts) == 0 && len(ends) == 0 {
		return true
	}

	n := len(starts)
	if len(ends) > n {
		n = len(ends)
	}

	for i := 0; i < n; i++ {
		start := MinInstant
		if i < len(starts) && strings.TrimSpace(starts[i]) != "" {
			t, ok := Parse(starts[i])
			if !ok {
				continue
			}
			start = t
		}

		end := MaxInstant
		if i < len(ends) && strings.TrimSpace(ends[i]) != "" {
			t, ok := Parse(ends[i])
			if !ok {
				continue
			}
			end = ExpandVague(ends[i], t)
		}

		if Overlaps(start, end, windowStart, windowEnd) {
			return true
		}
	}
	return false
}
