// Package dateparse turns loosely formatted date text from OCR extractions
// into canonical dates, and renders canonical dates in the site's configured
// display format.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A rule pairs a pattern with a (year, month, day) builder. Rules are tried
// strictly in table order and the first rule that both matches and yields a
// real calendar date wins. Several rules deliberately share a regex: numeric
// slash dates are read month-first, and only fall through to the day-first
// row when the month-first reading is not a valid date (e.g. 13/01/2024).
type rule struct {
	re    *regexp.Regexp
	build func(m []string) (year, month, day int, ok bool)
}

var (
	slashYMD4 = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	slashYMD2 = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)
	dayName   = regexp.MustCompile(`^(\d{1,2})[-\s]([A-Za-z]{3,9})\.?,?[-\s]*(\d{2,4})$`)
	nameDay   = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{2,4})$`)
	isoDash   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	isoSlash  = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	dotDMY    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// rules is the ordered disambiguation table. Order is load-bearing: the
// month-first reading of ambiguous slash dates is the inherited default.
var rules = []rule{
	{slashYMD4, func(m []string) (int, int, int, bool) {
		return atoi(m[3]), atoi(m[1]), atoi(m[2]), true
	}},
	{slashYMD4, func(m []string) (int, int, int, bool) {
		return atoi(m[3]), atoi(m[2]), atoi(m[1]), true
	}},
	{slashYMD2, func(m []string) (int, int, int, bool) {
		return expandYear(m[3]), atoi(m[1]), atoi(m[2]), true
	}},
	{slashYMD2, func(m []string) (int, int, int, bool) {
		return expandYear(m[3]), atoi(m[2]), atoi(m[1]), true
	}},
	{dayName, func(m []string) (int, int, int, bool) {
		mo, ok := monthNumber(m[2])
		return expandYear(m[3]), mo, atoi(m[1]), ok
	}},
	{nameDay, func(m []string) (int, int, int, bool) {
		mo, ok := monthNumber(m[1])
		return expandYear(m[3]), mo, atoi(m[2]), ok
	}},
	{isoDash, func(m []string) (int, int, int, bool) {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}},
	{isoSlash, func(m []string) (int, int, int, bool) {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}},
	{dotDMY, func(m []string) (int, int, int, bool) {
		return atoi(m[3]), atoi(m[2]), atoi(m[1]), true
	}},
}

// Parse matches text against the ordered rule table and returns the first
// valid calendar date. The second return is false when nothing parses, which
// callers treat as "keep the text as a plain string", not as a failure.
func Parse(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		y, mo, d, ok := r.build(m)
		if !ok {
			continue
		}
		if t, ok := makeDate(y, mo, d); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// makeDate reassembles a (year, month, day) triple and rejects triples the
// calendar normalizes away, such as Feb 30.
func makeDate(y, mo, d int) (time.Time, bool) {
	if y < 1 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// monthNumber resolves a month name by parsing "<month> 1, 2012" with the
// platform date parser and reading the month back. Indirect, but it keeps a
// single source of truth for month-name spelling.
func monthNumber(name string) (int, bool) {
	probe := name + " 1, 2012"
	for _, layout := range []string{"Jan 2, 2006", "January 2, 2006"} {
		if t, err := time.Parse(layout, probe); err == nil {
			return int(t.Month()), true
		}
	}
	return 0, false
}

// expandYear prefixes "20" onto two-digit years, so every two-digit year is
// read as 2000-2099.
func expandYear(s string) int {
	if len(s) == 2 {
		return atoi("20" + s)
	}
	return atoi(s)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Format renders t using a site display format code. Unrecognized codes fall
// back to the ISO date string.
func Format(t time.Time, formatCode string) string {
	if t.IsZero() {
		return ""
	}
	switch formatCode {
	case "M/D/YYYY":
		return fmt.Sprintf("%d/%d/%d", t.Month(), t.Day(), t.Year())
	case "D/M/YYYY":
		return fmt.Sprintf("%d/%d/%d", t.Day(), t.Month(), t.Year())
	case "MM/DD/YYYY":
		return t.Format("01/02/2006")
	case "DD/MM/YYYY":
		return t.Format("02/01/2006")
	case "DD-Mon-YYYY":
		return t.Format("02-Jan-2006")
	case "DD-MONTH-YYYY":
		return t.Format("02-") + strings.ToUpper(t.Format("January")) + t.Format("-2006")
	case "DD.MM.YYYY":
		return t.Format("02.01.2006")
	case "YYYY-MM-DD":
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}
