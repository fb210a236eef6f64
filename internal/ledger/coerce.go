package ledger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText lowercases s, replaces every rune that is not a letter, digit,
// underscore or space with a space and collapses whitespace. Accented letters
// are kept.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = cases.Lower(language.Spanish).String(norm.NFC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseAmount parses a monetary cell leniently and returns its absolute value.
// Currency symbols and spaces are ignored, "12,50" and "1.234,50" use a
// decimal comma. ok is false when the cell is not numeric.
func ParseAmount(raw string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), r == '$', r == '€', r == '(', r == ')', r == '+':
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return 0, false
	}

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot < 0:
		s = strings.ReplaceAll(s, ",", ".")
	case comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Abs().Float64()
	return f, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2006.01.02",
	"02-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// d/m/y or m/d/y with any of / - . as separator, optionally followed by a time.
var numericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2}|\d{4})(?:[ T].*)?$`)

// ParseDate parses a ledger date leniently and truncates it to the calendar day.
// Ambiguous numeric dates are read month first unless opts.DayFirst is set;
// if the preferred order gives a month above 12 the other order is tried.
// Five digit numbers are read as spreadsheet serial dates.
func ParseDate(raw string, opts DateOptions) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), true
		}
	}
	if m := numericDate.FindStringSubmatch(s); m != nil {
		return parseNumericDate(m[1], m[2], m[3], opts.DayFirst)
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 10000 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return midnight(t), true
		}
	}
	return time.Time{}, false
}

func parseNumericDate(a, b, y string, dayFirst bool) (time.Time, bool) {
	first, _ := strconv.Atoi(a)
	second, _ := strconv.Atoi(b)
	year, _ := strconv.Atoi(y)
	if len(y) == 2 {
		if year < 70 {
			year += 2000
		} else {
			year += 1900
		}
	}

	day, month := second, first
	if dayFirst {
		day, month = first, second
	}
	if month > 12 {
		day, month = month, day
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31/02 into March; reject it instead.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
