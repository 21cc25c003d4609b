// Package period implements the date arithmetic shared by every source
// adapter: publication tokens come in as plain years ("2023"), quarter
// tokens ("2023-Q3") or free-form dates, and target windows are either
// annual or quarterly.
package period

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency tags a record's target window length.
type Frequency string

const (
	Annual    Frequency = "A"
	Quarterly Frequency = "Q"
)

// ParseError reports a token that matched none of the accepted date
// shapes. A transform run aborts on the first one, no partial output.
type ParseError struct {
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse date token %q: %s", e.Token, e.Err.Error())
	}
	return fmt.Sprintf("date token %q not in an expected format", e.Token)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// scraped column headers come both spaced and dashed ("Sep 2025",
// "Sep-2025"), so every month-year layout carries both separators
var freeFormLayouts = []string{
	"2006-01-02",
	"2006-01",
	"January 2006",
	"January-2006",
	"Jan 2006",
	"Jan-2006",
	"2 January 2006",
	"2-January-2006",
}

// Parse resolves a date token to the first day of the window it names.
//
//	"2023"    -> 2023-01-01
//	"2023-Q3" -> 2023-07-01
//
// Anything else is attempted against a small set of free-form layouts
// and passed through as parsed; month-year tokens land on the first of
// the month, full dates keep their day.
func Parse(token string) (time.Time, error) {
	token = strings.TrimSpace(token)

	if len(token) == 4 {
		year, err := strconv.Atoi(token)
		if err != nil {
			return time.Time{}, &ParseError{Token: token, Err: err}
		}
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}

	if len(token) == 7 && strings.Contains(token, "-Q") {
		parts := strings.SplitN(token, "-Q", 2)
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, &ParseError{Token: token, Err: err}
		}
		quarter, err := strconv.Atoi(parts[1])
		if err != nil || quarter < 1 || quarter > 4 {
			return time.Time{}, &ParseError{Token: token, Err: err}
		}
		month := time.Month(quarter*3 - 2)
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
	}

	for _, layout := range freeFormLayouts {
		t, err := time.Parse(layout, token)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, &ParseError{Token: token}
}

// FrequencyOf derives the window length from the shape of the raw token:
// a bare year is annual, everything else is quarterly.
func FrequencyOf(token string) Frequency {
	if len(strings.TrimSpace(token)) == 4 {
		return Annual
	}
	return Quarterly
}

// Until computes the exclusive end of the window starting at from.
func Until(from time.Time, freq Frequency) time.Time {
	if freq == Quarterly {
		return from.AddDate(0, 3, 0)
	}
	return from.AddDate(1, 0, 0)
}

// QuarterStart gives the first day of a calendar quarter.
func QuarterStart(year, quarter int) time.Time {
	return time.Date(year, time.Month(quarter*3-2), 1, 0, 0, 0, 0, time.UTC)
}
