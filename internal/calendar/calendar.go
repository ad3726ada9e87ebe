// Package calendar maps a year-month to its calendar days.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrInvalidMonth is returned for anything that is not a "YYYY-MM" month.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// ErrInvalidDate is returned for anything that is not a "YYYY-MM-DD" calendar day.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

const (
	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
	labelLayout = "02/01/2006"
)

var (
	monthRe = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}$`)
	dateRe  = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// Day is one calendar day of a month.
type Day struct {
	N     int    `json:"d"`     // 1-based day of month
	Label string `json:"label"` // DD/MM/YYYY
	ISO   string `json:"iso"`   // YYYY-MM-DD storage key
}

// ParseMonth validates ym and returns the first day of that month in UTC.
func ParseMonth(ym string) (time.Time, error) {
	if !monthRe.MatchString(ym) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, ym)
	}
	t, err := time.Parse(monthLayout, ym)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, ym)
	}
	return t, nil
}

// DaysOfMonth returns every day of ym in order.
func DaysOfMonth(ym string) ([]Day, error) {
	first, err := ParseMonth(ym)
	if err != nil {
		return nil, err
	}
	// day 0 of the next month is the last day of this one
	last := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	days := make([]Day, 0, last)
	for d := 1; d <= last; d++ {
		t := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
		days = append(days, Day{N: d, Label: t.Format(labelLayout), ISO: t.Format(dateLayout)})
	}
	return days, nil
}

// CurrentMonth formats now as "YYYY-MM".
func CurrentMonth(now time.Time) string {
	return now.Format(monthLayout)
}

// MonthOrCurrent returns raw when it is a valid month, the current month when
// raw is empty, and ErrInvalidMonth otherwise.
func MonthOrCurrent(raw string, now time.Time) (string, error) {
	if raw == "" {
		return CurrentMonth(now), nil
	}
	if _, err := ParseMonth(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// ValidDate reports whether date is a real "YYYY-MM-DD" calendar day.
func ValidDate(date string) error {
	if !dateRe.MatchString(date) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

// MonthOf returns the "YYYY-MM" part of a valid date.
func MonthOf(date string) (string, error) {
	if err := ValidDate(date); err != nil {
		return "", err
	}
	return date[:7], nil
}

// LikePattern returns the LIKE pattern matching every date of ym.
func LikePattern(ym string) (string, error) {
	if _, err := ParseMonth(ym); err != nil {
		return "", err
	}
	return ym + "-%", nil
}
