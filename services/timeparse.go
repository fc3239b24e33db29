package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrPastTrigger marks a date+time combination that has already passed.
var ErrPastTrigger = errors.New("trigger time is in the past")

// FormatTimeInput canonicalizes a digits-only time entry into "HH:MM".
// One or two digits are an hour, three digits are H:MM, four are HH:MM.
func FormatTimeInput(input string) (string, error) {
	var b strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	val := b.String()

	var hours, mins int
	switch len(val) {
	case 1, 2:
		hours, _ = strconv.Atoi(val)
	case 3:
		hours, _ = strconv.Atoi(val[:1])
		mins, _ = strconv.Atoi(val[1:])
	case 4:
		hours, _ = strconv.Atoi(val[:2])
		mins, _ = strconv.Atoi(val[2:])
	default:
		return "", fmt.Errorf("time must be 1 to 4 digits, got %q", input)
	}

	if hours > 23 || mins > 59 {
		return "", fmt.Errorf("invalid time %q", input)
	}
	return fmt.Sprintf("%02d:%02d", hours, mins), nil
}

// IsValidRealDate reports whether dateStr is a D(D)/M(M)/YYYY date that
// exists on the calendar. The round-trip through time.Date rejects
// overflows such as 31/02, which Go would normalize to a March day.
func IsValidRealDate(dateStr string) bool {
	day, month, year, ok := splitDate(dateStr)
	if !ok {
		return false
	}
	if month < 1 || month > 12 {
		return false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	return d.Year() == year && d.Month() == time.Month(month) && d.Day() == day
}

// IsValidFutureDate additionally rejects calendar dates strictly before
// today. Today itself passes; ComposeTrigger does the finer check once a
// time of day is known.
func IsValidFutureDate(dateStr string) bool {
	return isValidFutureDateAt(dateStr, time.Now())
}

func isValidFutureDateAt(dateStr string, now time.Time) bool {
	if !IsValidRealDate(dateStr) {
		return false
	}
	day, month, year, _ := splitDate(dateStr)
	input := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	return !input.Before(today)
}

// ComposeTrigger combines a date and a canonical "HH:MM" time into the
// wall-clock instant a reminder should fire. Instants that are not
// strictly in the future come back as ErrPastTrigger.
func ComposeTrigger(dateStr, timeStr string) (time.Time, error) {
	return composeTriggerAt(dateStr, timeStr, time.Now())
}

func composeTriggerAt(dateStr, timeStr string, now time.Time) (time.Time, error) {
	if !IsValidRealDate(dateStr) {
		return time.Time{}, fmt.Errorf("invalid date %q", dateStr)
	}
	hours, mins, err := parseClock(timeStr)
	if err != nil {
		return time.Time{}, err
	}
	day, month, year, _ := splitDate(dateStr)
	trigger := time.Date(year, time.Month(month), day, hours, mins, 0, 0, time.Local)
	if !trigger.After(now) {
		return time.Time{}, ErrPastTrigger
	}
	return trigger, nil
}

func parseClock(timeStr string) (hours, mins int, err error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 || !allDigits(parts[0]) || !allDigits(parts[1]) {
		return 0, 0, fmt.Errorf("invalid time %q", timeStr)
	}
	hours, _ = strconv.Atoi(parts[0])
	mins, _ = strconv.Atoi(parts[1])
	if hours > 23 || mins > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", timeStr)
	}
	return hours, mins, nil
}

func splitDate(dateStr string) (day, month, year int, ok bool) {
	parts := strings.Split(dateStr, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	if len(parts[0]) < 1 || len(parts[0]) > 2 || len(parts[1]) < 1 || len(parts[1]) > 2 || len(parts[2]) != 4 {
		return 0, 0, 0, false
	}
	for _, p := range parts {
		if !allDigits(p) {
			return 0, 0, 0, false
		}
	}
	day, _ = strconv.Atoi(parts[0])
	month, _ = strconv.Atoi(parts[1])
	year, _ = strconv.Atoi(parts[2])
	return day, month, year, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
