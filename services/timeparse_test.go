package services

import (
	"errors"
	"testing"
	"time"
)

func TestFormatTimeInput(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"9", "09:00", false},
		{"14", "14:00", false},
		{"930", "09:30", false},
		{"1430", "14:30", false},
		{"9:30", "09:30", false},
		{"14.30", "14:30", false},
		{"0", "00:00", false},
		{"2359", "23:59", false},
		{"2575", "", true},
		{"25", "", true},
		{"961", "", true},
		{"", "", true},
		{"12345", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		got, err := FormatTimeInput(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FormatTimeInput(%q) = %q, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("FormatTimeInput(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatTimeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsValidRealDate(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"15/06/2025", true},
		{"1/1/2025", true},
		{"31/12/2025", true},
		{"29/02/2024", true},
		{"29/02/2023", false},
		{"31/02/2025", false},
		{"31/04/2025", false},
		{"00/01/2025", false},
		{"15/13/2025", false},
		{"15/00/2025", false},
		{"15/06/25", false},
		{"15-06-2025", false},
		{"15/06", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidRealDate(tt.date); got != tt.want {
			t.Errorf("IsValidRealDate(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestIsValidFutureDate(t *testing.T) {
	now := time.Date(2025, time.June, 15, 10, 30, 0, 0, time.Local)

	tests := []struct {
		date string
		want bool
	}{
		{"15/06/2025", true},
		{"16/06/2025", true},
		{"01/01/2026", true},
		{"14/06/2025", false},
		{"31/02/2026", false},
	}

	for _, tt := range tests {
		if got := isValidFutureDateAt(tt.date, now); got != tt.want {
			t.Errorf("isValidFutureDateAt(%q) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestComposeTrigger(t *testing.T) {
	now := time.Date(2025, time.June, 15, 10, 30, 0, 0, time.Local)

	got, err := composeTriggerAt("15/06/2025", "10:31", now)
	if err != nil {
		t.Fatalf("composeTriggerAt returned error: %v", err)
	}
	want := time.Date(2025, time.June, 15, 10, 31, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("composeTriggerAt = %v, want %v", got, want)
	}

	if _, err := composeTriggerAt("15/06/2025", "10:30", now); !errors.Is(err, ErrPastTrigger) {
		t.Errorf("trigger equal to now: got %v, want ErrPastTrigger", err)
	}
	if _, err := composeTriggerAt("14/06/2025", "23:59", now); !errors.Is(err, ErrPastTrigger) {
		t.Errorf("trigger yesterday: got %v, want ErrPastTrigger", err)
	}

	if _, err := composeTriggerAt("31/02/2026", "10:00", now); err == nil || errors.Is(err, ErrPastTrigger) {
		t.Errorf("invalid date: got %v, want a non-past error", err)
	}
	if _, err := composeTriggerAt("16/06/2025", "24:00", now); err == nil || errors.Is(err, ErrPastTrigger) {
		t.Errorf("invalid time: got %v, want a non-past error", err)
	}
}
