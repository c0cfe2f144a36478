package timeparsing

import (
	"testing"
	"time"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "+6h", want: time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{input: "-1d", want: time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{input: "-2w", want: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{input: "3m", want: time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)},
		{input: "+1y", want: time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{input: "", wantErr: true},
		{input: "1x", wantErr: true},
		{input: "++1d", wantErr: true},
		{input: "6h+", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCompactDurationLeapYear(t *testing.T) {
	got, err := ParseCompactDuration("+1d", time.Date(2024, 2, 28, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseAbsolute(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-03-15T14:30:00Z", time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)},
		{"2025-02-01", time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local)},
		{"2025-02-01 08:15", time.Date(2025, 2, 1, 8, 15, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAbsolute(tt.input)
			if err != nil {
				t.Fatalf("ParseAbsolute(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseAbsolute(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	if _, err := ParseAbsolute("last week"); err == nil {
		t.Error("expected error for non-absolute input")
	}
}

func TestParseNaturalLanguage(t *testing.T) {
	// Wednesday, January 15, 2025
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

	tests := []struct {
		input   string
		wantDay int
		wantErr bool
	}{
		{input: "yesterday", wantDay: 14},
		{input: "tomorrow", wantDay: 16},
		{input: "3 days ago", wantDay: 12},
		{input: "not a date at all", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNaturalLanguage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Year() != 2025 || got.Month() != time.January || got.Day() != tt.wantDay {
				t.Errorf("ParseNaturalLanguage(%q) = %v, want Jan %d 2025", tt.input, got, tt.wantDay)
			}
		})
	}
}

func TestParseRelativeTimeLayerPrecedence(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	got, err := ParseRelativeTime("+1d", now)
	if err != nil {
		t.Fatalf("ParseRelativeTime(+1d) error = %v", err)
	}
	if want := now.AddDate(0, 0, 1); !got.Equal(want) {
		t.Errorf("ParseRelativeTime(+1d) = %v, want %v", got, want)
	}

	got, err = ParseRelativeTime(" 2025-01-20 ", now)
	if err != nil {
		t.Fatalf("ParseRelativeTime(2025-01-20) error = %v", err)
	}
	if got.Day() != 20 || got.Month() != time.January {
		t.Errorf("ParseRelativeTime(2025-01-20) = %v", got)
	}

	if _, err := ParseRelativeTime("not-a-date", now); err == nil {
		t.Error("expected error for not-a-date")
	}
	if _, err := ParseRelativeTime("   ", now); err == nil {
		t.Error("expected error for blank input")
	}
}

func TestParsePast(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"7d", now.AddDate(0, 0, -7)},
		{"-7d", now.AddDate(0, 0, -7)},
		{"+1d", now.AddDate(0, 0, 1)},
		{"2025-06-01T00:00:00Z", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePast(tt.input, now)
			if err != nil {
				t.Fatalf("ParsePast(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParsePast(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
