package hours

import (
	"testing"
	"time"
)

func TestDayInterval(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		start time.Time
	}{
		{
			name:  "middle of day",
			input: time.Date(2021, time.October, 19, 10, 55, 41, 0, time.UTC),
			start: time.Date(2021, time.October, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly midnight",
			input: time.Date(2021, time.October, 19, 0, 0, 0, 0, time.UTC),
			start: time.Date(2021, time.October, 19, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "non utc input is normalized to the utc day",
			input: time.Date(2021, time.October, 19, 1, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
			start: time.Date(2021, time.October, 18, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DayInterval(tt.input)
			if !start.Equal(tt.start) {
				t.Errorf("DayInterval() start expected %v, got %v", tt.start, start)
			}
			if end.Sub(start) != 24*time.Hour {
				t.Errorf("DayInterval() expected 24h, got %v", end.Sub(start))
			}
		})
	}
}

func TestLatestDeliveryDay(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "before publication",
			now:      time.Date(2025, time.January, 10, 11, 59, 0, 0, time.UTC), // 12:59 CET
			expected: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "after publication",
			now:      time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC), // 13:00 CET
			expected: time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "summer time",
			now:      time.Date(2025, time.July, 1, 11, 0, 0, 0, time.UTC), // 13:00 CEST
			expected: time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "market day differs from utc day",
			now:      time.Date(2025, time.January, 10, 23, 30, 0, 0, time.UTC), // 00:30 CET next day
			expected: time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LatestDeliveryDay(tt.now); !got.Equal(tt.expected) {
				t.Errorf("LatestDeliveryDay() expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestFormatApi(t *testing.T) {
	tm := time.Date(2021, time.October, 18, 22, 0, 0, 0, time.UTC)
	if s := FormatApi(tm); s != "202110182200" {
		t.Errorf("FormatApi() expected %q, got %q", "202110182200", s)
	}
}

func TestParseIso(t *testing.T) {
	expected := time.Date(2021, time.October, 18, 22, 0, 0, 0, time.UTC)
	for _, s := range []string{"2021-10-18T22:00Z", "2021-10-18T22:00:00Z", "2021-10-19T00:00+02:00"} {
		got, err := ParseIso(s)
		if err != nil {
			t.Fatalf("ParseIso(%q): %v", s, err)
		}
		if !got.Equal(expected) {
			t.Errorf("ParseIso(%q) expected %v, got %v", s, expected, got)
		}
	}

	if _, err := ParseIso("yesterday"); err == nil {
		t.Errorf("ParseIso() expected an error for an invalid timestamp")
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2021-10-19")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if FormatDate(got) != "2021-10-19" {
		t.Errorf("ParseDate() round trip gave %s", FormatDate(got))
	}
	if _, err := ParseDate("19/10/2021"); err == nil {
		t.Errorf("ParseDate() expected an error")
	}
}

func TestLocationMarket(t *testing.T) {
	winter := LocationMarket(time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC))
	if _, offset := winter.Zone(); offset != 3600 {
		t.Errorf("LocationMarket() on winter date expected offset 3600 seconds, got %d", offset)
	}

	summer := LocationMarket(time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC))
	if _, offset := summer.Zone(); offset != 7200 {
		t.Errorf("LocationMarket() on summer date expected offset 7200 seconds, got %d", offset)
	}
}
