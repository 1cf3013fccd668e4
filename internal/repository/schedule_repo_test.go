package repository

import (
	"testing"
	"time"
)

func TestMondayOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want time.Time
	}{
		{
			"monday stays",
			time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC),
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"wednesday rolls back",
			time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday rolls back six days",
			time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC),
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			"month boundary",
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MondayOf(tt.date); !got.Equal(tt.want) {
				t.Errorf("MondayOf(%v) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	if _, err := ParseClock("09:30"); err != nil {
		t.Errorf("ParseClock(09:30) error = %v", err)
	}
	if _, err := ParseClock("20:30"); err != nil {
		t.Errorf("ParseClock(20:30) error = %v", err)
	}

	for _, bad := range []string{"9:30:00", "25:00", "abc", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) error = nil, want error", bad)
		}
	}
}

func TestDefaultDayTemplate(t *testing.T) {
	windows := defaultDayTemplate()
	if len(windows) != 8 {
		t.Fatalf("defaultDayTemplate() len = %d, want 8", len(windows))
	}
	if windows[0].Start != "06:00" {
		t.Errorf("first window start = %q, want 06:00", windows[0].Start)
	}
	if last := windows[len(windows)-1]; last.Start != "20:30" || last.End != "22:30" {
		t.Errorf("last window = %s–%s, want 20:30–22:30", last.Start, last.End)
	}

	// Окна не пересекаются и идут по порядку
	for i := 1; i < len(windows); i++ {
		if windows[i].Start < windows[i-1].End {
			t.Errorf("window %d starts at %s before previous ends at %s",
				i, windows[i].Start, windows[i-1].End)
		}
	}
}
