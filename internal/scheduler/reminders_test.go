package scheduler

import (
	"testing"
	"time"
)

func TestReminderType(t *testing.T) {
	tests := []struct {
		name   string
		before time.Duration
		want   string
	}{
		{"four hours", 4 * time.Hour, "reminder_4h"},
		{"one hour", time.Hour, "reminder_1h"},
		{"ninety minutes", 90 * time.Minute, "reminder_1h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reminderType(tt.before); got != tt.want {
				t.Errorf("reminderType(%v) = %q, want %q", tt.before, got, tt.want)
			}
		})
	}
}
