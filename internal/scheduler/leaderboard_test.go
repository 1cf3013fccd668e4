package scheduler

import (
	"strings"
	"testing"
	"time"

	"krutilka/internal/repository"
)

func TestMonthRange(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	from, to := monthRange(time.Date(2024, 3, 15, 12, 0, 0, 0, loc))

	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, loc); !from.Equal(want) {
		t.Errorf("monthRange() from = %v, want %v", from, want)
	}
	if want := time.Date(2024, 4, 1, 0, 0, 0, 0, loc); !to.Equal(want) {
		t.Errorf("monthRange() to = %v, want %v", to, want)
	}
}

func TestFormatLeaderboard(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	rows := []repository.LeaderboardRow{
		{ClientID: 1, ClientName: "Иванов Пётр", Rides: 12, DistanceM: 412500, ElapsedSec: 16 * 3600},
		{ClientID: 2, ClientName: "Сидоров Павел", Rides: 8, DistanceM: 250000, ElapsedSec: 10 * 3600},
	}

	msg := formatLeaderboard(from, rows)

	for _, want := range []string{"02.2024", "1. Иванов Пётр", "412.5 км", "12 тренировок", "2. Сидоров Павел"} {
		if !strings.Contains(msg, want) {
			t.Errorf("formatLeaderboard() = %q, want substring %q", msg, want)
		}
	}
	if strings.HasSuffix(msg, "\n") {
		t.Error("formatLeaderboard() ends with newline")
	}
}
