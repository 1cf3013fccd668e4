package export

import (
	"database/sql"
	"testing"
	"time"

	"krutilka/internal/repository"
)

func TestBuildWeekGrids(t *testing.T) {
	stands := []repository.Stand{
		{ID: 5, Code: "T1"},
		{ID: 6, Code: "T2"},
	}
	slots := []repository.Slot{
		{ID: 1, SlotDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "12:00"},
		{ID: 2, SlotDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), StartTime: "12:00", EndTime: "14:00"},
		{ID: 3, SlotDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "12:00"},
		{ID: 4, SlotDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), StartTime: "14:00", EndTime: "16:00", IsCancelled: true},
	}
	reservations := map[int][]repository.Reservation{
		1: {
			{SlotID: 1, StandID: sql.NullInt64{Int64: 5, Valid: true}, Status: repository.StatusBooked,
				ClientID: sql.NullInt64{Int64: 42, Valid: true}, ClientName: "Иванов Пётр"},
			{SlotID: 1, StandID: sql.NullInt64{Int64: 6, Valid: true}, Status: repository.StatusAvailable},
		},
		2: {
			{SlotID: 2, StandID: sql.NullInt64{Int64: 5, Valid: true}, Status: repository.StatusBlocked},
			{SlotID: 2, StandID: sql.NullInt64{Int64: 6, Valid: true}, Status: repository.StatusAvailable},
		},
	}

	grids := BuildWeekGrids(slots, reservations, stands)

	if len(grids) != 2 {
		t.Fatalf("BuildWeekGrids() days = %d, want 2", len(grids))
	}

	day := grids[0]
	if len(day.Rows) != 2 {
		t.Fatalf("first day rows = %d, want 2", len(day.Rows))
	}
	if day.Rows[0].Window != "10:00–12:00" {
		t.Errorf("row window = %q, want %q", day.Rows[0].Window, "10:00–12:00")
	}
	if day.Rows[0].Cells[0] != "Иванов Пётр" {
		t.Errorf("booked cell = %q, want client name", day.Rows[0].Cells[0])
	}
	if day.Rows[0].Cells[1] != FreeCell {
		t.Errorf("available cell = %q, want %q", day.Rows[0].Cells[1], FreeCell)
	}
	if day.Rows[1].Cells[0] != repository.StatusBlocked {
		t.Errorf("blocked cell = %q, want status text", day.Rows[1].Cells[0])
	}

	// У второго дня один слот: отменённый не попадает в сетку
	if len(grids[1].Rows) != 1 {
		t.Errorf("second day rows = %d, want 1", len(grids[1].Rows))
	}
}

func TestBuildWeekGrids_Empty(t *testing.T) {
	grids := BuildWeekGrids(nil, nil, []repository.Stand{{ID: 1, Code: "T1"}})
	if len(grids) != 0 {
		t.Errorf("BuildWeekGrids(no slots) = %d days, want 0", len(grids))
	}
}
