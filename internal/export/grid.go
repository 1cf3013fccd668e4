package export

import (
	"time"

	"krutilka/internal/repository"
)

// FreeCell — текст ячейки свободного станка
const FreeCell = "свободно"

// GridRow — строка сетки: одно окно слота, ячейки по станкам
type GridRow struct {
	Window string // 10:00–12:00
	Label  string
	Cells  []string
}

// DayGrid — сетка одного дня: колонки — станки, строки — слоты
type DayGrid struct {
	Date   time.Time
	Stands []string
	Rows   []GridRow
}

// BuildWeekGrids собирает сетку недели из слотов, броней и реестра
// станков. Отменённые слоты пропускаются. Порядок станков задаёт
// порядок колонок во всех выгрузках.
func BuildWeekGrids(slots []repository.Slot, reservationsBySlot map[int][]repository.Reservation, stands []repository.Stand) []DayGrid {
	standCodes := make([]string, len(stands))
	standIndex := make(map[int64]int, len(stands))
	for i, s := range stands {
		standCodes[i] = s.Code
		standIndex[int64(s.ID)] = i
	}

	byDate := make(map[string]*DayGrid)
	var order []string

	for _, slot := range slots {
		if slot.IsCancelled {
			continue
		}

		key := slot.SlotDate.Format("2006-01-02")
		grid, ok := byDate[key]
		if !ok {
			grid = &DayGrid{Date: slot.SlotDate, Stands: standCodes}
			byDate[key] = grid
			order = append(order, key)
		}

		row := GridRow{
			Window: slot.StartTime + "–" + slot.EndTime,
			Label:  slot.Label,
			Cells:  make([]string, len(stands)),
		}
		for i := range row.Cells {
			row.Cells[i] = FreeCell
		}
		for _, rv := range reservationsBySlot[slot.ID] {
			if !rv.StandID.Valid {
				continue
			}
			i, ok := standIndex[rv.StandID.Int64]
			if !ok {
				continue
			}
			if rv.Status == repository.StatusBooked && rv.ClientName != "" {
				row.Cells[i] = rv.ClientName
			} else if rv.Status != repository.StatusAvailable {
				row.Cells[i] = rv.Status
			}
		}
		grid.Rows = append(grid.Rows, row)
	}

	grids := make([]DayGrid, 0, len(order))
	for _, key := range order {
		grids = append(grids, *byDate[key])
	}
	return grids
}
