package export

import (
	"bytes"
	"fmt"

	"krutilka/internal/repository"
)

// Exporter собирает данные недели из хранилища в сетку и книгу
type Exporter struct {
	repos *repository.Repository
}

// NewExporter создаёт экспортёр расписания
func NewExporter(repos *repository.Repository) *Exporter {
	return &Exporter{repos: repos}
}

// WeekGrids загружает неделю и строит её сетку
func (e *Exporter) WeekGrids(weekID int) (*repository.Week, []DayGrid, error) {
	week, err := e.repos.Schedule.GetWeekByID(weekID)
	if err != nil {
		return nil, nil, err
	}
	if week == nil {
		return nil, nil, fmt.Errorf("неделя %d: %w", weekID, repository.ErrNotFound)
	}

	slots, err := e.repos.Schedule.ListSlotsForWeek(weekID)
	if err != nil {
		return nil, nil, err
	}

	reservationsBySlot := make(map[int][]repository.Reservation, len(slots))
	for _, slot := range slots {
		rvs, err := e.repos.Reservation.ListForSlot(slot.ID)
		if err != nil {
			return nil, nil, err
		}
		reservationsBySlot[slot.ID] = rvs
	}

	stands, err := e.repos.Stand.ListActive()
	if err != nil {
		return nil, nil, err
	}

	return week, BuildWeekGrids(slots, reservationsBySlot, stands), nil
}

// WeekWorkbookBytes строит xlsx-книгу недели и отдаёт её содержимое
func (e *Exporter) WeekWorkbookBytes(weekID int) (string, []byte, error) {
	week, grids, err := e.WeekGrids(weekID)
	if err != nil {
		return "", nil, err
	}

	f, err := BuildWorkbook(week, grids)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", nil, err
	}
	return WorkbookFileName(week), buf.Bytes(), nil
}
