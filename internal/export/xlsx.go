package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"krutilka/internal/repository"
)

var weekdayNames = []string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

// sheetName возвращает имя листа для дня сетки
func sheetName(g DayGrid) string {
	return fmt.Sprintf("%s %s", weekdayNames[int(g.Date.Weekday())], g.Date.Format("02.01"))
}

// BuildWorkbook собирает книгу недели: по листу на день,
// строки — окна слотов, колонки — станки
func BuildWorkbook(week *repository.Week, grids []DayGrid) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	for idx, g := range grids {
		sheet := sheetName(g)
		if idx == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, err
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}

		// Заголовок: окно, метка, станки
		if err := f.SetCellValue(sheet, "A1", "Время"); err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, "B1", "Занятие")
		for i, code := range g.Stands {
			cell, _ := excelize.CoordinatesToCellName(i+3, 1)
			f.SetCellValue(sheet, cell, code)
		}
		lastCol, _ := excelize.CoordinatesToCellName(len(g.Stands)+2, 1)
		f.SetCellStyle(sheet, "A1", lastCol, headerStyle)

		for r, row := range g.Rows {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", r+2), row.Window)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", r+2), row.Label)
			for c, cell := range row.Cells {
				name, _ := excelize.CoordinatesToCellName(c+3, r+2)
				f.SetCellValue(sheet, name, cell)
			}
		}

		f.SetColWidth(sheet, "A", "A", 14)
		f.SetColWidth(sheet, "B", "B", 16)
	}

	return f, nil
}

// WorkbookFileName возвращает имя файла выгрузки недели
func WorkbookFileName(week *repository.Week) string {
	return fmt.Sprintf("расписание_%s.xlsx", week.WeekStartDate.Format("2006-01-02"))
}
