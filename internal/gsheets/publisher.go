package gsheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"krutilka/internal/export"
)

// Publisher публикует сетку недели в Google-таблицу: по листу на день.
// Таблица — зеркало для тренеров, источник истины всегда БД.
type Publisher struct {
	sheets        *sheets.Service
	spreadsheetID string
}

// NewPublisher создаёт издателя по сервисному аккаунту
func NewPublisher(credentialsPath, spreadsheetID string) (*Publisher, error) {
	ctx := context.Background()

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать credentials: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Sheets сервиса: %w", err)
	}

	return &Publisher{sheets: srv, spreadsheetID: spreadsheetID}, nil
}

// PublishWeek переписывает листы таблицы сеткой недели
func (p *Publisher) PublishWeek(grids []export.DayGrid) error {
	ctx := context.Background()

	existing, err := p.existingSheets(ctx)
	if err != nil {
		return err
	}

	for _, g := range grids {
		title := g.Date.Format("02.01.2006")

		if !existing[title] {
			if err := p.addSheet(ctx, title); err != nil {
				return fmt.Errorf("лист %s: %w", title, err)
			}
			existing[title] = true
		}

		if _, err := p.sheets.Spreadsheets.Values.Clear(
			p.spreadsheetID, title, &sheets.ClearValuesRequest{},
		).Context(ctx).Do(); err != nil {
			return fmt.Errorf("очистка листа %s: %w", title, err)
		}

		values := gridValues(g)
		if _, err := p.sheets.Spreadsheets.Values.Update(
			p.spreadsheetID, title+"!A1", &sheets.ValueRange{Values: values},
		).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("запись листа %s: %w", title, err)
		}
	}
	return nil
}

func (p *Publisher) existingSheets(ctx context.Context) (map[string]bool, error) {
	spreadsheet, err := p.sheets.Spreadsheets.Get(p.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("таблица не получена: %w", err)
	}

	titles := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		titles[s.Properties.Title] = true
	}
	return titles, nil
}

func (p *Publisher) addSheet(ctx context.Context, title string) error {
	_, err := p.sheets.Spreadsheets.BatchUpdate(p.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			},
		},
	}).Context(ctx).Do()
	return err
}

// gridValues разворачивает сетку дня в строки листа
func gridValues(g export.DayGrid) [][]interface{} {
	header := make([]interface{}, 0, len(g.Stands)+2)
	header = append(header, "Время", "Занятие")
	for _, code := range g.Stands {
		header = append(header, code)
	}

	values := [][]interface{}{header}
	for _, row := range g.Rows {
		line := make([]interface{}, 0, len(row.Cells)+2)
		line = append(line, row.Window, row.Label)
		for _, cell := range row.Cells {
			line = append(line, cell)
		}
		values = append(values, line)
	}
	return values
}
