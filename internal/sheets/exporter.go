package sheets

import (
	"context"
	"fmt"
	"slices"

	"github.com/issuetracker/tracker-bot-go/internal/service"
)

var _ service.TableWriter = (*Exporter)(nil)

// Exporter writes tables into tabs of the tracking spreadsheet.
type Exporter struct {
	api           API
	spreadsheetID string
}

func NewExporter(api API, spreadsheetID string) *Exporter {
	return &Exporter{api: api, spreadsheetID: spreadsheetID}
}

// WriteTable creates the tab when missing, otherwise clears it, and writes rows
// from A1.
func (e *Exporter) WriteTable(ctx context.Context, title string, rows [][]string) error {
	titles, err := e.api.SheetTitles(ctx, e.spreadsheetID)
	if err != nil {
		return err
	}

	tab := quoteTitle(title)
	if slices.Contains(titles, title) {
		if err := e.api.ClearValues(ctx, e.spreadsheetID, tab); err != nil {
			return err
		}
	} else if err := e.api.AddSheet(ctx, e.spreadsheetID, title); err != nil {
		return err
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return e.api.UpdateValues(ctx, e.spreadsheetID, tab+"!A1", values)
}

func quoteTitle(title string) string {
	return fmt.Sprintf("'%s'", title)
}
