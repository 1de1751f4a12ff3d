package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/conversation"
	"github.com/issuetracker/tracker-bot-go/internal/repository"
)

// ExportHeader is the first row of every export tab.
var ExportHeader = []string{"id", "created_at", "kind", "device", "reporter", "text"}

const exportTitleFormat = "2006-01-02"

// TableWriter writes rows into a named tab, replacing its content.
type TableWriter interface {
	WriteTable(ctx context.Context, title string, rows [][]string) error
}

type ExportResult struct {
	Sheet   string `json:"sheet"`
	Records int    `json:"records"`
}

// ExportService copies the latest records into the tracking spreadsheet.
type ExportService struct {
	recordRepo repository.RecordRepository
	writer     TableWriter
	now        func() time.Time
}

func NewExportService(recordRepo repository.RecordRepository, writer TableWriter) *ExportService {
	return &ExportService{
		recordRepo: recordRepo,
		writer:     writer,
		now:        time.Now,
	}
}

func (s *ExportService) Export(ctx context.Context) (*ExportResult, error) {
	records, err := s.recordRepo.FindRecent(ctx, config.ExportRecordsLimit)
	if err != nil {
		return nil, fmt.Errorf("find recent records: %w", err)
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, ExportHeader)
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.Format(conversation.TimeFormat),
			string(r.Kind),
			r.DeviceGroup + "-" + r.DeviceName,
			r.ReporterName,
			r.Text,
		})
	}

	title := s.now().Format(exportTitleFormat)
	if err := s.writer.WriteTable(ctx, title, rows); err != nil {
		return nil, fmt.Errorf("write export tab %q: %w", title, err)
	}

	log.Info().
		Str("sheet", title).
		Int("records", len(records)).
		Msg("records exported")

	return &ExportResult{Sheet: title, Records: len(records)}, nil
}
