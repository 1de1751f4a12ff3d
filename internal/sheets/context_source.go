package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/service"
)

// Ranges of the context spreadsheet. Row 1 of every tab is a header.
const (
	DevicesRange   = "Devices!A2:D"
	ProblemsRange  = "Problems!A2:B"
	SolutionsRange = "Solutions!A2:B"
)

var _ service.ContextSource = (*ContextSource)(nil)

// ContextSource reads devices and predefined messages from the context
// spreadsheet.
type ContextSource struct {
	api           API
	spreadsheetID string
}

func NewContextSource(api API, spreadsheetID string) *ContextSource {
	return &ContextSource{api: api, spreadsheetID: spreadsheetID}
}

func (s *ContextSource) FetchContext(ctx context.Context) (*service.ContextSnapshot, error) {
	deviceRows, err := s.api.GetValues(ctx, s.spreadsheetID, DevicesRange)
	if err != nil {
		return nil, err
	}

	snapshot := &service.ContextSnapshot{Devices: parseDevices(deviceRows)}

	for _, src := range []struct {
		rng  string
		kind model.ReportKind
	}{
		{ProblemsRange, model.ReportKindProblem},
		{SolutionsRange, model.ReportKindSolution},
	} {
		rows, err := s.api.GetValues(ctx, s.spreadsheetID, src.rng)
		if err != nil {
			return nil, err
		}
		snapshot.Messages = append(snapshot.Messages, parseMessages(rows, src.kind)...)
	}

	return snapshot, nil
}

// parseDevices reads id, group, name and an optional serial number.
func parseDevices(rows [][]interface{}) []model.UpsertDeviceParams {
	devices := make([]model.UpsertDeviceParams, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		id, err := strconv.ParseInt(cell(row, 0), 10, 64)
		if err != nil {
			log.Warn().Int("row", i+2).Str("value", cell(row, 0)).Msg("skipping device row with invalid id")
			continue
		}
		d := model.UpsertDeviceParams{
			ID:    id,
			Group: cell(row, 1),
			Name:  cell(row, 2),
		}
		if serial := cell(row, 3); serial != "" {
			d.SerialNumber = &serial
		}
		devices = append(devices, d)
	}
	return devices
}

// parseMessages reads ref and text.
func parseMessages(rows [][]interface{}, kind model.ReportKind) []model.UpsertPredefinedMessageParams {
	msgs := make([]model.UpsertPredefinedMessageParams, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		msgs = append(msgs, model.UpsertPredefinedMessageParams{
			Ref:  cell(row, 0),
			Text: cell(row, 1),
			Kind: kind,
		})
	}
	return msgs
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func isBlank(row []interface{}) bool {
	for i := range row {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}
