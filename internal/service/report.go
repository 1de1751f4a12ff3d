package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/audit"
	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/conversation"
	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/repository"
)

var _ conversation.RecordStore = (*ReportService)(nil)

// ReportService stores records and reporters and serves the record derived
// views of the conversation.
type ReportService struct {
	userRepo   repository.UserRepository
	recordRepo repository.RecordRepository
}

func NewReportService(
	userRepo repository.UserRepository,
	recordRepo repository.RecordRepository,
) *ReportService {
	return &ReportService{
		userRepo:   userRepo,
		recordRepo: recordRepo,
	}
}

func (s *ReportService) CreateRecord(ctx context.Context, params model.CreateRecordParams) (*model.Record, error) {
	if !params.Kind.Valid() {
		return nil, apperrors.InvalidInput("kind", string(params.Kind))
	}
	params.Text = strings.TrimSpace(params.Text)
	if params.Text == "" {
		return nil, apperrors.InvalidInput("text", "must not be empty")
	}

	record, err := s.recordRepo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	log.Info().
		Int64("recordId", record.ID).
		Int64("deviceId", record.DeviceID).
		Int64("reporterId", record.ReporterID).
		Str("kind", string(record.Kind)).
		Msg("record stored")

	audit.Log(ctx, audit.Event{
		Type:   audit.EventRecordCreate,
		Source: audit.SourceTelegram,
		Details: map[string]interface{}{
			"recordId": record.ID,
			"deviceId": record.DeviceID,
			"kind":     string(record.Kind),
		},
	})

	return record, nil
}

// GetOrCreateReporter registers the Telegram user on first use and keeps the
// stored name current afterwards.
func (s *ReportService) GetOrCreateReporter(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%d", telegramID)
	}

	user, err := s.userRepo.Upsert(ctx, model.UpsertUserParams{
		TelegramID: telegramID,
		Name:       name,
		Role:       model.RoleReporter,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert reporter: %w", err)
	}
	return user, nil
}

func (s *ReportService) DeviceHistory(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error) {
	if limit <= 0 {
		limit = config.DeviceHistoryLimit
	}
	records, err := s.recordRepo.FindByDeviceID(ctx, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("find device records: %w", err)
	}
	return records, nil
}

func (s *ReportService) ListOpenProblems(ctx context.Context) ([]model.OpenProblem, error) {
	problems, err := s.recordRepo.FindOpenProblems(ctx)
	if err != nil {
		return nil, fmt.Errorf("find open problems: %w", err)
	}
	return problems, nil
}

func (s *ReportService) RecentRecords(ctx context.Context, limit int) ([]model.RecordView, error) {
	records, err := s.recordRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("find recent records: %w", err)
	}
	return records, nil
}
