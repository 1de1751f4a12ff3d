package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Upsert(ctx context.Context, params model.UpsertUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockRecordRepo struct {
	mock.Mock
}

func (m *mockRecordRepo) Create(ctx context.Context, params model.CreateRecordParams) (*model.Record, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record), args.Error(1)
}

func (m *mockRecordRepo) FindByDeviceID(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecordView), args.Error(1)
}

func (m *mockRecordRepo) FindRecent(ctx context.Context, limit int) ([]model.RecordView, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecordView), args.Error(1)
}

func (m *mockRecordRepo) FindOpenProblems(ctx context.Context) ([]model.OpenProblem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OpenProblem), args.Error(1)
}

func (m *mockRecordRepo) WithTx(tx *sqlx.Tx) repository.RecordRepository {
	return m
}

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) FindByID(ctx context.Context, id int64) (*model.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Device), args.Error(1)
}

func (m *mockDeviceRepo) FindAll(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *mockDeviceRepo) FindWithOpenProblem(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *mockDeviceRepo) FindWithRecords(ctx context.Context) ([]model.Device, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Device), args.Error(1)
}

func (m *mockDeviceRepo) Upsert(ctx context.Context, params model.UpsertDeviceParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockDeviceRepo) WithTx(tx *sqlx.Tx) repository.DeviceRepository {
	return m
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id int64) (*model.PredefinedMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PredefinedMessage), args.Error(1)
}

func (m *mockMessageRepo) FindAll(ctx context.Context) ([]model.PredefinedMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PredefinedMessage), args.Error(1)
}

func (m *mockMessageRepo) FindByKind(ctx context.Context, kind model.ReportKind) ([]model.PredefinedMessage, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PredefinedMessage), args.Error(1)
}

func (m *mockMessageRepo) Upsert(ctx context.Context, params model.UpsertPredefinedMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *mockMessageRepo) DeleteMissing(ctx context.Context, kind model.ReportKind, keep []string) (int64, error) {
	args := m.Called(ctx, kind, keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMessageRepo) WithTx(tx *sqlx.Tx) repository.PredefinedMessageRepository {
	return m
}

// fakeTx runs the function without a real transaction and remembers the
// outcome.
type fakeTx struct {
	calls int
	err   error
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	f.err = fn(nil)
	return f.err
}
