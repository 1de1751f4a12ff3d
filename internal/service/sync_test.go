package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type stubSource struct {
	snapshot *ContextSnapshot
	err      error
}

func (s stubSource) FetchContext(ctx context.Context) (*ContextSnapshot, error) {
	return s.snapshot, s.err
}

type stubRefresher struct {
	calls int
	err   error
}

func (s *stubRefresher) Refresh(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestPlanSync(t *testing.T) {
	plan := planSync(&ContextSnapshot{
		Devices: []model.UpsertDeviceParams{
			{ID: 1, Name: " D1 ", Group: " A "},
			{ID: 0, Name: "broken"},
			{ID: 2, Name: ""},
			{ID: 1, Name: "D1-renamed", Group: "A"},
		},
		Messages: []model.UpsertPredefinedMessageParams{
			{Ref: "p1", Text: "no power", Kind: model.ReportKindProblem},
			{Ref: "p1", Text: "no power at all", Kind: model.ReportKindProblem},
			{Ref: "p1", Text: "rebooted", Kind: model.ReportKindSolution},
			{Ref: "", Text: "orphan", Kind: model.ReportKindProblem},
			{Ref: "x", Text: "unknown kind", Kind: "status"},
		},
	})

	require.Len(t, plan.devices, 1)
	assert.Equal(t, "D1-renamed", plan.devices[0].Name)

	require.Len(t, plan.messages, 2)
	assert.Equal(t, "no power at all", plan.messages[0].Text)
	assert.Equal(t, []string{"p1"}, plan.refs[model.ReportKindProblem])
	assert.Equal(t, []string{"p1"}, plan.refs[model.ReportKindSolution])
	assert.Equal(t, 4, plan.skipped)
}

func TestContextSyncService_Sync(t *testing.T) {
	ctx := context.Background()
	snapshot := &ContextSnapshot{
		Devices: []model.UpsertDeviceParams{
			{ID: 1, Name: "D1", Group: "A"},
			{ID: 2, Name: "D2", Group: "B"},
		},
		Messages: []model.UpsertPredefinedMessageParams{
			{Ref: "p1", Text: "no power", Kind: model.ReportKindProblem},
			{Ref: "p2", Text: "overheat", Kind: model.ReportKindProblem},
		},
	}

	devices := new(mockDeviceRepo)
	messages := new(mockMessageRepo)
	devices.On("Upsert", ctx, mock.AnythingOfType("model.UpsertDeviceParams")).Return(nil).Twice()
	messages.On("Upsert", ctx, mock.AnythingOfType("model.UpsertPredefinedMessageParams")).Return(nil).Twice()
	messages.On("DeleteMissing", ctx, model.ReportKindProblem, []string{"p1", "p2"}).Return(int64(3), nil)

	tx := &fakeTx{}
	cache := &stubRefresher{}
	svc := NewContextSyncService(stubSource{snapshot: snapshot}, tx, devices, messages, cache)

	result, err := svc.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Devices: 2, Messages: 2, DeletedMessages: 3}, result)
	assert.Equal(t, 1, tx.calls)
	assert.Equal(t, 1, cache.calls)
	devices.AssertExpectations(t)
	messages.AssertExpectations(t)
	// no solution rows: existing solutions are kept
	messages.AssertNotCalled(t, "DeleteMissing", ctx, model.ReportKindSolution, mock.Anything)
}

func TestContextSyncService_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("source error", func(t *testing.T) {
		tx := &fakeTx{}
		cache := &stubRefresher{}
		svc := NewContextSyncService(stubSource{err: errors.New("403")}, tx, new(mockDeviceRepo), new(mockMessageRepo), cache)

		_, err := svc.Sync(ctx)

		assert.ErrorContains(t, err, "fetch context")
		assert.Zero(t, tx.calls)
		assert.Zero(t, cache.calls)
	})

	t.Run("write error skips refresh", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("Upsert", ctx, mock.Anything).Return(errors.New("deadlock"))
		tx := &fakeTx{}
		cache := &stubRefresher{}
		svc := NewContextSyncService(stubSource{snapshot: &ContextSnapshot{
			Devices: []model.UpsertDeviceParams{{ID: 1, Name: "D1"}},
		}}, tx, devices, new(mockMessageRepo), cache)

		_, err := svc.Sync(ctx)

		assert.ErrorContains(t, err, "upsert device 1")
		assert.Error(t, tx.err)
		assert.Zero(t, cache.calls)
	})
	t.Run("refresh error keeps committed result", func(t *testing.T) {
		devices := new(mockDeviceRepo)
		devices.On("Upsert", ctx, mock.Anything).Return(nil)
		tx := &fakeTx{}
		cache := &stubRefresher{err: errors.New("connection refused")}
		svc := NewContextSyncService(stubSource{snapshot: &ContextSnapshot{
			Devices: []model.UpsertDeviceParams{{ID: 1, Name: "D1"}},
		}}, tx, devices, new(mockMessageRepo), cache)

		result, err := svc.Sync(ctx)

		require.NoError(t, err)
		assert.Equal(t, &SyncResult{Devices: 1, CacheStale: true}, result)
		assert.NoError(t, tx.err)
		assert.Equal(t, 1, cache.calls)
	})
}
