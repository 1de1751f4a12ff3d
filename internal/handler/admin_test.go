package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/issuetracker/tracker-bot-go/internal/config"
	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/service"
)

type mockRecords struct {
	mock.Mock
}

func (m *mockRecords) DeviceHistory(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecordView), args.Error(1)
}

func (m *mockRecords) ListOpenProblems(ctx context.Context) ([]model.OpenProblem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OpenProblem), args.Error(1)
}

func (m *mockRecords) RecentRecords(ctx context.Context, limit int) ([]model.RecordView, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RecordView), args.Error(1)
}

type stubDevices map[int64]*model.Device

func (s stubDevices) GetDevice(ctx context.Context, id int64) (*model.Device, error) {
	return s[id], nil
}

type stubSyncer struct {
	result *service.SyncResult
	err    error
}

func (s stubSyncer) Sync(ctx context.Context) (*service.SyncResult, error) {
	return s.result, s.err
}

type stubExporter struct {
	result *service.ExportResult
	err    error
}

func (s stubExporter) Export(ctx context.Context) (*service.ExportResult, error) {
	return s.result, s.err
}

var device7 = &model.Device{ID: 7, Name: "D7", Group: "Lab"}

func serve(h *AdminHandler, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Mount("/admin", h.Routes())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAdminHandler_DeviceRecords(t *testing.T) {
	history := []model.RecordView{{
		Record:       model.Record{ID: 3, Text: "fan noise", Kind: model.ReportKindProblem, CreatedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), DeviceID: 7},
		ReporterName: "Alice",
		DeviceName:   "D7",
		DeviceGroup:  "Lab",
	}}

	t.Run("default limit", func(t *testing.T) {
		records := new(mockRecords)
		records.On("DeviceHistory", mock.Anything, int64(7), config.DeviceHistoryLimit).Return(history, nil)

		w := serve(NewAdminHandler(records, stubDevices{7: device7}, nil, nil), http.MethodGet, "/admin/devices/7/records")

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(1), body["total"])
		assert.Equal(t, "D7", body["device"].(map[string]any)["name"])
		item := body["items"].([]any)[0].(map[string]any)
		assert.Equal(t, "fan noise", item["text"])
		assert.Equal(t, "Alice", item["reporterName"])
		records.AssertExpectations(t)
	})

	t.Run("explicit limit", func(t *testing.T) {
		records := new(mockRecords)
		records.On("DeviceHistory", mock.Anything, int64(7), 3).Return([]model.RecordView(nil), nil)

		w := serve(NewAdminHandler(records, stubDevices{7: device7}, nil, nil), http.MethodGet, "/admin/devices/7/records?limit=3")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{}, decode(t, w)["items"])
	})

	t.Run("unknown device", func(t *testing.T) {
		records := new(mockRecords)

		w := serve(NewAdminHandler(records, stubDevices{}, nil, nil), http.MethodGet, "/admin/devices/8/records")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
		records.AssertNotCalled(t, "DeviceHistory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := serve(NewAdminHandler(new(mockRecords), stubDevices{}, nil, nil), http.MethodGet, "/admin/devices/abc/records")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid limit", func(t *testing.T) {
		w := serve(NewAdminHandler(new(mockRecords), stubDevices{7: device7}, nil, nil), http.MethodGet, "/admin/devices/7/records?limit=-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_INPUT", decode(t, w)["code"])
	})

	t.Run("store failure", func(t *testing.T) {
		records := new(mockRecords)
		records.On("DeviceHistory", mock.Anything, int64(7), config.DeviceHistoryLimit).Return(nil, errors.New("conn reset"))

		w := serve(NewAdminHandler(records, stubDevices{7: device7}, nil, nil), http.MethodGet, "/admin/devices/7/records")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "DATABASE_ERROR", decode(t, w)["code"])
	})
}

func TestAdminHandler_OpenProblems(t *testing.T) {
	records := new(mockRecords)
	records.On("ListOpenProblems", mock.Anything).Return([]model.OpenProblem{
		{DeviceID: 7, DeviceName: "D7", DeviceGroup: "Lab", Text: "no power"},
	}, nil)

	w := serve(NewAdminHandler(records, stubDevices{}, nil, nil), http.MethodGet, "/admin/open-problems")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, "no power", body["items"].([]any)[0].(map[string]any)["text"])
}

func TestAdminHandler_RecentRecords(t *testing.T) {
	records := new(mockRecords)
	records.On("RecentRecords", mock.Anything, MaxLimit).Return([]model.RecordView{}, nil)

	w := serve(NewAdminHandler(records, stubDevices{}, nil, nil), http.MethodGet, "/admin/records?limit=50000")

	assert.Equal(t, http.StatusOK, w.Code)
	records.AssertExpectations(t)
}

func TestAdminHandler_Sync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := NewAdminHandler(new(mockRecords), stubDevices{}, stubSyncer{result: &service.SyncResult{Devices: 2, Messages: 4}}, nil)
		w := serve(h, http.MethodPost, "/admin/sync")

		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(2), body["devices"])
		assert.Equal(t, float64(4), body["messages"])
	})

	t.Run("failure", func(t *testing.T) {
		h := NewAdminHandler(new(mockRecords), stubDevices{}, stubSyncer{err: errors.New("403 from sheets")}, nil)
		w := serve(h, http.MethodPost, "/admin/sync")

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "EXTERNAL_SERVICE_ERROR", decode(t, w)["code"])
	})

	t.Run("not configured", func(t *testing.T) {
		w := serve(NewAdminHandler(new(mockRecords), stubDevices{}, nil, nil), http.MethodPost, "/admin/sync")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestAdminHandler_Export(t *testing.T) {
	h := NewAdminHandler(new(mockRecords), stubDevices{}, nil, stubExporter{result: &service.ExportResult{Sheet: "2024-03-16", Records: 12}})
	w := serve(h, http.MethodPost, "/admin/export")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-03-16", body["sheet"])
	assert.Equal(t, float64(12), body["records"])
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{query: "", want: 10},
		{query: "?limit=5", want: 5},
		{query: "?limit=5000", want: MaxLimit},
		{query: "?limit=0", wantErr: true},
		{query: "?limit=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := ParseLimit(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), 10)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
