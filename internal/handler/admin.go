package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/issuetracker/tracker-bot-go/internal/audit"
	"github.com/issuetracker/tracker-bot-go/internal/config"
	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
	"github.com/issuetracker/tracker-bot-go/internal/httputil"
	"github.com/issuetracker/tracker-bot-go/internal/model"
	"github.com/issuetracker/tracker-bot-go/internal/service"
)

type RecordReader interface {
	DeviceHistory(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error)
	ListOpenProblems(ctx context.Context) ([]model.OpenProblem, error)
	RecentRecords(ctx context.Context, limit int) ([]model.RecordView, error)
}

type DeviceLookup interface {
	GetDevice(ctx context.Context, id int64) (*model.Device, error)
}

type ContextSyncer interface {
	Sync(ctx context.Context) (*service.SyncResult, error)
}

type ReportExporter interface {
	Export(ctx context.Context) (*service.ExportResult, error)
}

type AdminHandler struct {
	records  RecordReader
	devices  DeviceLookup
	syncer   ContextSyncer
	exporter ReportExporter
}

// NewAdminHandler builds the admin API. syncer and exporter are nil when the
// spreadsheet integration is not configured.
func NewAdminHandler(
	records RecordReader,
	devices DeviceLookup,
	syncer ContextSyncer,
	exporter ReportExporter,
) *AdminHandler {
	return &AdminHandler{
		records:  records,
		devices:  devices,
		syncer:   syncer,
		exporter: exporter,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/sync", h.Sync)
	r.Post("/export", h.Export)

	r.Get("/open-problems", h.OpenProblems)
	r.Get("/records", h.RecentRecords)
	r.Get("/devices/{id}/records", h.DeviceRecords)

	return r
}

func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h.syncer == nil {
		writeSheetsDisabled(w)
		return
	}

	result, err := h.syncer.Sync(r.Context())
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventContextSync,
		Details: map[string]interface{}{"success": err == nil},
	})
	if err != nil {
		log.Error().Err(err).Msg("admin context sync failed")
		httputil.WriteError(w, apperrors.External("context sync", err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		writeSheetsDisabled(w)
		return
	}

	result, err := h.exporter.Export(r.Context())
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventReportsExport,
		Details: map[string]interface{}{"success": err == nil},
	})
	if err != nil {
		log.Error().Err(err).Msg("admin records export failed")
		httputil.WriteError(w, apperrors.External("records export", err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeSheetsDisabled(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error": "Spreadsheet integration is not configured",
	})
}

func (h *AdminHandler) OpenProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.records.ListOpenProblems(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list open problems")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	writeList(w, problems)
}

func (h *AdminHandler) RecentRecords(w http.ResponseWriter, r *http.Request) {
	limit, err := ParseLimit(r, DefaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.records.RecentRecords(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recent records")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	writeList(w, records)
}

func (h *AdminHandler) DeviceRecords(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, apperrors.InvalidInput("id", "must be a positive integer"))
		return
	}

	limit, err := ParseLimit(r, config.DeviceHistoryLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	device, err := h.devices.GetDevice(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("deviceId", id).Msg("failed to get device")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if device == nil {
		httputil.WriteError(w, apperrors.NotFound("device"))
		return
	}

	records, err := h.records.DeviceHistory(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Int64("deviceId", id).Msg("failed to get device history")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if records == nil {
		records = []model.RecordView{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device": device,
		"items":  records,
		"total":  len(records),
	})
}
