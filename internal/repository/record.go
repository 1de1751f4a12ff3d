package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type RecordRepository interface {
	Create(ctx context.Context, params model.CreateRecordParams) (*model.Record, error)
	FindByDeviceID(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error)
	FindRecent(ctx context.Context, limit int) ([]model.RecordView, error)
	FindOpenProblems(ctx context.Context) ([]model.OpenProblem, error)
	WithTx(tx *sqlx.Tx) RecordRepository
}

type recordRepo struct {
	db database.DBTX
}

func NewRecordRepository(db *sqlx.DB) RecordRepository {
	return &recordRepo{db: db}
}

func (r *recordRepo) WithTx(tx *sqlx.Tx) RecordRepository {
	return &recordRepo{db: tx}
}

const recordViewColumns = `
	r.id, r.text, r.kind, r.created_at, r.reporter_id, r.device_id,
	u.name AS reporter_name, d.name AS device_name, d."group" AS device_group
`

func (r *recordRepo) Create(ctx context.Context, params model.CreateRecordParams) (*model.Record, error) {
	var record model.Record
	err := r.db.GetContext(ctx, &record, `
		INSERT INTO records (reporter_id, device_id, kind, text)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ReporterID, params.DeviceID, params.Kind, params.Text)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *recordRepo) FindByDeviceID(ctx context.Context, deviceID int64, limit int) ([]model.RecordView, error) {
	var records []model.RecordView
	err := r.db.SelectContext(ctx, &records, `
		SELECT `+recordViewColumns+`
		FROM records r
		JOIN users u ON u.id = r.reporter_id
		JOIN devices d ON d.id = r.device_id
		WHERE r.device_id = $1
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2
	`, deviceID, limit)
	return records, err
}

func (r *recordRepo) FindRecent(ctx context.Context, limit int) ([]model.RecordView, error) {
	var records []model.RecordView
	err := r.db.SelectContext(ctx, &records, `
		SELECT `+recordViewColumns+`
		FROM records r
		JOIN users u ON u.id = r.reporter_id
		JOIN devices d ON d.id = r.device_id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1
	`, limit)
	return records, err
}

func (r *recordRepo) FindOpenProblems(ctx context.Context) ([]model.OpenProblem, error) {
	var problems []model.OpenProblem
	err := r.db.SelectContext(ctx, &problems, `
		SELECT
			d.id AS device_id, d.name AS device_name, d."group" AS device_group,
			latest.id AS record_id, latest.text, latest.created_at AS reported_at,
			u.name AS reporter_name
		FROM devices d
		JOIN LATERAL (
			SELECT * FROM records
			WHERE records.device_id = d.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) latest ON TRUE
		JOIN users u ON u.id = latest.reporter_id
		WHERE latest.kind = 'problem'
		ORDER BY latest.created_at DESC
	`)
	return problems, err
}
