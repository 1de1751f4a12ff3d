package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type DeviceRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Device, error)
	FindAll(ctx context.Context) ([]model.Device, error)
	FindWithOpenProblem(ctx context.Context) ([]model.Device, error)
	FindWithRecords(ctx context.Context) ([]model.Device, error)
	Upsert(ctx context.Context, params model.UpsertDeviceParams) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) DeviceRepository
}

type deviceRepo struct {
	db database.DBTX
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) WithTx(tx *sqlx.Tx) DeviceRepository {
	return &deviceRepo{db: tx}
}

func (r *deviceRepo) FindByID(ctx context.Context, id int64) (*model.Device, error) {
	return getOne[model.Device](ctx, r.db, `
		SELECT * FROM devices WHERE id = $1
	`, id)
}

func (r *deviceRepo) FindAll(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.SelectContext(ctx, &devices, `
		SELECT * FROM devices
		ORDER BY "group" ASC, name ASC
	`)
	return devices, err
}

// FindWithOpenProblem returns devices whose most recent record is a problem.
func (r *deviceRepo) FindWithOpenProblem(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.SelectContext(ctx, &devices, `
		SELECT d.* FROM devices d
		JOIN LATERAL (
			SELECT kind FROM records
			WHERE records.device_id = d.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) latest ON TRUE
		WHERE latest.kind = 'problem'
		ORDER BY d."group" ASC, d.name ASC
	`)
	return devices, err
}

func (r *deviceRepo) FindWithRecords(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.SelectContext(ctx, &devices, `
		SELECT d.* FROM devices d
		WHERE EXISTS (SELECT 1 FROM records WHERE records.device_id = d.id)
		ORDER BY d."group" ASC, d.name ASC
	`)
	return devices, err
}

func (r *deviceRepo) Upsert(ctx context.Context, params model.UpsertDeviceParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, "group", serial_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			"group" = EXCLUDED."group",
			serial_number = EXCLUDED.serial_number
	`, params.ID, params.Name, params.Group, params.SerialNumber)
	return err
}
