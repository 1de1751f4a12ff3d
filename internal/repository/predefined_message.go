package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type PredefinedMessageRepository interface {
	FindByID(ctx context.Context, id int64) (*model.PredefinedMessage, error)
	FindAll(ctx context.Context) ([]model.PredefinedMessage, error)
	FindByKind(ctx context.Context, kind model.ReportKind) ([]model.PredefinedMessage, error)
	Upsert(ctx context.Context, params model.UpsertPredefinedMessageParams) error
	// DeleteMissing removes messages of the kind whose ref is not in keep.
	DeleteMissing(ctx context.Context, kind model.ReportKind, keep []string) (int64, error)
	WithTx(tx *sqlx.Tx) PredefinedMessageRepository
}

type predefinedMessageRepo struct {
	db database.DBTX
}

func NewPredefinedMessageRepository(db *sqlx.DB) PredefinedMessageRepository {
	return &predefinedMessageRepo{db: db}
}

func (r *predefinedMessageRepo) WithTx(tx *sqlx.Tx) PredefinedMessageRepository {
	return &predefinedMessageRepo{db: tx}
}

func (r *predefinedMessageRepo) FindByID(ctx context.Context, id int64) (*model.PredefinedMessage, error) {
	return getOne[model.PredefinedMessage](ctx, r.db, `
		SELECT * FROM predefined_messages WHERE id = $1
	`, id)
}

func (r *predefinedMessageRepo) FindAll(ctx context.Context) ([]model.PredefinedMessage, error) {
	var msgs []model.PredefinedMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM predefined_messages ORDER BY kind ASC, id ASC
	`)
	return msgs, err
}

func (r *predefinedMessageRepo) FindByKind(ctx context.Context, kind model.ReportKind) ([]model.PredefinedMessage, error) {
	var msgs []model.PredefinedMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM predefined_messages
		WHERE kind = $1
		ORDER BY id ASC
	`, kind)
	return msgs, err
}

func (r *predefinedMessageRepo) Upsert(ctx context.Context, params model.UpsertPredefinedMessageParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO predefined_messages (ref, text, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (kind, ref) DO UPDATE SET text = EXCLUDED.text
	`, params.Ref, params.Text, params.Kind)
	return err
}

func (r *predefinedMessageRepo) DeleteMissing(ctx context.Context, kind model.ReportKind, keep []string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM predefined_messages
		WHERE kind = $1 AND NOT (ref = ANY($2))
	`, kind, pq.Array(keep))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
