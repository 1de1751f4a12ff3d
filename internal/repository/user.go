package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/issuetracker/tracker-bot-go/internal/database"
	"github.com/issuetracker/tracker-bot-go/internal/model"
)

type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	// Upsert creates the user or refreshes the display name; the role is kept.
	Upsert(ctx context.Context, params model.UpsertUserParams) (*model.User, error)
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return getOne[model.User](ctx, r.db, `
		SELECT * FROM users WHERE telegram_id = $1
	`, telegramID)
}

func (r *userRepo) Upsert(ctx context.Context, params model.UpsertUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (telegram_id, name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING *
	`, params.TelegramID, params.Name, params.Role)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
