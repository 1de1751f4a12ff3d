package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/issuetracker/tracker-bot-go/internal/database"
)

// getOne loads a single row into a T. A lookup by id or Telegram id that
// matches nothing returns (nil, nil); callers decide whether that is NOT_FOUND.
func getOne[T any](ctx context.Context, db database.DBTX, query string, args ...any) (*T, error) {
	var row T
	err := db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
