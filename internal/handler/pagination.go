package handler

import (
	"net/http"
	"strconv"

	apperrors "github.com/issuetracker/tracker-bot-go/internal/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// ParseLimit reads the limit query parameter. A missing value yields def and
// values above MaxLimit are clamped.
func ParseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.InvalidInput("limit", "must be a positive integer")
	}
	return min(limit, MaxLimit), nil
}
