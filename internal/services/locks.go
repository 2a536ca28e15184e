package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// lockShareForUpdate row-locks a published card for the rest of the
// transaction and returns its manage key hash.
func lockShareForUpdate(ctx context.Context, q DBConn, token string) (string, error) {
	var hash string
	err := q.QueryRow(ctx,
		"SELECT manage_key_hash FROM card_shares WHERE token = $1 FOR UPDATE",
		token,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrShareNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock card share: %w", err)
	}
	return hash, nil
}
