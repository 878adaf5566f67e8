package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "store:clear"

// ClearJournal truncates the donations and intent_bindings tables. Schema is
// preserved; only data is removed.
func ClearJournal(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing journal tables", clearLogPrefix))

	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		donations,
		intent_bindings
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Journal cleared", clearLogPrefix))
	return nil
}
