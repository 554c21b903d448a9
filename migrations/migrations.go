// Package migrations embeds the database schema.
package migrations

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed 0001_init.sql
var initSQL string

// Apply runs the embedded schema. Every statement is idempotent.
func Apply(ctx context.Context, db *pgxpool.Pool) error {
	// No arguments, so pgx sends the file over the simple protocol as one multi-statement batch.
	if _, err := db.Exec(ctx, initSQL); err != nil {
		return fmt.Errorf("apply 0001_init.sql: %w", err)
	}
	return nil
}
