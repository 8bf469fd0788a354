package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the schema, which is written entirely with
// CREATE ... IF NOT EXISTS statements and is therefore safe to run on every
// process start. There is no migration history table: the schema has no
// destructive changes to sequence yet, and none of the corpus's repos wire
// a migration tool into their own startup path either (see DESIGN.md).
func Migrate(ctx context.Context, pool PgxPool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=postgres.migrate: %w", err)
	}
	return nil
}
