package db

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

// Migrate aplica o schema base. Todas as instruções são idempotentes.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, schema)
	return err
}
