package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATEs do Postgres tratados pela aplicação.
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// TxBeginner abre transações (satisfeito por *pgxpool.Pool e *pgx.Conn).
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executa uma função dentro de uma transação explicita.
// Qualquer erro devolvido por fn desfaz a transação.
func WithTx(ctx context.Context, b TxBeginner, fn func(pctx context.Context, tx pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// IsUniqueViolation indica se err veio de uma constraint UNIQUE.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsForeignKeyViolation indica registro ainda referenciado por outra tabela.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
