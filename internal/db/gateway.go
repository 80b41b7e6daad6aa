package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrUnfiltered impede UPDATE/DELETE sem predicado.
	ErrUnfiltered = errors.New("operação sem filtro recusada")
	// ErrNoFields indica INSERT/UPDATE sem colunas.
	ErrNoFields = errors.New("nenhum campo informado")
)

// Querier é o subconjunto do pgx usado pelo gateway; *pgxpool.Pool e pgx.Tx o satisfazem.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Fields mapeia coluna -> valor para INSERT/UPDATE.
type Fields map[string]any

// Condition é um predicado de igualdade. Valor nil vira IS NULL.
type Condition struct {
	Column string
	Value  any
}

// Filter combina condições com AND.
type Filter []Condition

// Eq cria condição coluna = valor.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Value: value}
}

// Where monta um filtro a partir das condições informadas.
func Where(conds ...Condition) Filter {
	return Filter(conds)
}

// ByID filtra pela chave primária.
func ByID(id int64) Filter {
	return Where(Eq("id", id))
}

// DataAccess é o contrato de acesso a dados consumido pelos serviços.
type DataAccess interface {
	ReadAll(ctx context.Context, table string, filter Filter) ([]Row, error)
	ReadOne(ctx context.Context, table string, filter Filter) (Row, error)
	Insert(ctx context.Context, table string, fields Fields) (int64, error)
	Update(ctx context.Context, table string, fields Fields, filter Filter) (int64, error)
	Delete(ctx context.Context, table string, filter Filter) (int64, error)
	CompareSecret(plain, hash string) bool
	InTx(ctx context.Context, fn func(tx DataAccess) error) error
}

// SecretComparer compara senha em texto puro com hash armazenado.
type SecretComparer func(plain, hash string) bool

// Gateway implementa DataAccess sobre Postgres, sempre com parâmetros vinculados.
type Gateway struct {
	q       Querier
	pool    *pgxpool.Pool
	compare SecretComparer
}

// NewGateway cria o gateway sobre o pool informado.
func NewGateway(pool *pgxpool.Pool, compare SecretComparer) *Gateway {
	return &Gateway{q: pool, pool: pool, compare: compare}
}

// ReadAll devolve todas as linhas que satisfazem o filtro, ordenadas por id.
// Nenhuma linha resulta em slice vazio, nunca nil.
func (g *Gateway) ReadAll(ctx context.Context, table string, filter Filter) ([]Row, error) {
	where, args := filter.sql(1)
	query := "SELECT * FROM " + ident(table) + where + " ORDER BY id"

	rows, err := g.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(maps))
	for _, m := range maps {
		out = append(out, Row(m))
	}
	return out, nil
}

// ReadOne devolve a primeira linha do filtro ou ErrNotFound.
func (g *Gateway) ReadOne(ctx context.Context, table string, filter Filter) (Row, error) {
	where, args := filter.sql(1)
	query := "SELECT * FROM " + ident(table) + where + " ORDER BY id LIMIT 1"

	rows, err := g.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Row(m), nil
}

// Insert grava a linha e devolve o id gerado.
func (g *Gateway) Insert(ctx context.Context, table string, fields Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, ErrNoFields
	}

	cols := fields.columns()
	names := make([]string, len(cols))
	holders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		names[i] = ident(col)
		holders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		ident(table), strings.Join(names, ", "), strings.Join(holders, ", "))

	var id int64
	if err := g.q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Update altera as colunas informadas e devolve a quantidade de linhas afetadas.
func (g *Gateway) Update(ctx context.Context, table string, fields Fields, filter Filter) (int64, error) {
	if len(fields) == 0 {
		return 0, ErrNoFields
	}
	if len(filter) == 0 {
		return 0, ErrUnfiltered
	}

	cols := fields.columns()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filter))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(col), i+1)
		args = append(args, fields[col])
	}
	where, whereArgs := filter.sql(len(cols) + 1)
	args = append(args, whereArgs...)

	query := "UPDATE " + ident(table) + " SET " + strings.Join(sets, ", ") + where
	tag, err := g.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete remove as linhas do filtro e devolve a quantidade removida.
func (g *Gateway) Delete(ctx context.Context, table string, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnfiltered
	}

	where, args := filter.sql(1)
	tag, err := g.q.Exec(ctx, "DELETE FROM "+ident(table)+where, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CompareSecret delega para o comparador de hash configurado.
func (g *Gateway) CompareSecret(plain, hash string) bool {
	if g.compare == nil {
		return false
	}
	return g.compare(plain, hash)
}

// InTx executa fn numa transação. Dentro de uma transação, fn reutiliza a atual.
func (g *Gateway) InTx(ctx context.Context, fn func(tx DataAccess) error) error {
	if g.pool == nil {
		return fn(g)
	}
	return WithTx(ctx, g.pool, func(pctx context.Context, tx pgx.Tx) error {
		return fn(&Gateway{q: tx, compare: g.compare})
	})
}

func (f Fields) columns() []string {
	cols := make([]string, 0, len(f))
	for col := range f {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// sql monta a cláusula WHERE começando no placeholder $start.
func (f Filter) sql(start int) (string, []any) {
	if len(f) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	idx := start
	for _, cond := range f {
		if cond.Value == nil {
			parts = append(parts, ident(cond.Column)+" IS NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", ident(cond.Column), idx))
		args = append(args, cond.Value)
		idx++
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
