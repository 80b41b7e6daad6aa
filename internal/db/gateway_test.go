package db

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordedCall struct {
	sql  string
	args []any
}

type stubQuerier struct {
	calls    []recordedCall
	affected string
	id       int64
}

func (s *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, recordedCall{sql: sql, args: args})
	return pgconn.NewCommandTag(s.affected), nil
}

func (s *stubQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, recordedCall{sql: sql, args: args})
	return nil, errors.New("not supported")
}

func (s *stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.calls = append(s.calls, recordedCall{sql: sql, args: args})
	return stubRow{id: s.id}
}

type stubRow struct {
	id int64
}

func (r stubRow) Scan(dest ...any) error {
	ptr, ok := dest[0].(*int64)
	if !ok {
		return errors.New("destination must be *int64")
	}
	*ptr = r.id
	return nil
}

func TestInsertBindsValues(t *testing.T) {
	q := &stubQuerier{id: 42}
	g := &Gateway{q: q}

	id, err := g.Insert(context.Background(), "chamados", Fields{
		"titulo":     "Projetor queimado'; DROP TABLE chamados; --",
		"patrimonio": "1234567",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}

	want := `INSERT INTO "chamados" ("patrimonio", "titulo") VALUES ($1, $2) RETURNING id`
	if q.calls[0].sql != want {
		t.Fatalf("unexpected sql:\n%s\nwant:\n%s", q.calls[0].sql, want)
	}
	if !reflect.DeepEqual(q.calls[0].args, []any{"1234567", "Projetor queimado'; DROP TABLE chamados; --"}) {
		t.Fatalf("unexpected args: %v", q.calls[0].args)
	}
}

func TestUpdateNumbersWherePlaceholdersAfterSet(t *testing.T) {
	q := &stubQuerier{affected: "UPDATE 1"}
	g := &Gateway{q: q}

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	n, err := g.Update(context.Background(), "chamados",
		Fields{"estado": "concluido", "atualizado_em": now},
		Where(Eq("id", int64(7)), Eq("tecnico_id", nil)),
	)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 affected row, got %d", n)
	}

	want := `UPDATE "chamados" SET "atualizado_em" = $1, "estado" = $2 WHERE "id" = $3 AND "tecnico_id" IS NULL`
	if q.calls[0].sql != want {
		t.Fatalf("unexpected sql:\n%s\nwant:\n%s", q.calls[0].sql, want)
	}
	if len(q.calls[0].args) != 3 {
		t.Fatalf("expected 3 args, got %v", q.calls[0].args)
	}
}

func TestDeleteRequiresFilter(t *testing.T) {
	q := &stubQuerier{affected: "DELETE 3"}
	g := &Gateway{q: q}

	if _, err := g.Delete(context.Background(), "apontamentos", nil); !errors.Is(err, ErrUnfiltered) {
		t.Fatalf("expected ErrUnfiltered, got %v", err)
	}
	if len(q.calls) != 0 {
		t.Fatalf("no statement should run without filter")
	}

	n, err := g.Delete(context.Background(), "apontamentos", Where(Eq("chamado_id", int64(3))))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
	if q.calls[0].sql != `DELETE FROM "apontamentos" WHERE "chamado_id" = $1` {
		t.Fatalf("unexpected sql: %s", q.calls[0].sql)
	}
}

func TestIdentifiersAreQuoted(t *testing.T) {
	where, args := Where(Eq(`id" OR 1=1 --`, 1)).sql(1)
	if where != ` WHERE "id"" OR 1=1 --" = $1` {
		t.Fatalf("identifier not sanitized: %s", where)
	}
	if len(args) != 1 {
		t.Fatalf("expected single bound arg, got %v", args)
	}
}

func TestCompareSecretWithoutComparer(t *testing.T) {
	g := &Gateway{}
	if g.CompareSecret("a", "a") {
		t.Fatal("gateway without comparer must never match")
	}
}

func TestRowAccessors(t *testing.T) {
	when := time.Now()
	row := Row{
		"id":         int64(5),
		"tecnico_id": nil,
		"patrimonio": "1234567",
		"tipo":       "ab   ",
		"criado_em":  when,
		"fim":        nil,
	}

	if row.Int64("id") != 5 {
		t.Fatalf("id: %d", row.Int64("id"))
	}
	if row.OptInt64("tecnico_id") != nil {
		t.Fatal("tecnico_id should be nil")
	}
	if row.String("tipo") != "ab" {
		t.Fatalf("char padding not trimmed: %q", row.String("tipo"))
	}
	if !row.Time("criado_em").Equal(when) {
		t.Fatal("criado_em mismatch")
	}
	if row.OptTime("fim") != nil {
		t.Fatal("fim should be nil")
	}
}
