// Package dbtest oferece uma implementação em memória de db.DataAccess para testes.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestaozabele/chamados/internal/db"
)

// Memory guarda tabelas em memória. Transações são serializadas e desfeitas em caso de erro.
type Memory struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	tables   map[string][]db.Row
	nextID   map[string]int64
	unique   map[string][][]string
	failures map[string]error

	// Compare substitui a comparação de senha; nil compara texto puro.
	Compare db.SecretComparer
}

// New cria um banco vazio.
func New() *Memory {
	return &Memory{
		tables:   make(map[string][]db.Row),
		nextID:   make(map[string]int64),
		unique:   make(map[string][][]string),
		failures: make(map[string]error),
	}
}

// Unique registra uma constraint UNIQUE sobre as colunas informadas.
func (m *Memory) Unique(table string, cols ...string) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unique[table] = append(m.unique[table], cols)
	return m
}

// FailOn faz a operação (insert, update, delete, read) na tabela devolver err.
func (m *Memory) FailOn(op, table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+table] = err
}

// Seed insere uma linha ignorando falhas injetadas e devolve o id.
func (m *Memory) Seed(table string, fields db.Fields) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := m.insertLocked(table, fields)
	if err != nil {
		panic(fmt.Sprintf("dbtest: seed %s: %v", table, err))
	}
	return id
}

// Count conta as linhas que satisfazem o filtro.
func (m *Memory) Count(table string, filter db.Filter) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			n++
		}
	}
	return n
}

func (m *Memory) ReadAll(ctx context.Context, table string, filter db.Filter) ([]db.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("read", table); err != nil {
		return nil, err
	}
	out := make([]db.Row, 0)
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			out = append(out, copyRow(row))
		}
	}
	return out, nil
}

func (m *Memory) ReadOne(ctx context.Context, table string, filter db.Filter) (db.Row, error) {
	rows, err := m.ReadAll(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, db.ErrNotFound
	}
	return rows[0], nil
}

func (m *Memory) Insert(ctx context.Context, table string, fields db.Fields) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fields) == 0 {
		return 0, db.ErrNoFields
	}
	if err := m.failure("insert", table); err != nil {
		return 0, err
	}
	return m.insertLocked(table, fields)
}

func (m *Memory) Update(ctx context.Context, table string, fields db.Fields, filter db.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(fields) == 0 {
		return 0, db.ErrNoFields
	}
	if len(filter) == 0 {
		return 0, db.ErrUnfiltered
	}
	if err := m.failure("update", table); err != nil {
		return 0, err
	}

	var affected int64
	for i, row := range m.tables[table] {
		if !matches(row, filter) {
			continue
		}
		updated := copyRow(row)
		for col, val := range fields {
			updated[col] = normalize(val)
		}
		if err := m.checkUnique(table, updated, i); err != nil {
			return 0, err
		}
		m.tables[table][i] = updated
		affected++
	}
	return affected, nil
}

func (m *Memory) Delete(ctx context.Context, table string, filter db.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(filter) == 0 {
		return 0, db.ErrUnfiltered
	}
	if err := m.failure("delete", table); err != nil {
		return 0, err
	}

	kept := m.tables[table][:0]
	var removed int64
	for _, row := range m.tables[table] {
		if matches(row, filter) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	m.tables[table] = kept
	return removed, nil
}

func (m *Memory) CompareSecret(plain, hash string) bool {
	if m.Compare != nil {
		return m.Compare(plain, hash)
	}
	return plain == hash
}

// InTx serializa transações e restaura o estado anterior quando fn falha.
func (m *Memory) InTx(ctx context.Context, fn func(tx db.DataAccess) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(txMemory{m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type txMemory struct {
	*Memory
}

func (t txMemory) InTx(ctx context.Context, fn func(tx db.DataAccess) error) error {
	return fn(t)
}

type state struct {
	tables map[string][]db.Row
	nextID map[string]int64
}

func (m *Memory) snapshot() state {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := state{tables: make(map[string][]db.Row, len(m.tables)), nextID: make(map[string]int64, len(m.nextID))}
	for table, rows := range m.tables {
		copied := make([]db.Row, len(rows))
		for i, row := range rows {
			copied[i] = copyRow(row)
		}
		s.tables[table] = copied
	}
	for table, id := range m.nextID {
		s.nextID[table] = id
	}
	return s
}

func (m *Memory) restore(s state) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = s.tables
	m.nextID = s.nextID
}

func (m *Memory) failure(op, table string) error {
	return m.failures[op+":"+table]
}

func (m *Memory) insertLocked(table string, fields db.Fields) (int64, error) {
	row := make(db.Row, len(fields)+1)
	for col, val := range fields {
		row[col] = normalize(val)
	}
	if err := m.checkUnique(table, row, -1); err != nil {
		return 0, err
	}
	m.nextID[table]++
	id := m.nextID[table]
	row["id"] = id
	m.tables[table] = append(m.tables[table], row)
	return id, nil
}

func (m *Memory) checkUnique(table string, row db.Row, skip int) error {
	for _, cols := range m.unique[table] {
		for i, existing := range m.tables[table] {
			if i == skip {
				continue
			}
			same := true
			for _, col := range cols {
				if !equal(existing[col], row[col]) {
					same = false
					break
				}
			}
			if same {
				return &pgconn.PgError{
					Code:           "23505",
					TableName:      table,
					ConstraintName: table + "_" + strings.Join(cols, "_") + "_key",
				}
			}
		}
	}
	return nil
}

func matches(row db.Row, filter db.Filter) bool {
	for _, cond := range filter {
		val, ok := row[cond.Column]
		if cond.Value == nil {
			if ok && val != nil {
				return false
			}
			continue
		}
		if !equal(val, normalize(cond.Value)) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	ta, okA := a.(time.Time)
	tb, okB := b.(time.Time)
	if okA && okB {
		return ta.Equal(tb)
	}
	return a == b
}

// normalize imita os tipos devolvidos pelo pgx: inteiros viram int64, ponteiros são desreferenciados.
func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case *int64:
		if val == nil {
			return nil
		}
		return *val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	case *time.Time:
		if val == nil {
			return nil
		}
		return *val
	}
	return v
}

func copyRow(row db.Row) db.Row {
	out := make(db.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
