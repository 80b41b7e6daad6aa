package db

import (
	"strings"
	"time"
)

// Row é uma linha lida do banco, indexada pelo nome da coluna.
type Row map[string]any

// Int64 lê coluna inteira; ausente ou NULL vira zero.
func (r Row) Int64(col string) int64 {
	if v := r.OptInt64(col); v != nil {
		return *v
	}
	return 0
}

// OptInt64 lê coluna inteira anulável.
func (r Row) OptInt64(col string) *int64 {
	var out int64
	switch v := r[col].(type) {
	case int64:
		out = v
	case int32:
		out = int64(v)
	case int:
		out = int64(v)
	case *int64:
		if v == nil {
			return nil
		}
		out = *v
	default:
		return nil
	}
	return &out
}

// String lê coluna textual. Colunas CHAR(n) chegam com espaços à direita.
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case string:
		return strings.TrimRight(v, " ")
	case *string:
		if v != nil {
			return strings.TrimRight(*v, " ")
		}
	}
	return ""
}

// Time lê coluna de data/hora; NULL vira o zero value.
func (r Row) Time(col string) time.Time {
	if v := r.OptTime(col); v != nil {
		return *v
	}
	return time.Time{}
}

// OptTime lê coluna de data/hora anulável.
func (r Row) OptTime(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case *time.Time:
		if v == nil {
			return nil
		}
		t := *v
		return &t
	}
	return nil
}
