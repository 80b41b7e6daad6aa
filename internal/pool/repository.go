package pool

import (
	"context"
	"errors"

	"github.com/gestaozabele/chamados/internal/db"
)

const tablePool = "pool"

// Repository acessa o catálogo de tipos de chamado.
type Repository struct {
	db db.DataAccess
}

// NewRepository cria o repositório.
func NewRepository(data db.DataAccess) *Repository {
	return &Repository{db: data}
}

func (r *Repository) List(ctx context.Context) ([]Tipo, error) {
	rows, err := r.db.ReadAll(ctx, tablePool, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Tipo, 0, len(rows))
	for _, row := range rows {
		out = append(out, tipoFromRow(row))
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*Tipo, error) {
	row, err := r.db.ReadOne(ctx, tablePool, db.ByID(id))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t := tipoFromRow(row)
	return &t, nil
}

func (r *Repository) Insert(ctx context.Context, fields db.Fields) (int64, error) {
	return r.db.Insert(ctx, tablePool, fields)
}

func (r *Repository) Update(ctx context.Context, id int64, fields db.Fields) error {
	n, err := r.db.Update(ctx, tablePool, fields, db.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove o tipo. Chamados vinculados disparam violação de FK.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Delete(ctx, tablePool, db.ByID(id))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// InUse indica se algum chamado referencia o tipo.
func (r *Repository) InUse(ctx context.Context, id int64) (bool, error) {
	rows, err := r.db.ReadAll(ctx, "chamados", db.Where(db.Eq("tipo_id", id)))
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// funcao devolve a função da conta; ErrNotAdmin quando a conta não existe.
func (r *Repository) funcao(ctx context.Context, usuarioID int64) (string, error) {
	row, err := r.db.ReadOne(ctx, "usuarios", db.ByID(usuarioID))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", ErrNotAdmin
		}
		return "", err
	}
	return row.String("funcao"), nil
}
