package repo

import (
	"context"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
)

const tableUsuarios = "usuarios"

// Usuarios provê acesso à tabela de contas.
type Usuarios struct {
	db db.DataAccess
}

// NewUsuarios cria o repositório.
func NewUsuarios(data db.DataAccess) *Usuarios {
	return &Usuarios{db: data}
}

// GetByEmail busca a conta pelo e-mail exato.
func (r *Usuarios) GetByEmail(ctx context.Context, email string) (Usuario, error) {
	row, err := r.db.ReadOne(ctx, tableUsuarios, db.Where(db.Eq("email", email)))
	if err != nil {
		return Usuario{}, err
	}
	return usuarioFromRow(row), nil
}

// GetByID busca a conta pelo id.
func (r *Usuarios) GetByID(ctx context.Context, id int64) (Usuario, error) {
	row, err := r.db.ReadOne(ctx, tableUsuarios, db.ByID(id))
	if err != nil {
		return Usuario{}, err
	}
	return usuarioFromRow(row), nil
}

// List lista contas, opcionalmente filtrando pela função.
func (r *Usuarios) List(ctx context.Context, funcao string) ([]Usuario, error) {
	var filter db.Filter
	if funcao != "" {
		filter = db.Where(db.Eq("funcao", funcao))
	}

	rows, err := r.db.ReadAll(ctx, tableUsuarios, filter)
	if err != nil {
		return nil, err
	}

	usuarios := make([]Usuario, 0, len(rows))
	for _, row := range rows {
		usuarios = append(usuarios, usuarioFromRow(row))
	}
	return usuarios, nil
}

// CreateUsuarioParams reúne os campos de uma nova conta.
type CreateUsuarioParams struct {
	Nome      string
	Email     string
	SenhaHash string
	Funcao    string
	Status    string
	CriadoEm  time.Time
}

// Create insere a conta e devolve o registro gravado.
func (r *Usuarios) Create(ctx context.Context, arg CreateUsuarioParams) (Usuario, error) {
	id, err := r.db.Insert(ctx, tableUsuarios, db.Fields{
		"nome":          arg.Nome,
		"email":         arg.Email,
		"senha_hash":    arg.SenhaHash,
		"funcao":        arg.Funcao,
		"status":        arg.Status,
		"criado_em":     arg.CriadoEm,
		"atualizado_em": arg.CriadoEm,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Usuario{}, ErrEmailInUse
		}
		return Usuario{}, err
	}
	return r.GetByID(ctx, id)
}

// Update grava as colunas informadas. ErrNotFound quando a conta não existe.
func (r *Usuarios) Update(ctx context.Context, id int64, fields db.Fields) error {
	n, err := r.db.Update(ctx, tableUsuarios, fields, db.ByID(id))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailInUse
		}
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove definitivamente a conta.
func (r *Usuarios) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Delete(ctx, tableUsuarios, db.ByID(id))
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
