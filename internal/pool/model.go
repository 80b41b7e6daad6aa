package pool

import (
	"errors"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
)

var (
	ErrNotFound     = errors.New("tipo de chamado não encontrado")
	ErrNotAdmin     = errors.New("apenas administradores mantêm tipos de chamado")
	ErrInUse        = errors.New("tipo de chamado em uso por chamados")
	errEmptyPayload = errors.New("nenhum campo para atualizar")
)

// Tipo é uma categoria de serviço (manutenção, reparo, instalação).
type Tipo struct {
	ID           int64     `json:"id"`
	Titulo       string    `json:"titulo"`
	Descricao    string    `json:"descricao"`
	CreatedBy    *int64    `json:"created_by"`
	UpdatedBy    *int64    `json:"updated_by"`
	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

// CreateInput reúne os campos de um novo tipo.
type CreateInput struct {
	Titulo    string `json:"titulo" validate:"required,max=120"`
	Descricao string `json:"descricao" validate:"max=2000"`
}

// UpdateInput carrega apenas os campos enviados.
type UpdateInput struct {
	Titulo    *string `json:"titulo" validate:"omitempty,max=120"`
	Descricao *string `json:"descricao" validate:"omitempty,max=2000"`
}

func tipoFromRow(row db.Row) Tipo {
	return Tipo{
		ID:           row.Int64("id"),
		Titulo:       row.String("titulo"),
		Descricao:    row.String("descricao"),
		CreatedBy:    row.OptInt64("created_by"),
		UpdatedBy:    row.OptInt64("updated_by"),
		CriadoEm:     row.Time("criado_em"),
		AtualizadoEm: row.Time("atualizado_em"),
	}
}
