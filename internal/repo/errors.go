package repo

import (
	"errors"

	"github.com/gestaozabele/chamados/internal/db"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = db.ErrNotFound
	// ErrEmailInUse indica e-mail já cadastrado em outra conta.
	ErrEmailInUse = errors.New("email já cadastrado")
	// ErrInUse indica conta ainda referenciada por chamados ou apontamentos.
	ErrInUse = errors.New("conta vinculada a chamados")
)
