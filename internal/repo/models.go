package repo

import (
	"strings"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
)

// Funções (papéis) de conta.
const (
	FuncaoUsuario       = "usuario"
	FuncaoTecnico       = "tecnico"
	FuncaoAdministrador = "administrador"
)

// Situação da conta.
const (
	StatusAtivo   = "ativo"
	StatusInativo = "inativo"
)

// Usuario representa uma conta do sistema.
type Usuario struct {
	ID           int64     `json:"id"`
	Nome         string    `json:"nome"`
	Email        string    `json:"email"`
	SenhaHash    string    `json:"-"`
	Funcao       string    `json:"funcao"`
	Status       string    `json:"status"`
	CriadoEm     time.Time `json:"criado_em"`
	AtualizadoEm time.Time `json:"atualizado_em"`
}

// Ativo indica se a conta pode autenticar.
func (u Usuario) Ativo() bool {
	return u.Status != StatusInativo
}

// IsValidFuncao indica se a função é aceita.
func IsValidFuncao(funcao string) bool {
	switch NormalizeFuncao(funcao) {
	case FuncaoUsuario, FuncaoTecnico, FuncaoAdministrador:
		return true
	}
	return false
}

// NormalizeFuncao padroniza a função em minúsculas.
func NormalizeFuncao(funcao string) string {
	return strings.ToLower(strings.TrimSpace(funcao))
}

// IsValidStatus indica se a situação é aceita.
func IsValidStatus(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return status == StatusAtivo || status == StatusInativo
}

func usuarioFromRow(row db.Row) Usuario {
	return Usuario{
		ID:           row.Int64("id"),
		Nome:         row.String("nome"),
		Email:        row.String("email"),
		SenhaHash:    row.String("senha_hash"),
		Funcao:       row.String("funcao"),
		Status:       row.String("status"),
		CriadoEm:     row.Time("criado_em"),
		AtualizadoEm: row.Time("atualizado_em"),
	}
}
