package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gestaozabele/chamados/internal/auth"
	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/util"
)

// ErrSelfDelete impede que o administrador remova a própria conta.
var ErrSelfDelete = errors.New("não é possível excluir a própria conta")

// UsuarioService centraliza casos de uso de gestão de contas.
type UsuarioService struct {
	repo *repo.Usuarios
	now  func() time.Time
}

// NewUsuarioService cria nova instância do serviço.
func NewUsuarioService(data db.DataAccess) *UsuarioService {
	return &UsuarioService{repo: repo.NewUsuarios(data), now: time.Now}
}

// List retorna as contas, opcionalmente só as de uma função.
func (s *UsuarioService) List(ctx context.Context, funcao string) ([]repo.Usuario, error) {
	funcao = repo.NormalizeFuncao(funcao)
	if funcao != "" && !repo.IsValidFuncao(funcao) {
		return nil, util.Invalid("funcao inválida")
	}
	return s.repo.List(ctx, funcao)
}

// Get retorna uma conta.
func (s *UsuarioService) Get(ctx context.Context, id int64) (repo.Usuario, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateUsuarioInput encapsula campos de nova conta.
type CreateUsuarioInput struct {
	Nome   string
	Email  string
	Senha  string
	Funcao string
	Status string
}

// Create cria a conta (senha bruta será hasheada).
func (s *UsuarioService) Create(ctx context.Context, input CreateUsuarioInput) (repo.Usuario, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	input.Email = strings.TrimSpace(input.Email)
	input.Funcao = repo.NormalizeFuncao(input.Funcao)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if input.Status == "" {
		input.Status = repo.StatusAtivo
	}

	if err := util.RequireString(input.Nome, "nome"); err != nil {
		return repo.Usuario{}, err
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return repo.Usuario{}, err
	}
	if err := util.ValidatePassword(input.Senha); err != nil {
		return repo.Usuario{}, err
	}
	if !repo.IsValidFuncao(input.Funcao) {
		return repo.Usuario{}, util.Invalid("funcao inválida")
	}
	if !repo.IsValidStatus(input.Status) {
		return repo.Usuario{}, util.Invalid("status inválido")
	}

	hash, err := auth.Hash(input.Senha)
	if err != nil {
		return repo.Usuario{}, err
	}

	return s.repo.Create(ctx, repo.CreateUsuarioParams{
		Nome:      input.Nome,
		Email:     input.Email,
		SenhaHash: hash,
		Funcao:    input.Funcao,
		Status:    input.Status,
		CriadoEm:  s.now(),
	})
}

// UpdateUsuarioInput carrega apenas os campos enviados.
type UpdateUsuarioInput struct {
	Nome   *string
	Email  *string
	Senha  *string
	Funcao *string
	Status *string
}

// Update altera perfil, função, situação e, opcionalmente, a senha.
func (s *UsuarioService) Update(ctx context.Context, id int64, input UpdateUsuarioInput) (repo.Usuario, error) {
	fields := db.Fields{}

	if input.Nome != nil {
		nome := strings.TrimSpace(*input.Nome)
		if err := util.RequireString(nome, "nome"); err != nil {
			return repo.Usuario{}, err
		}
		fields["nome"] = nome
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if err := util.ValidateEmail(email); err != nil {
			return repo.Usuario{}, err
		}
		fields["email"] = email
	}
	if input.Funcao != nil {
		funcao := repo.NormalizeFuncao(*input.Funcao)
		if !repo.IsValidFuncao(funcao) {
			return repo.Usuario{}, util.Invalid("funcao inválida")
		}
		fields["funcao"] = funcao
	}
	if input.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*input.Status))
		if !repo.IsValidStatus(status) {
			return repo.Usuario{}, util.Invalid("status inválido")
		}
		fields["status"] = status
	}
	if input.Senha != nil {
		if err := util.ValidatePassword(*input.Senha); err != nil {
			return repo.Usuario{}, err
		}
		hash, err := auth.Hash(*input.Senha)
		if err != nil {
			return repo.Usuario{}, err
		}
		fields["senha_hash"] = hash
	}

	if len(fields) == 0 {
		return s.repo.GetByID(ctx, id)
	}
	fields["atualizado_em"] = s.now()

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return repo.Usuario{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete remove definitivamente a conta.
func (s *UsuarioService) Delete(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return ErrSelfDelete
	}
	return s.repo.Delete(ctx, id)
}
