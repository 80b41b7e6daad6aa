package pool

import (
	"context"
	"strings"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/util"
)

// Service mantém o catálogo de tipos. Criador e editor precisam ser administradores.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService cria uma nova instância do serviço.
func NewService(data db.DataAccess) *Service {
	return &Service{repo: NewRepository(data), now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]Tipo, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Tipo, error) {
	return s.repo.Get(ctx, id)
}

// Create cadastra um tipo em nome do administrador autor.
func (s *Service) Create(ctx context.Context, autorID int64, input CreateInput) (*Tipo, error) {
	input.Titulo = strings.TrimSpace(input.Titulo)
	input.Descricao = strings.TrimSpace(input.Descricao)
	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, autorID); err != nil {
		return nil, err
	}

	agora := s.now()
	id, err := s.repo.Insert(ctx, db.Fields{
		"titulo":        input.Titulo,
		"descricao":     input.Descricao,
		"created_by":    autorID,
		"updated_by":    autorID,
		"criado_em":     agora,
		"atualizado_em": agora,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update altera título e descrição.
func (s *Service) Update(ctx context.Context, id, autorID int64, input UpdateInput) (*Tipo, error) {
	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}
	fields := db.Fields{}
	if input.Titulo != nil {
		titulo := strings.TrimSpace(*input.Titulo)
		if err := util.RequireString(titulo, "titulo"); err != nil {
			return nil, err
		}
		fields["titulo"] = titulo
	}
	if input.Descricao != nil {
		fields["descricao"] = strings.TrimSpace(*input.Descricao)
	}
	if len(fields) == 0 {
		return nil, util.Invalid("%s", errEmptyPayload.Error())
	}
	if err := s.requireAdmin(ctx, autorID); err != nil {
		return nil, err
	}

	fields["updated_by"] = autorID
	fields["atualizado_em"] = s.now()
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete remove o tipo, recusando enquanto houver chamados vinculados.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	inUse, err := s.repo.InUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) requireAdmin(ctx context.Context, usuarioID int64) error {
	funcao, err := s.repo.funcao(ctx, usuarioID)
	if err != nil {
		return err
	}
	if funcao != repo.FuncaoAdministrador {
		return ErrNotAdmin
	}
	return nil
}
