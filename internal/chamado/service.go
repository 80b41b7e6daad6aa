package chamado

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/util"
)

// Service reúne regras de negócio de chamados e apontamentos.
type Service struct {
	db   db.DataAccess
	repo *Repository
	now  func() time.Time
}

// NewService cria uma nova instância do serviço.
func NewService(data db.DataAccess) *Service {
	return &Service{db: data, repo: NewRepository(data), now: time.Now}
}

// List lista chamados dentro do filtro informado.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Chamado, error) {
	if filter.Estado != "" {
		filter.Estado = NormalizeEstado(filter.Estado)
		if !IsValidEstado(filter.Estado) {
			return nil, ErrInvalidEstado
		}
	}
	return s.repo.List(ctx, filter)
}

// Get recupera um chamado.
func (s *Service) Get(ctx context.Context, id int64) (*Chamado, error) {
	return s.repo.Get(ctx, id)
}

// Create abre um chamado. Validação e gravação rodam na mesma transação e a
// constraint UNIQUE (patrimonio, tipo_id) decide corridas entre aberturas iguais.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Chamado, error) {
	input.Titulo = strings.TrimSpace(input.Titulo)
	input.Descricao = strings.TrimSpace(input.Descricao)
	input.Estado = NormalizeEstado(input.Estado)
	input.Prioridade = NormalizePrioridade(input.Prioridade)
	if input.Estado == "" {
		input.Estado = EstadoAberto
	}
	if input.Prioridade == "" {
		input.Prioridade = PrioridadeMedia
	}

	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !IsValidEstado(input.Estado) {
		return nil, ErrInvalidEstado
	}
	if !IsValidPrioridade(input.Prioridade) {
		return nil, ErrInvalidPrioridade
	}

	ref := Referencias{
		TipoID:     input.TipoID,
		UsuarioID:  input.UsuarioID,
		TecnicoID:  input.TecnicoID,
		Patrimonio: string(input.Patrimonio),
	}

	var id int64
	err := s.db.InTx(ctx, func(tx db.DataAccess) error {
		if err := NewValidator(tx).ValidateCreate(ctx, ref); err != nil {
			return err
		}
		var err error
		id, err = NewRepository(tx).Insert(ctx, insertChamado{
			Titulo:     input.Titulo,
			Descricao:  input.Descricao,
			Patrimonio: ref.Patrimonio,
			TipoID:     ref.TipoID,
			TecnicoID:  ref.TecnicoID,
			UsuarioID:  ref.UsuarioID,
			Estado:     input.Estado,
			Prioridade: input.Prioridade,
			Agora:      s.now(),
		})
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateAssetTicket
		}
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Update altera dados, estado, prioridade e atribuição do chamado.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Chamado, error) {
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
	if input.Prioridade != nil {
		prioridade := NormalizePrioridade(*input.Prioridade)
		if !IsValidPrioridade(prioridade) {
			return nil, ErrInvalidPrioridade
		}
		fields["prioridade"] = prioridade
	}
	var estado string
	if input.Estado != nil {
		estado = NormalizeEstado(*input.Estado)
		if !IsValidEstado(estado) {
			return nil, ErrInvalidEstado
		}
		fields["estado"] = estado
	}

	err := s.db.InTx(ctx, func(tx db.DataAccess) error {
		repository := NewRepository(tx)
		current, err := repository.Get(ctx, id)
		if err != nil {
			return err
		}

		ref := Referencias{
			TipoID:     current.TipoID,
			UsuarioID:  current.UsuarioID,
			TecnicoID:  current.TecnicoID,
			Patrimonio: current.Patrimonio,
		}
		if input.Patrimonio != nil {
			ref.Patrimonio = string(*input.Patrimonio)
			fields["patrimonio"] = ref.Patrimonio
		}
		if input.TipoID != nil {
			ref.TipoID = *input.TipoID
			fields["tipo_id"] = ref.TipoID
		}
		switch {
		case input.RemoverTecnico:
			ref.TecnicoID = nil
			fields["tecnico_id"] = nil
		case input.TecnicoID != nil:
			ref.TecnicoID = input.TecnicoID
			fields["tecnico_id"] = *input.TecnicoID
		}

		pairChanged := ref.Patrimonio != current.Patrimonio || ref.TipoID != current.TipoID
		if err := NewValidator(tx).ValidateUpdate(ctx, id, ref, pairChanged); err != nil {
			return err
		}

		if estado != "" && estado != current.Estado {
			if estado == EstadoConcluido {
				fields["finalizado_em"] = s.now()
			} else if current.Estado == EstadoConcluido {
				// reaberto
				fields["finalizado_em"] = nil
			}
		}

		if len(fields) == 0 {
			return nil
		}
		fields["atualizado_em"] = s.now()
		return repository.Update(ctx, id, fields)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateAssetTicket
		}
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Delete remove o chamado e, antes, os apontamentos dele. A remoção dos
// apontamentos é best-effort: a falha é registrada e o chamado sai mesmo assim.
// Fica fora de transação porque um comando com erro abortaria a transação inteira.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	if n, err := s.repo.DeleteApontamentosDoChamado(ctx, id); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("chamado_id", id).Msg("falha ao remover apontamentos; seguindo com a exclusão do chamado")
	} else if n > 0 {
		log.Ctx(ctx).Debug().Int64("chamado_id", id).Int64("apontamentos", n).Msg("apontamentos removidos")
	}

	return s.repo.Delete(ctx, id)
}

// ListApontamentos lista o histórico de um chamado existente.
func (s *Service) ListApontamentos(ctx context.Context, chamadoID int64) ([]Apontamento, error) {
	if _, err := s.repo.Get(ctx, chamadoID); err != nil {
		return nil, err
	}
	return s.repo.ListApontamentos(ctx, chamadoID)
}

// CreateApontamento registra trabalho do técnico. O primeiro apontamento de um
// chamado aberto o coloca em andamento.
func (s *Service) CreateApontamento(ctx context.Context, input CreateApontamentoInput) (*Apontamento, error) {
	input.Descricao = strings.TrimSpace(input.Descricao)
	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := checkPeriodo(input.Comeco, input.Fim); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.InTx(ctx, func(tx db.DataAccess) error {
		repository := NewRepository(tx)
		current, err := repository.Get(ctx, input.ChamadoID)
		if err != nil {
			return err
		}

		tecnico, err := tx.ReadOne(ctx, tableUsuarios, db.ByID(input.TecnicoID))
		if err != nil {
			return notFoundAs(err, ErrTechnicianNotFound)
		}
		if tecnico.String("funcao") != repo.FuncaoTecnico {
			return ErrTechnicianNotFound
		}

		agora := s.now()
		id, err = repository.InsertApontamento(ctx, input, agora)
		if err != nil {
			return err
		}

		if current.Estado == EstadoAberto {
			return repository.Update(ctx, current.ID, db.Fields{"estado": EstadoEmAndamento, "atualizado_em": agora})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetApontamento(ctx, id)
}

// UpdateApontamento corrige um apontamento. Técnicos só alteram os próprios.
func (s *Service) UpdateApontamento(ctx context.Context, id, actorID int64, actorFuncao string, input UpdateApontamentoInput) (*Apontamento, error) {
	current, err := s.repo.GetApontamento(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorFuncao != repo.FuncaoAdministrador && current.TecnicoID != actorID {
		return nil, ErrApontamentoForbidden
	}

	fields := db.Fields{}
	comeco, fim := current.Comeco, current.Fim
	if input.Descricao != nil {
		descricao := strings.TrimSpace(*input.Descricao)
		if err := util.RequireString(descricao, "descricao"); err != nil {
			return nil, err
		}
		fields["descricao"] = descricao
	}
	if input.Comeco != nil {
		comeco = input.Comeco
		fields["comeco"] = *input.Comeco
	}
	if input.Fim != nil {
		fim = input.Fim
		fields["fim"] = *input.Fim
	}
	if err := checkPeriodo(comeco, fim); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	if err := s.repo.UpdateApontamento(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetApontamento(ctx, id)
}

// DeleteApontamento remove um apontamento.
func (s *Service) DeleteApontamento(ctx context.Context, id int64) error {
	return s.repo.DeleteApontamento(ctx, id)
}

// Resumo conta chamados por estado, por tipo e por técnico.
func (s *Service) Resumo(ctx context.Context) (*Resumo, error) {
	chamados, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	tipos, err := s.repo.nomes(ctx, tablePool, "titulo", nil)
	if err != nil {
		return nil, err
	}
	tecnicos, err := s.repo.nomes(ctx, tableUsuarios, "nome", db.Where(db.Eq("funcao", repo.FuncaoTecnico)))
	if err != nil {
		return nil, err
	}

	resumo := &Resumo{
		Total: len(chamados),
		PorEstado: map[string]int{
			EstadoAberto:      0,
			EstadoEmAndamento: 0,
			EstadoConcluido:   0,
		},
	}
	porTipo := map[int64]int{}
	porTecnico := map[int64]int{}
	semTecnico := 0
	for _, c := range chamados {
		resumo.PorEstado[c.Estado]++
		porTipo[c.TipoID]++
		if c.TecnicoID == nil {
			semTecnico++
			continue
		}
		porTecnico[*c.TecnicoID]++
	}

	resumo.PorTipo = contagens(porTipo, tipos)
	resumo.PorTecnico = contagens(porTecnico, tecnicos)
	if semTecnico > 0 {
		resumo.PorTecnico = append(resumo.PorTecnico, Contagem{Nome: "sem técnico", Total: semTecnico})
	}
	return resumo, nil
}

func contagens(totais map[int64]int, nomes map[int64]string) []Contagem {
	out := make([]Contagem, 0, len(totais))
	for id, total := range totais {
		id := id
		out = append(out, Contagem{ID: &id, Nome: nomes[id], Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return *out[i].ID < *out[j].ID
	})
	return out
}

func checkPeriodo(comeco, fim *time.Time) error {
	if comeco != nil && fim != nil && fim.Before(*comeco) {
		return ErrInvalidPeriodo
	}
	return nil
}
