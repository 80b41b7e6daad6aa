package chamado

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
)

var (
	ErrNotFound             = errors.New("chamado não encontrado")
	ErrApontamentoNotFound  = errors.New("apontamento não encontrado")
	ErrInvalidEstado        = errors.New("estado inválido")
	ErrInvalidPrioridade    = errors.New("prioridade inválida")
	ErrInvalidPeriodo       = errors.New("fim anterior ao começo")
	ErrApontamentoForbidden = errors.New("apontamento pertence a outro técnico")
)

const (
	EstadoAberto      = "aberto"
	EstadoEmAndamento = "em_andamento"
	EstadoConcluido   = "concluido"

	PrioridadeBaixa = "baixa"
	PrioridadeMedia = "media"
	PrioridadeAlta  = "alta"

	// PatrimonioLen é o tamanho fixo da etiqueta de patrimônio.
	PatrimonioLen = 7
)

var (
	validEstados = map[string]struct{}{
		EstadoAberto:      {},
		EstadoEmAndamento: {},
		EstadoConcluido:   {},
	}
	validPrioridades = map[string]struct{}{
		PrioridadeBaixa: {},
		PrioridadeMedia: {},
		PrioridadeAlta:  {},
	}
)

// Patrimonio é a etiqueta do equipamento. No JSON aceita texto ou número.
type Patrimonio string

func (p *Patrimonio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Patrimonio(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("patrimonio deve ser texto ou número")
	}
	*p = Patrimonio(n.String())
	return nil
}

// Chamado representa um pedido de manutenção de um equipamento da escola.
type Chamado struct {
	ID           int64      `json:"id"`
	Titulo       string     `json:"titulo"`
	Descricao    string     `json:"descricao"`
	Patrimonio   string     `json:"patrimonio"`
	TipoID       int64      `json:"tipo_id"`
	TecnicoID    *int64     `json:"tecnico_id"`
	UsuarioID    int64      `json:"usuario_id"`
	Estado       string     `json:"estado"`
	Prioridade   string     `json:"prioridade"`
	CriadoEm     time.Time  `json:"criado_em"`
	AtualizadoEm time.Time  `json:"atualizado_em"`
	FinalizadoEm *time.Time `json:"finalizado_em,omitempty"`
}

// Apontamento registra o trabalho de um técnico no chamado.
type Apontamento struct {
	ID        int64      `json:"id"`
	ChamadoID int64      `json:"chamado_id"`
	TecnicoID int64      `json:"tecnico_id"`
	Descricao string     `json:"descricao"`
	Comeco    *time.Time `json:"comeco,omitempty"`
	Fim       *time.Time `json:"fim,omitempty"`
	CriadoEm  time.Time  `json:"criado_em"`
}

// CreateInput reúne os campos de abertura de chamado.
type CreateInput struct {
	Titulo     string     `json:"titulo" validate:"required,max=200"`
	Descricao  string     `json:"descricao"`
	Patrimonio Patrimonio `json:"patrimonio"`
	TipoID     int64      `json:"tipo_id"`
	TecnicoID  *int64     `json:"tecnico_id"`
	UsuarioID  int64      `json:"usuario_id"`
	Estado     string     `json:"estado"`
	Prioridade string     `json:"prioridade"`
}

// UpdateInput carrega apenas os campos enviados.
type UpdateInput struct {
	Titulo         *string     `json:"titulo"`
	Descricao      *string     `json:"descricao"`
	Patrimonio     *Patrimonio `json:"patrimonio"`
	TipoID         *int64      `json:"tipo_id"`
	TecnicoID      *int64      `json:"tecnico_id"`
	RemoverTecnico bool        `json:"remover_tecnico"`
	Estado         *string     `json:"estado"`
	Prioridade     *string     `json:"prioridade"`
}

// ListFilter restringe a listagem; campos vazios não filtram.
type ListFilter struct {
	Estado    string
	TipoID    int64
	TecnicoID int64
	UsuarioID int64
}

// CreateApontamentoInput reúne os campos de um novo apontamento.
type CreateApontamentoInput struct {
	ChamadoID int64      `json:"chamado_id" validate:"gt=0"`
	TecnicoID int64      `json:"-"`
	Descricao string     `json:"descricao" validate:"required"`
	Comeco    *time.Time `json:"comeco"`
	Fim       *time.Time `json:"fim"`
}

// UpdateApontamentoInput carrega apenas os campos enviados.
type UpdateApontamentoInput struct {
	Descricao *string    `json:"descricao"`
	Comeco    *time.Time `json:"comeco"`
	Fim       *time.Time `json:"fim"`
}

// Contagem agrupa chamados por uma dimensão do relatório.
type Contagem struct {
	ID    *int64 `json:"id"`
	Nome  string `json:"nome"`
	Total int    `json:"total"`
}

// Resumo alimenta o painel do administrador.
type Resumo struct {
	Total      int            `json:"total"`
	PorEstado  map[string]int `json:"por_estado"`
	PorTipo    []Contagem     `json:"por_tipo"`
	PorTecnico []Contagem     `json:"por_tecnico"`
}

// NormalizeEstado padroniza estado vindo do cliente.
func NormalizeEstado(estado string) string {
	return strings.ToLower(strings.TrimSpace(estado))
}

// NormalizePrioridade padroniza prioridade vinda do cliente.
func NormalizePrioridade(prioridade string) string {
	return strings.ToLower(strings.TrimSpace(prioridade))
}

// IsValidEstado indica se o estado é aceito.
func IsValidEstado(estado string) bool {
	_, ok := validEstados[estado]
	return ok
}

// IsValidPrioridade indica se a prioridade é aceita.
func IsValidPrioridade(prioridade string) bool {
	_, ok := validPrioridades[prioridade]
	return ok
}

func chamadoFromRow(row db.Row) Chamado {
	return Chamado{
		ID:           row.Int64("id"),
		Titulo:       row.String("titulo"),
		Descricao:    row.String("descricao"),
		Patrimonio:   row.String("patrimonio"),
		TipoID:       row.Int64("tipo_id"),
		TecnicoID:    row.OptInt64("tecnico_id"),
		UsuarioID:    row.Int64("usuario_id"),
		Estado:       row.String("estado"),
		Prioridade:   row.String("prioridade"),
		CriadoEm:     row.Time("criado_em"),
		AtualizadoEm: row.Time("atualizado_em"),
		FinalizadoEm: row.OptTime("finalizado_em"),
	}
}

func apontamentoFromRow(row db.Row) Apontamento {
	return Apontamento{
		ID:        row.Int64("id"),
		ChamadoID: row.Int64("chamado_id"),
		TecnicoID: row.Int64("tecnico_id"),
		Descricao: row.String("descricao"),
		Comeco:    row.OptTime("comeco"),
		Fim:       row.OptTime("fim"),
		CriadoEm:  row.Time("criado_em"),
	}
}
