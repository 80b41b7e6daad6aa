package chamado

import (
	"context"
	"errors"
	"time"

	"github.com/gestaozabele/chamados/internal/db"
)

const (
	tableChamados     = "chamados"
	tableApontamentos = "apontamentos"
	tablePool         = "pool"
	tableUsuarios     = "usuarios"
)

// Repository encapsula leituras e escritas de chamados e apontamentos.
type Repository struct {
	db db.DataAccess
}

// NewRepository cria o repositório sobre o gateway (ou uma transação dele).
func NewRepository(data db.DataAccess) *Repository {
	return &Repository{db: data}
}

// List lista chamados dentro do filtro informado, ordenados por id.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Chamado, error) {
	var conds db.Filter
	if filter.Estado != "" {
		conds = append(conds, db.Eq("estado", filter.Estado))
	}
	if filter.TipoID > 0 {
		conds = append(conds, db.Eq("tipo_id", filter.TipoID))
	}
	if filter.TecnicoID > 0 {
		conds = append(conds, db.Eq("tecnico_id", filter.TecnicoID))
	}
	if filter.UsuarioID > 0 {
		conds = append(conds, db.Eq("usuario_id", filter.UsuarioID))
	}

	rows, err := r.db.ReadAll(ctx, tableChamados, conds)
	if err != nil {
		return nil, err
	}
	out := make([]Chamado, 0, len(rows))
	for _, row := range rows {
		out = append(out, chamadoFromRow(row))
	}
	return out, nil
}

// Get recupera um chamado.
func (r *Repository) Get(ctx context.Context, id int64) (*Chamado, error) {
	row, err := r.db.ReadOne(ctx, tableChamados, db.ByID(id))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c := chamadoFromRow(row)
	return &c, nil
}

type insertChamado struct {
	Titulo     string
	Descricao  string
	Patrimonio string
	TipoID     int64
	TecnicoID  *int64
	UsuarioID  int64
	Estado     string
	Prioridade string
	Agora      time.Time
}

// Insert grava o chamado e devolve o id gerado.
func (r *Repository) Insert(ctx context.Context, in insertChamado) (int64, error) {
	fields := db.Fields{
		"titulo":        in.Titulo,
		"descricao":     in.Descricao,
		"patrimonio":    in.Patrimonio,
		"tipo_id":       in.TipoID,
		"tecnico_id":    in.TecnicoID,
		"usuario_id":    in.UsuarioID,
		"estado":        in.Estado,
		"prioridade":    in.Prioridade,
		"criado_em":     in.Agora,
		"atualizado_em": in.Agora,
	}
	if in.Estado == EstadoConcluido {
		fields["finalizado_em"] = in.Agora
	}
	return r.db.Insert(ctx, tableChamados, fields)
}

// Update grava as colunas informadas. ErrNotFound quando o chamado sumiu.
func (r *Repository) Update(ctx context.Context, id int64, fields db.Fields) error {
	n, err := r.db.Update(ctx, tableChamados, fields, db.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete remove o chamado. ErrNotFound quando nada foi removido.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	n, err := r.db.Delete(ctx, tableChamados, db.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListApontamentos lista o histórico do chamado.
func (r *Repository) ListApontamentos(ctx context.Context, chamadoID int64) ([]Apontamento, error) {
	rows, err := r.db.ReadAll(ctx, tableApontamentos, db.Where(db.Eq("chamado_id", chamadoID)))
	if err != nil {
		return nil, err
	}
	out := make([]Apontamento, 0, len(rows))
	for _, row := range rows {
		out = append(out, apontamentoFromRow(row))
	}
	return out, nil
}

// GetApontamento recupera um apontamento.
func (r *Repository) GetApontamento(ctx context.Context, id int64) (*Apontamento, error) {
	row, err := r.db.ReadOne(ctx, tableApontamentos, db.ByID(id))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrApontamentoNotFound
		}
		return nil, err
	}
	a := apontamentoFromRow(row)
	return &a, nil
}

// InsertApontamento grava o apontamento e devolve o id gerado.
func (r *Repository) InsertApontamento(ctx context.Context, in CreateApontamentoInput, agora time.Time) (int64, error) {
	return r.db.Insert(ctx, tableApontamentos, db.Fields{
		"chamado_id": in.ChamadoID,
		"tecnico_id": in.TecnicoID,
		"descricao":  in.Descricao,
		"comeco":     in.Comeco,
		"fim":        in.Fim,
		"criado_em":  agora,
	})
}

// UpdateApontamento grava as colunas informadas.
func (r *Repository) UpdateApontamento(ctx context.Context, id int64, fields db.Fields) error {
	n, err := r.db.Update(ctx, tableApontamentos, fields, db.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrApontamentoNotFound
	}
	return nil
}

// DeleteApontamento remove um apontamento.
func (r *Repository) DeleteApontamento(ctx context.Context, id int64) error {
	n, err := r.db.Delete(ctx, tableApontamentos, db.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrApontamentoNotFound
	}
	return nil
}

// DeleteApontamentosDoChamado remove todo o histórico do chamado.
func (r *Repository) DeleteApontamentosDoChamado(ctx context.Context, chamadoID int64) (int64, error) {
	return r.db.Delete(ctx, tableApontamentos, db.Where(db.Eq("chamado_id", chamadoID)))
}

// nomes devolve id -> coluna de exibição de uma tabela.
func (r *Repository) nomes(ctx context.Context, table, column string, filter db.Filter) (map[int64]string, error) {
	rows, err := r.db.ReadAll(ctx, table, filter)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, row := range rows {
		out[row.Int64("id")] = row.String(column)
	}
	return out, nil
}
