package chamado

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/gestaozabele/chamados/internal/http/middleware"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/util"
)

const maxBody = 1 << 20

// Handler expõe chamados, apontamentos e o resumo do painel.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes monta as rotas; o router externo já aplicou o middleware de sessão.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chamados", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/apontamentos", h.handleListApontamentos)
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoUsuario, repo.FuncaoAdministrador)).Post("/", h.handleCreate)
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoTecnico, repo.FuncaoAdministrador)).Put("/{id}", h.handleUpdate)
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoAdministrador)).Delete("/{id}", h.handleDelete)
	})

	r.Route("/apontamentos", func(r chi.Router) {
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoTecnico)).Post("/", h.handleCreateApontamento)
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoTecnico, repo.FuncaoAdministrador)).Put("/{id}", h.handleUpdateApontamento)
		r.With(httpmiddleware.RequireFuncao(repo.FuncaoAdministrador)).Delete("/{id}", h.handleDeleteApontamento)
	})

	r.With(httpmiddleware.RequireFuncao(repo.FuncaoAdministrador)).Get("/relatorios/resumo", h.handleResumo)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := ListFilter{Estado: q.Get("estado")}
	var ok bool
	if filter.TipoID, ok = queryID(q.Get("tipo_id")); !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "tipo_id inválido", nil)
		return
	}
	if filter.TecnicoID, ok = queryID(q.Get("tecnico_id")); !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "tecnico_id inválido", nil)
		return
	}
	if filter.UsuarioID, ok = queryID(q.Get("usuario_id")); !ok {
		writeError(w, http.StatusBadRequest, "VALIDATION", "usuario_id inválido", nil)
		return
	}
	// solicitante comum só enxerga os próprios chamados
	if httpmiddleware.GetFuncao(ctx) == repo.FuncaoUsuario {
		filter.UsuarioID = httpmiddleware.GetAccountID(ctx)
	}

	chamados, err := h.service.List(ctx, filter)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chamados)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.visible(r, id)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload CreateInput
	if !decode(w, r, &payload) {
		return
	}
	if payload.UsuarioID == 0 || httpmiddleware.GetFuncao(ctx) == repo.FuncaoUsuario {
		payload.UsuarioID = httpmiddleware.GetAccountID(ctx)
	}

	c, err := h.service.Create(ctx, payload)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	log.Ctx(ctx).Info().Int64("chamado_id", c.ID).Int64("usuario_id", c.UsuarioID).Msg("chamado criado")
	writeJSON(w, http.StatusCreated, map[string]any{"mensagem": "Chamado criado com sucesso", "chamado": c})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload UpdateInput
	if !decode(w, r, &payload) {
		return
	}

	c, err := h.service.Update(ctx, id, payload)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mensagem": "Chamado atualizado com sucesso", "chamado": c})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	log.Ctx(ctx).Info().Int64("chamado_id", id).Int64("por", httpmiddleware.GetAccountID(ctx)).Msg("chamado excluído")
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Chamado excluído com sucesso"})
}

func (h *Handler) handleListApontamentos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.visible(r, id); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	apontamentos, err := h.service.ListApontamentos(r.Context(), id)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apontamentos)
}

func (h *Handler) handleCreateApontamento(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload CreateApontamentoInput
	if !decode(w, r, &payload) {
		return
	}
	payload.TecnicoID = httpmiddleware.GetAccountID(ctx)

	a, err := h.service.CreateApontamento(ctx, payload)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"mensagem": "Apontamento registrado com sucesso", "apontamento": a})
}

func (h *Handler) handleUpdateApontamento(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var payload UpdateApontamentoInput
	if !decode(w, r, &payload) {
		return
	}

	a, err := h.service.UpdateApontamento(ctx, id, httpmiddleware.GetAccountID(ctx), httpmiddleware.GetFuncao(ctx), payload)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mensagem": "Apontamento atualizado com sucesso", "apontamento": a})
}

func (h *Handler) handleDeleteApontamento(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteApontamento(r.Context(), id); err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "Apontamento excluído com sucesso"})
}

func (h *Handler) handleResumo(w http.ResponseWriter, r *http.Request) {
	resumo, err := h.service.Resumo(r.Context())
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resumo)
}

// visible esconde de um solicitante comum os chamados de outras pessoas.
func (h *Handler) visible(r *http.Request, id int64) (*Chamado, error) {
	ctx := r.Context()
	c, err := h.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if httpmiddleware.GetFuncao(ctx) == repo.FuncaoUsuario && c.UsuarioID != httpmiddleware.GetAccountID(ctx) {
		return nil, ErrNotFound
	}
	return c, nil
}

var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{ErrTypeNotFound, http.StatusNotFound, "TIPO_NAO_ENCONTRADO"},
	{ErrRequesterNotFound, http.StatusNotFound, "SOLICITANTE_NAO_ENCONTRADO"},
	{ErrTechnicianNotFound, http.StatusNotFound, "TECNICO_NAO_ENCONTRADO"},
	{ErrInvalidAssetTag, http.StatusBadRequest, "PATRIMONIO_INVALIDO"},
	{ErrDuplicateAssetTicket, http.StatusConflict, "CHAMADO_DUPLICADO"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrApontamentoNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrApontamentoForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrInvalidEstado, http.StatusBadRequest, "VALIDATION"},
	{ErrInvalidPrioridade, http.StatusBadRequest, "VALIDATION"},
	{ErrInvalidPeriodo, http.StatusBadRequest, "VALIDATION"},
}

func (h *Handler) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if IsIntegrityError(err) {
		log.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("chamado recusado na validação de referências")
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			writeError(w, d.status, d.code, d.err.Error(), nil)
			return
		}
	}
	if util.IsInputError(err) {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("chamado handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return 0, false
	}
	return id, true
}

func queryID(raw string) (int64, bool) {
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return false
	}
	return true
}

type errorResponse struct {
	Code     string `json:"code"`
	Mensagem string `json:"mensagem"`
	Detalhes any    `json:"detalhes,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: code, Mensagem: message, Detalhes: details})
}
