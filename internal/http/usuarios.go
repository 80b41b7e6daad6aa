package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/gestaozabele/chamados/internal/http/middleware"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/service"
	"github.com/gestaozabele/chamados/internal/util"
)

func (h *Handler) ListUsuarios(w http.ResponseWriter, r *http.Request) {
	usuarios, err := h.usuarios.List(r.Context(), r.URL.Query().Get("funcao"))
	if err != nil {
		h.handleUsuarioError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, usuarios)
}

func (h *Handler) GetUsuario(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	usuario, err := h.usuarios.Get(r.Context(), id)
	if err != nil {
		h.handleUsuarioError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, usuario)
}

func (h *Handler) CreateUsuario(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Nome   string `json:"nome"`
		Email  string `json:"email"`
		Senha  string `json:"senha"`
		Funcao string `json:"funcao"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	usuario, err := h.usuarios.Create(r.Context(), service.CreateUsuarioInput{
		Nome:   payload.Nome,
		Email:  payload.Email,
		Senha:  payload.Senha,
		Funcao: payload.Funcao,
		Status: payload.Status,
	})
	if err != nil {
		h.handleUsuarioError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"mensagem": "Usuário criado com sucesso", "usuario": usuario})
}

func (h *Handler) UpdateUsuario(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var payload struct {
		Nome   *string `json:"nome"`
		Email  *string `json:"email"`
		Senha  *string `json:"senha"`
		Funcao *string `json:"funcao"`
		Status *string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	usuario, err := h.usuarios.Update(r.Context(), id, service.UpdateUsuarioInput{
		Nome:   payload.Nome,
		Email:  payload.Email,
		Senha:  payload.Senha,
		Funcao: payload.Funcao,
		Status: payload.Status,
	})
	if err != nil {
		h.handleUsuarioError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"mensagem": "Usuário atualizado com sucesso", "usuario": usuario})
}

func (h *Handler) DeleteUsuario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.usuarios.Delete(ctx, id, httpmiddleware.GetAccountID(ctx)); err != nil {
		h.handleUsuarioError(w, r, err)
		return
	}
	log.Ctx(ctx).Info().Int64("usuario_id", id).Int64("por", httpmiddleware.GetAccountID(ctx)).Msg("usuário excluído")
	WriteJSON(w, http.StatusOK, map[string]string{"mensagem": "Usuário excluído com sucesso"})
}

func (h *Handler) handleUsuarioError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "usuário não encontrado", nil)
	case errors.Is(err, repo.ErrEmailInUse), errors.Is(err, repo.ErrInUse), errors.Is(err, service.ErrSelfDelete):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case util.IsInputError(err):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("usuarios handler error")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return 0, false
	}
	return id, true
}
