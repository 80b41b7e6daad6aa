package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/auth"
	httpmiddleware "github.com/gestaozabele/chamados/internal/http/middleware"
	"github.com/gestaozabele/chamados/internal/service"
)

// Login autentica por e-mail e senha e grava o cookie de sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Email) == "" || payload.Senha == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	h.setSessionCookie(w, result.Token, result.ExpiresAt)
	WriteJSON(w, http.StatusOK, map[string]any{
		"mensagem": "Login realizado com sucesso",
		"token":    result.Token,
		"user":     result.User,
	})
}

// Logout encerra a sessão atual e limpa o cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), httpmiddleware.TokenFromRequest(r)); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("logout: revogação não registrada")
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"mensagem": "Logout realizado com sucesso"})
}

// CheckAuth informa se a requisição carrega uma sessão válida.
func (h *Handler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	token := httpmiddleware.TokenFromRequest(r)
	if token == "" {
		WriteJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	claims, err := h.authService.CheckAuth(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenMalformed) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenRevoked) {
			WriteJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("check-auth: falha ao validar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao validar sessão", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":     claims.ID,
			"funcao": claims.Funcao,
		},
	})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg("login: erro inesperado")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) cookieMode() (bool, http.SameSite) {
	if h.devCookies {
		return false, http.SameSiteLaxMode
	}
	return true, http.SameSiteNoneMode
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure, sameSite := h.cookieMode()
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	secure, sameSite := h.cookieMode()
	http.SetCookie(w, &http.Cookie{
		Name:     httpmiddleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
