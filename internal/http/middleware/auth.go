package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/auth"
)

// SessionCookie é o nome do cookie HTTP-only que carrega o token.
const SessionCookie = "token"

type contextKey string

const (
	ContextKeyAccountID contextKey = "account_id"
	ContextKeyFuncao    contextKey = "funcao"
)

// TokenVerifier valida o token bruto e devolve as claims.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// TokenFromRequest extrai o token: cabeçalho Authorization primeiro, cookie depois.
// Do cabeçalho vale o segundo segmento separado por espaço ("Esquema token").
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) >= 2 && parts[1] != "" {
			return parts[1]
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Auth valida o token da sessão e injeta conta e função no contexto.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if isTokenError(err) {
					writeError(w, http.StatusForbidden, "AUTH", "token inválido")
					return
				}
				log.Ctx(r.Context()).Error().Err(err).Msg("falha ao validar sessão")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}

			ctx := WithAccount(r.Context(), claims.ID, claims.Funcao)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrTokenMalformed) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrTokenRevoked)
}

// WithAccount injeta a conta autenticada no contexto.
func WithAccount(ctx context.Context, id int64, funcao string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAccountID, id)
	return context.WithValue(ctx, ContextKeyFuncao, funcao)
}

// GetAccountID recupera o id da conta do contexto.
func GetAccountID(ctx context.Context) int64 {
	val, _ := ctx.Value(ContextKeyAccountID).(int64)
	return val
}

// GetFuncao recupera a função da conta do contexto.
func GetFuncao(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyFuncao).(string)
	return val
}

// HasFuncao indica se a conta possui uma das funções informadas.
func HasFuncao(ctx context.Context, funcoes ...string) bool {
	current := GetFuncao(ctx)
	for _, funcao := range funcoes {
		if strings.EqualFold(current, funcao) {
			return true
		}
	}
	return false
}

// RequireFuncao garante que a conta possua pelo menos uma das funções informadas.
func RequireFuncao(funcoes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasFuncao(r.Context(), funcoes...) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a "+strings.Join(funcoes, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":     code,
		"mensagem": message,
	})
}
