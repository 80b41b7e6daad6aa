package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/auth"
	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/repo"
)

var (
	// ErrAccountNotFound indica e-mail sem conta correspondente.
	ErrAccountNotFound = errors.New("usuário não encontrado")
	// ErrInvalidCredentials indica senha que não confere com o hash.
	ErrInvalidCredentials = errors.New("senha incorreta")
	// ErrAccountDisabled indica conta com status inativo.
	ErrAccountDisabled = errors.New("conta desativada")
)

type authRepository interface {
	GetByEmail(ctx context.Context, email string) (repo.Usuario, error)
	Update(ctx context.Context, id int64, fields db.Fields) error
}

type revoker interface {
	Revoke(ctx context.Context, raw string, expiresAt time.Time) error
	Forget(ctx context.Context, raw string) error
}

// AuthService concentra autenticação por senha e ciclo de vida da sessão.
type AuthService struct {
	repo        authRepository
	compare     db.SecretComparer
	sessions    *auth.SessionManager
	verifier    *auth.Verifier
	revocations revoker
	now         func() time.Time
}

// NewAuthService cria novo serviço. revocations nil desativa a revogação no logout.
func NewAuthService(data db.DataAccess, sessions *auth.SessionManager, revocations *auth.Revocations) *AuthService {
	s := &AuthService{
		repo:     repo.NewUsuarios(data),
		compare:  data.CompareSecret,
		sessions: sessions,
		verifier: auth.NewVerifier(sessions, revocations),
		now:      time.Now,
	}
	if revocations != nil {
		s.revocations = revocations
	}
	return s
}

// Verifier expõe o verificador de sessão (útil em middlewares).
func (s *AuthService) Verifier() *auth.Verifier {
	return s.verifier
}

// LoginResult representa retorno padrão do login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      auth.Identity
}

// Authenticate confere e-mail e senha. O e-mail é comparado exatamente como armazenado.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*auth.Identity, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Ctx(ctx).Warn().Msg("login: usuário não encontrado")
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if !s.compare(password, user.SenhaHash) {
		log.Ctx(ctx).Warn().Int64("usuario_id", user.ID).Msg("login: senha inválida")
		return nil, ErrInvalidCredentials
	}

	if !user.Ativo() {
		return nil, ErrAccountDisabled
	}

	if auth.NeedsRehash(user.SenhaHash) {
		s.rehash(ctx, user.ID, password)
	}

	return &auth.Identity{ID: user.ID, Funcao: user.Funcao, Email: user.Email}, nil
}

// Login autentica e emite o token de sessão.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, claims, err := s.sessions.Issue(*identity)
	if err != nil {
		return nil, err
	}

	if s.revocations != nil {
		if err := s.revocations.Forget(ctx, token); err != nil {
			log.Ctx(ctx).Error().Err(err).Int64("usuario_id", identity.ID).Msg("login: falha ao reativar token")
			return nil, fmt.Errorf("reativar token: %w", err)
		}
	}

	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: *identity}, nil
}

// Logout revoga o token apresentado. Token ilegível ou vencido não tem o que revogar.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" || s.revocations == nil {
		return nil
	}
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return nil
	}
	return s.revocations.Revoke(ctx, token, claims.ExpiresAt.Time)
}

// CheckAuth valida o token da sessão atual.
func (s *AuthService) CheckAuth(ctx context.Context, token string) (*auth.Claims, error) {
	return s.verifier.Verify(ctx, token)
}

// rehash migra hash legado para Argon2id; falha não impede o login.
func (s *AuthService) rehash(ctx context.Context, id int64, password string) {
	hash, err := auth.Hash(password)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("usuario_id", id).Msg("login: rehash falhou")
		return
	}
	if err := s.repo.Update(ctx, id, db.Fields{"senha_hash": hash, "atualizado_em": s.now()}); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("usuario_id", id).Msg("login: rehash não gravado")
	}
}
