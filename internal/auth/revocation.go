package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Revocations guarda no Redis os tokens encerrados por logout até o vencimento natural.
type Revocations struct {
	redis redisCommander
	now   func() time.Time
}

// NewRevocations cria a lista de revogação.
func NewRevocations(client redisCommander) *Revocations {
	return &Revocations{redis: client, now: time.Now}
}

// HashToken produz hash SHA-256 base64 do token; o token bruto nunca é persistido.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RevocationKey monta a chave Redis do token.
func RevocationKey(raw string) string {
	return fmt.Sprintf("sessao:revogada:%s", HashToken(raw))
}

// Revoke marca o token como encerrado. Tokens já vencidos não precisam de registro.
func (r *Revocations) Revoke(ctx context.Context, raw string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.redis.Set(ctx, RevocationKey(raw), "1", ttl).Err()
}

// Forget retira o token da lista. Emissões no mesmo segundo repetem o token, então
// um login logo após o logout precisa reativá-lo.
func (r *Revocations) Forget(ctx context.Context, raw string) error {
	return r.redis.Del(ctx, RevocationKey(raw)).Err()
}

// IsRevoked consulta a lista de revogação.
func (r *Revocations) IsRevoked(ctx context.Context, raw string) (bool, error) {
	err := r.redis.Get(ctx, RevocationKey(raw)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Verifier combina a validação do JWT com a lista de revogação (opcional).
type Verifier struct {
	sessions    *SessionManager
	revocations *Revocations
}

// NewVerifier cria o verificador; revocations nil mantém tokens válidos até expirar.
func NewVerifier(sessions *SessionManager, revocations *Revocations) *Verifier {
	return &Verifier{sessions: sessions, revocations: revocations}
}

// Verify valida o token. Falhas do Redis são devolvidas embrulhadas, sem sentinela de token.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := v.sessions.Verify(raw)
	if err != nil {
		return nil, err
	}
	if v.revocations == nil {
		return claims, nil
	}

	revoked, err := v.revocations.IsRevoked(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("consultar revogação: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}
