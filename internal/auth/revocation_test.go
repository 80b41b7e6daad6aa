package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubRedis struct {
	store map[string]string
	ttl   map[string]time.Duration
	err   error
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	if s.store == nil {
		s.store = make(map[string]string)
		s.ttl = make(map[string]time.Duration)
	}
	s.store[key] = "1"
	s.ttl[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	val, ok := s.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	var n int64
	for _, key := range keys {
		if _, ok := s.store[key]; ok {
			delete(s.store, key)
			delete(s.ttl, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestForgetReactivatesToken(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	sessions := NewSessionManager(strings.Repeat("r", 32)).WithClock(fixedClock(now))
	revocations := NewRevocations(&stubRedis{})
	revocations.now = fixedClock(now)
	verifier := NewVerifier(sessions, revocations)

	token, claims, err := sessions.Issue(Identity{ID: 4, Funcao: "usuario"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := revocations.Revoke(context.Background(), token, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}

	if err := revocations.Forget(context.Background(), token); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); err != nil {
		t.Fatalf("token should be valid again: %v", err)
	}
	if err := revocations.Forget(context.Background(), token); err != nil {
		t.Fatalf("forget of absent key should be a no-op: %v", err)
	}
}

func TestVerifierRejectsRevokedToken(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	sessions := NewSessionManager(strings.Repeat("r", 32)).WithClock(fixedClock(now))
	store := &stubRedis{}
	revocations := NewRevocations(store)
	revocations.now = fixedClock(now)
	verifier := NewVerifier(sessions, revocations)

	token, claims, err := sessions.Issue(Identity{ID: 9, Funcao: "tecnico"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.Verify(context.Background(), token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	if err := revocations.Revoke(context.Background(), token, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := store.ttl[RevocationKey(token)]; got != SessionTTL {
		t.Fatalf("revocation should live until expiry, got ttl %v", got)
	}
	if strings.Contains(RevocationKey(token), token) {
		t.Fatal("raw token must not be stored in the key")
	}

	if _, err := verifier.Verify(context.Background(), token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestVerifierSurfacesRedisFailure(t *testing.T) {
	sessions := NewSessionManager(strings.Repeat("f", 32))
	verifier := NewVerifier(sessions, NewRevocations(&stubRedis{err: errors.New("conexão recusada")}))

	token, _, err := sessions.Issue(Identity{ID: 1, Funcao: "usuario"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = verifier.Verify(context.Background(), token)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("infrastructure failure must not look like a token failure: %v", err)
	}
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	store := &stubRedis{}
	revocations := NewRevocations(store)
	if err := revocations.Revoke(context.Background(), "tok", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if len(store.store) != 0 {
		t.Fatal("expired token should not be stored")
	}
}

func TestVerifierWithoutRevocationList(t *testing.T) {
	sessions := NewSessionManager(strings.Repeat("n", 32))
	verifier := NewVerifier(sessions, nil)
	token, _, err := sessions.Issue(Identity{ID: 2, Funcao: "usuario"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), token); err != nil {
		t.Fatalf("verify: %v", err)
	}
}
