package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueThenVerifyRoundTrip(t *testing.T) {
	mgr := NewSessionManager(strings.Repeat("s", 32))

	token, issued, err := mgr.Issue(Identity{ID: 12, Funcao: "administrador", Email: "alice@teste.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID != 12 || claims.Funcao != "administrador" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != SessionTTL {
		t.Fatalf("expected ttl %v, got %v", SessionTTL, got)
	}
	if !issued.ExpiresAt.Equal(claims.ExpiresAt.Time) {
		t.Fatal("issued and verified expiry differ")
	}
}

func TestIssueIsDeterministicPerInstant(t *testing.T) {
	at := time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)
	id := Identity{ID: 3, Funcao: "tecnico"}

	a, _, err := NewSessionManager(strings.Repeat("k", 32)).WithClock(fixedClock(at)).Issue(id)
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, _, err := NewSessionManager(strings.Repeat("k", 32)).WithClock(fixedClock(at)).Issue(id)
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a != b {
		t.Fatal("same input, secret and instant must produce the same token")
	}

	c, _, err := NewSessionManager(strings.Repeat("k", 32)).WithClock(fixedClock(at.Add(time.Second))).Issue(id)
	if err != nil {
		t.Fatalf("issue c: %v", err)
	}
	if a == c {
		t.Fatal("different instants must produce different tokens")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewSessionManager(strings.Repeat("e", 32)).WithClock(fixedClock(at))

	token, _, err := mgr.Issue(Identity{ID: 1, Funcao: "usuario"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mgr.WithClock(fixedClock(at.Add(SessionTTL - time.Minute)))
	if _, err := mgr.Verify(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	mgr.WithClock(fixedClock(at.Add(SessionTTL + time.Minute)))
	if _, err := mgr.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	mgr := NewSessionManager(strings.Repeat("t", 32))
	token, _, err := mgr.Issue(Identity{ID: 1, Funcao: "usuario"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := mgr.Verify(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}

	other := NewSessionManager(strings.Repeat("x", 32))
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("token signed with another secret must be malformed, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	mgr := NewSessionManager(strings.Repeat("g", 32))
	for _, raw := range []string{"", "abc", "a.b.c"} {
		if _, err := mgr.Verify(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%q: expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}
