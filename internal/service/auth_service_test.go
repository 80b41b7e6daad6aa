package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestaozabele/chamados/internal/auth"
	"github.com/gestaozabele/chamados/internal/db"
	"github.com/gestaozabele/chamados/internal/db/dbtest"
)

var testSecret = strings.Repeat("s", 32)

type memRedis struct {
	store  map[string]string
	delErr error
}

func (m *memRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if m.store == nil {
		m.store = make(map[string]string)
	}
	m.store[key] = "1"
	cmd.SetVal("OK")
	return cmd
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	var n int64
	for _, key := range keys {
		if _, ok := m.store[key]; ok {
			delete(m.store, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	val, ok := m.store[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(val)
	return cmd
}

func seedUsuario(t *testing.T, mem *dbtest.Memory, email, senha, funcao, status string) int64 {
	t.Helper()
	hash, err := auth.Hash(senha)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return mem.Seed("usuarios", db.Fields{
		"nome":       "Conta " + funcao,
		"email":      email,
		"senha_hash": hash,
		"funcao":     funcao,
		"status":     status,
		"criado_em":  time.Now(),
	})
}

func newMemory() *dbtest.Memory {
	mem := dbtest.New().Unique("usuarios", "email")
	mem.Compare = auth.Matches
	return mem
}

func TestLoginReturnsRole(t *testing.T) {
	mem := newMemory()
	id := seedUsuario(t, mem, "alice@teste.com", "senha123", "administrador", "ativo")

	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), nil)
	res, err := svc.Login(context.Background(), "alice@teste.com", "senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.User.ID != id || res.User.Funcao != "administrador" || res.User.Email != "alice@teste.com" {
		t.Fatalf("unexpected identity: %+v", res.User)
	}
	if res.Token == "" {
		t.Fatal("expected token")
	}

	claims, err := svc.CheckAuth(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("check auth: %v", err)
	}
	if claims.ID != id || claims.Funcao != "administrador" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "alice@teste.com", "senha123", "usuario", "ativo")
	seedUsuario(t, mem, "bruno@teste.com", "senha123", "tecnico", "inativo")
	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), nil)

	cases := []struct {
		name  string
		email string
		senha string
		want  error
	}{
		{"email desconhecido", "ninguem@teste.com", "senha123", ErrAccountNotFound},
		{"senha errada", "alice@teste.com", "errada", ErrInvalidCredentials},
		{"email com caixa diferente", "Alice@teste.com", "senha123", ErrAccountNotFound},
		{"conta inativa", "bruno@teste.com", "senha123", ErrAccountDisabled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.email, tc.senha)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthenticateRehashesLegacyHash(t *testing.T) {
	mem := newMemory()
	legacy, err := bcrypt.GenerateFromPassword([]byte("senha123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	id := mem.Seed("usuarios", db.Fields{
		"nome":       "Legado",
		"email":      "legado@teste.com",
		"senha_hash": string(legacy),
		"funcao":     "tecnico",
		"status":     "ativo",
	})

	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), nil)
	if _, err := svc.Authenticate(context.Background(), "legado@teste.com", "senha123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	row, err := mem.ReadOne(context.Background(), "usuarios", db.ByID(id))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	stored := row.String("senha_hash")
	if auth.NeedsRehash(stored) {
		t.Fatalf("hash should have been migrated, got %s", stored)
	}
	if !auth.Matches("senha123", stored) {
		t.Fatal("migrated hash must still match")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "carla@teste.com", "senha123", "tecnico", "ativo")
	revocations := auth.NewRevocations(&memRedis{})
	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), revocations)

	res, err := svc.Login(context.Background(), "carla@teste.com", "senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.CheckAuth(context.Background(), res.Token); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}

	if err := svc.Logout(context.Background(), "lixo"); err != nil {
		t.Fatalf("logout with garbage token should be a no-op: %v", err)
	}
}

func TestLoginAfterLogoutInSameSecond(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "carla@teste.com", "senha123", "tecnico", "ativo")
	now := time.Now().Truncate(time.Second)
	sessions := auth.NewSessionManager(testSecret).WithClock(func() time.Time { return now })
	svc := NewAuthService(mem, sessions, auth.NewRevocations(&memRedis{}))
	ctx := context.Background()

	first, err := svc.Login(ctx, "carla@teste.com", "senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, first.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	second, err := svc.Login(ctx, "carla@teste.com", "senha123")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if second.Token != first.Token {
		t.Fatal("expected the same token for the same instant")
	}
	claims, err := svc.CheckAuth(ctx, second.Token)
	if err != nil {
		t.Fatalf("fresh login must yield a working session: %v", err)
	}
	if claims.Funcao != "tecnico" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailsWhenTokenCannotBeReactivated(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "carla@teste.com", "senha123", "tecnico", "ativo")
	store := &memRedis{delErr: errors.New("redis indisponível")}
	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), auth.NewRevocations(store))

	if _, err := svc.Login(context.Background(), "carla@teste.com", "senha123"); err == nil {
		t.Fatal("expected login to fail when the revocation list is unreachable")
	}
}

func TestLogoutWithoutRevocationList(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "carla@teste.com", "senha123", "tecnico", "ativo")
	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), nil)

	res, err := svc.Login(context.Background(), "carla@teste.com", "senha123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.CheckAuth(context.Background(), res.Token); err != nil {
		t.Fatalf("without revocation list the token stays valid until expiry: %v", err)
	}
}

func TestUsuarioServiceLifecycle(t *testing.T) {
	mem := newMemory()
	svc := NewUsuarioService(mem)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUsuarioInput{Nome: "Davi", Email: "davi@teste.com", Senha: "senha123", Funcao: "Tecnico"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Funcao != "tecnico" || created.Status != "ativo" {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if !auth.Matches("senha123", created.SenhaHash) {
		t.Fatal("password must be stored hashed")
	}

	if _, err := svc.Create(ctx, CreateUsuarioInput{Nome: "Outro", Email: "davi@teste.com", Senha: "senha123", Funcao: "usuario"}); err == nil {
		t.Fatal("duplicate email must fail")
	}
	if _, err := svc.Create(ctx, CreateUsuarioInput{Nome: "X", Email: "x@teste.com", Senha: "senha123", Funcao: "diretor"}); err == nil {
		t.Fatal("unknown funcao must fail")
	}

	inativo := "inativo"
	updated, err := svc.Update(ctx, created.ID, UpdateUsuarioInput{Status: &inativo})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != "inativo" {
		t.Fatalf("status not updated: %+v", updated)
	}

	if err := svc.Delete(ctx, created.ID, created.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.Delete(ctx, created.ID, 999); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAuthenticateLogsWithRequestLogger(t *testing.T) {
	mem := newMemory()
	seedUsuario(t, mem, "alice@teste.com", "senha123", "administrador", "ativo")
	svc := NewAuthService(mem, auth.NewSessionManager(testSecret), nil)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("request_id", "req-42").Logger()
	ctx := logger.WithContext(context.Background())

	if _, err := svc.Authenticate(ctx, "ninguem@teste.com", "senha123"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "alice@teste.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two warnings, got %q", buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"req-42"`) {
			t.Fatalf("warning lost request id: %s", line)
		}
	}
}
