package chamado

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/gestaozabele/chamados/internal/db"
	httpmiddleware "github.com/gestaozabele/chamados/internal/http/middleware"
)

// as simula o middleware de sessão com a conta informada nos cabeçalhos de teste.
func as(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.Header.Get("X-Test-Conta"), 10, 64)
		ctx := httpmiddleware.WithAccount(r.Context(), id, r.Header.Get("X-Test-Funcao"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRouter(f *fixture) http.Handler {
	r := chi.NewRouter()
	r.Use(as)
	Mount(r, NewHandler(f.svc))
	return r
}

func do(t *testing.T, h http.Handler, method, path string, conta int64, funcao string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Conta", strconv.FormatInt(conta, 10))
	req.Header.Set("X-Test-Funcao", funcao)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestChamadoHandlers(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)

	body := map[string]any{"titulo": "Computador sem rede", "patrimonio": 1234567, "tipo_id": f.tipo}
	rr := do(t, h, http.MethodPost, "/chamados", f.usuario, "usuario", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Mensagem string  `json:"mensagem"`
		Chamado  Chamado `json:"chamado"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Chamado.UsuarioID != f.usuario || created.Chamado.Patrimonio != "1234567" {
		t.Fatalf("unexpected ticket: %+v", created.Chamado)
	}

	rr = do(t, h, http.MethodPost, "/chamados", f.usuario, "usuario", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate should be 409, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/chamados", f.usuario, "usuario", map[string]any{"titulo": "x", "patrimonio": "1234567", "tipo_id": 999})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown tipo should be 404, got %d", rr.Code)
	}
	var errBody struct {
		Code     string `json:"code"`
		Mensagem string `json:"mensagem"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &errBody)
	if errBody.Code != "TIPO_NAO_ENCONTRADO" || errBody.Mensagem == "" {
		t.Fatalf("unexpected error body: %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodPost, "/chamados", f.usuario, "usuario", map[string]any{"titulo": "x", "patrimonio": "12", "tipo_id": f.tipo})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("short patrimonio should be 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodPost, "/chamados", f.tecnico, "tecnico", body)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("tecnico cannot open tickets, got %d", rr.Code)
	}

	path := "/chamados/" + strconv.FormatInt(created.Chamado.ID, 10)
	rr = do(t, h, http.MethodPut, path, f.usuario, "usuario", map[string]any{"estado": "concluido"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("usuario cannot update, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPut, path, f.tecnico, "tecnico", map[string]any{"estado": "em_andamento", "tecnico_id": f.tecnico})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	otherUser := f.mem.Seed(tableUsuarios, db.Fields{"nome": "Davi", "email": "davi@teste.com", "funcao": "usuario", "status": "ativo"})
	rr = do(t, h, http.MethodGet, path, otherUser, "usuario", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other requester should not see the ticket, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/chamados", otherUser, "usuario", nil)
	var list []Chamado
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list for other requester, got %s", rr.Body.String())
	}
	rr = do(t, h, http.MethodGet, "/chamados?estado=em_andamento", f.admin, "administrador", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one ticket for admin, got %s", rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/relatorios/resumo", f.tecnico, "tecnico", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("resumo is admin only, got %d", rr.Code)
	}
}

func TestDeleteHandlerSucceedsWhenApontamentosFail(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	id := f.seedChamadoComApontamentos(t, 3)
	f.mem.FailOn("delete", tableApontamentos, errors.New("tabela bloqueada"))

	path := "/chamados/" + strconv.FormatInt(id, 10)
	rr := do(t, h, http.MethodDelete, path, f.tecnico, "tecnico", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("tecnico cannot delete, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodDelete, path, f.admin, "administrador", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodDelete, path, f.admin, "administrador", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete should be 404, got %d", rr.Code)
	}
}

func TestApontamentoHandlers(t *testing.T) {
	f := newFixture(t)
	h := newRouter(f)
	id := f.mem.Seed(tableChamados, db.Fields{"titulo": "Lousa", "patrimonio": "1111111", "tipo_id": f.tipo, "usuario_id": f.usuario, "estado": EstadoAberto})

	rr := do(t, h, http.MethodPost, "/apontamentos", f.tecnico, "tecnico", map[string]any{"chamado_id": id, "descricao": "diagnóstico"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/apontamentos", f.admin, "administrador", map[string]any{"chamado_id": id, "descricao": "x"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("only tecnico writes notes, got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/apontamentos", f.tecnico, "tecnico", map[string]any{"chamado_id": id})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing descricao should be 400, got %d", rr.Code)
	}

	rr = do(t, h, http.MethodGet, "/chamados/"+strconv.FormatInt(id, 10)+"/apontamentos", f.usuario, "usuario", nil)
	var notas []Apontamento
	if err := json.Unmarshal(rr.Body.Bytes(), &notas); err != nil || len(notas) != 1 {
		t.Fatalf("expected one note, got %d %s", rr.Code, rr.Body.String())
	}
}
