package http

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/chamados/internal/chamado"
	"github.com/gestaozabele/chamados/internal/config"
	"github.com/gestaozabele/chamados/internal/db"
	httpmiddleware "github.com/gestaozabele/chamados/internal/http/middleware"
	"github.com/gestaozabele/chamados/internal/pool"
	"github.com/gestaozabele/chamados/internal/repo"
	"github.com/gestaozabele/chamados/internal/service"
)

// Check testa uma dependência externa para o /ready.
type Check func(ctx context.Context) error

type Handler struct {
	authService *service.AuthService
	usuarios    *service.UsuarioService
	checks      map[string]Check
	devCookies  bool
}

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, data db.DataAccess, checks map[string]Check, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		authService: authService,
		usuarios:    service.NewUsuarioService(data),
		checks:      checks,
		devCookies:  devCookies,
	}

	chamadoHandler := chamado.NewHandler(chamado.NewService(data))
	poolHandler := pool.NewHandler(pool.NewService(data))

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Login)
			auth.Post("/logout", h.Logout)
			auth.Get("/check-auth", h.CheckAuth)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(authService.Verifier()))

		chamado.Mount(private, chamadoHandler)
		poolHandler.RegisterRoutes(private)

		private.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.RequireFuncao(repo.FuncaoAdministrador))
			admin.Route("/usuarios", func(u chi.Router) {
				u.Get("/", h.ListUsuarios)
				u.Post("/", h.CreateUsuario)
				u.Get("/{id}", h.GetUsuario)
				u.Put("/{id}", h.UpdateUsuario)
				u.Delete("/{id}", h.DeleteUsuario)
			})
		})
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida as dependências registradas (Postgres e, quando houver, Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failing []string
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Str("check", name).Msg("ready: dependência indisponível")
			failing = append(failing, name)
		}
	}

	if len(failing) > 0 {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", failing)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
