package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const corsMaxAge = 10 * 60

// corsPolicy decide quais origens do painel podem chamar a API com cookie.
type corsPolicy struct {
	origins map[string]bool
	// domínios aceitos via *.dominio; só subdomínios contam
	domains []string
}

func newCORSPolicy(entries []string) corsPolicy {
	p := corsPolicy{origins: map[string]bool{}}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		switch {
		case entry == "":
		case strings.HasPrefix(entry, "*."):
			p.domains = append(p.domains, strings.ToLower(entry[2:]))
		default:
			p.origins[strings.TrimSuffix(entry, "/")] = true
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.origins[origin] {
		return true
	}
	if len(p.domains) == 0 {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range p.domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// CORS libera o painel web a chamar a API com cookie de sessão.
// ALLOW_ORIGINS aceita origens exatas (http://localhost:5173) e subdomínios (*.escola.local).
// Preflight responde 204 aqui mesmo; os demais OPTIONS seguem para o roteador.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			allowed := policy.allows(origin)
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
