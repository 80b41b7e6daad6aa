package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Logging anexa um logger com request_id ao contexto e registra cada requisição.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		logger := log.Logger
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			logger = logger.With().Str("request_id", reqID).Logger()
		}
		r = r.WithContext(logger.WithContext(r.Context()))

		next.ServeHTTP(ww, r)

		event := logger.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event = event.Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", ww.Status()).Int("bytes", ww.BytesWritten()).Dur("duration", time.Since(start))

		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			event = event.Str("ip", ip)
		} else {
			event = event.Str("ip", r.RemoteAddr)
		}

		if ua := r.Header.Get("User-Agent"); ua != "" {
			event = event.Str("user_agent", ua)
		}

		event.Msg("http_request")
	})
}
