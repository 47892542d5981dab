package http

import (
	"net/http"

	"trivia-quiz-service/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	WSHandler  *WSHandler
	APIHandler *APIHandler
	Logger     logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.WSHandler != nil {
		r.Get("/ws", cfg.WSHandler.ServeWS)
	}
	if cfg.APIHandler != nil {
		r.Mount("/api", Routes(cfg.APIHandler))
	}
	return r
}

// requestLogger stores a request-scoped logger in the context and logs each request.
func requestLogger(base logrus.FieldLogger) func(http.Handler) http.Handler {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := base.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(config.ContextWithLogger(r.Context(), log)))
			log.WithField("status", ww.Status()).Debug("request served")
		})
	}
}
