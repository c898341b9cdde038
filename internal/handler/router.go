package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pumperp/be-task-approvals/internal/auth"
	"github.com/pumperp/be-task-approvals/internal/logger"
)

// RouterConfig carries the knobs the router needs from service config.
type RouterConfig struct {
	JWTSecret      string
	RequestTimeout time.Duration
}

// NewRouter assembles the HTTP surface. /health is unauthenticated; the
// /api/v1 tree requires a bearer token.
func NewRouter(h *HTTPHandler, log *logger.Logger, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(corsAllowAll)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/stats", h.GetStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetTask)
				r.Delete("/", h.DeleteTask)
				r.Post("/transition", h.TransitionTask)
				r.Get("/history", h.GetHistory)
				r.Get("/comments", h.ListComments)
				r.Post("/comments", h.AddComment)
			})
		})

		r.Route("/approvers", func(r chi.Router) {
			r.Get("/", h.ListApprovers)
			r.Post("/", h.CreateApprover)
			r.Put("/{id}", h.UpdateApprover)
			r.Delete("/{id}", h.DeleteApprover)
		})
	})

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}

// corsAllowAll mirrors the permissive CORS policy of the other services in
// the platform; tightening is an ops concern.
func corsAllowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
