package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/ports"
)

type RouterOptions struct {
	Logger      *slog.Logger
	Verifier    ports.TokenVerifier
	Observer    HTTPObserver
	Metrics     http.Handler
	CORSOrigins []string
	ServiceName string
	// Ready reports whether storage and cache dependencies are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "affiliate-core"
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(logger))
	r.Use(tracingMiddleware(serviceName))
	r.Use(accessMiddleware(logger, opts.Observer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id", attributionHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
				return
			}
		}
		writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/aff/{code}", handler.redirectClick)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/conversions", handler.recordConversion)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(opts.Verifier))
			r.Get("/affiliate/dashboard", handler.getDashboard)
			r.Post("/affiliate/programs/{program_id}/join", handler.joinProgram)

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/programs", handler.createProgram)
				r.Get("/programs", handler.listPrograms)
				r.Get("/programs/{program_id}", handler.getProgram)
				r.Patch("/programs/{program_id}", handler.updateProgram)
				r.Delete("/programs/{program_id}", handler.deleteProgram)
				r.Get("/programs/{program_id}/summary", handler.programSummary)
				r.Get("/links", handler.listLinks)
				r.Patch("/links/{link_id}", handler.updateLink)
				r.Get("/conversions", handler.listConversions)
				r.Get("/conversions/{conversion_id}", handler.getConversion)
				r.Patch("/conversions/{conversion_id}", handler.updateConversionStatus)
				r.Delete("/conversions/{conversion_id}", handler.deleteConversion)
				r.Get("/stats", handler.platformStats)
				r.Get("/audit/{entity_type}/{entity_id}", handler.auditTrail)
			})
		})

		// Registered after the static /affiliate/dashboard route; chi prefers
		// static segments so "dashboard" is never taken as a code.
		r.Get("/affiliate/{code}", handler.trackClick)
	})
	return r
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actorFromContext(r.Context()).Role != application.RoleAdmin {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
