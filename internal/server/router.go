package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nithronos/secheaders/internal/config"
	"nithronos/secheaders/internal/observability"
	"nithronos/secheaders/internal/posture"
	"nithronos/secheaders/internal/ratelimit"
	"nithronos/secheaders/pkg/auth"
	"nithronos/secheaders/pkg/secheaders"
)

// Version is reported by /api/health; set at link time.
var Version = "0.1.0"

const APIPrefix = "/api/v1/security-headers"

// Deps are the collaborators the router serves. Only Service is required.
type Deps struct {
	Service  *secheaders.Service
	Auditor  *posture.Auditor
	Metrics  *observability.Metrics
	Gatherer prom.Gatherer
	Limiter  *ratelimit.Limiter
}

func Logger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return log.Logger.Level(cfg.LogLevel).With().Timestamp().Logger()
}

func NewRouter(cfg config.Config, logger zerolog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(zerologMiddleware(&logger, d.Metrics))
	r.Use(securityHeaders(cfg.Environment))

	origins := []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	if cfg.CORSOrigin != "" {
		origins = []string{cfg.CORSOrigin}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Config-Source"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "version": Version, "environment": cfg.Environment})
	})

	if cfg.MetricsEnabled && d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", observability.Handler(d.Gatherer))
	}

	authn := &authenticator{
		tokens:   auth.NewTokenVerifier(cfg.APIToken),
		disabled: cfg.AuthDisabled,
	}
	if len(cfg.SessionHashKey) > 0 {
		authn.codec = auth.NewSessionCodec(cfg.SessionHashKey, cfg.SessionBlockKey)
	}

	headers := NewHeadersHandler(logger, d.Service, d.Auditor, d.Limiter)
	r.Group(func(pr chi.Router) {
		pr.Use(func(next http.Handler) http.Handler { return withUser(next, authn) })
		pr.Use(requireAuth)
		pr.Mount(APIPrefix, headers.Routes())
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
