package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"nithronos/secheaders/internal/posture"
	"nithronos/secheaders/internal/ratelimit"
	"nithronos/secheaders/pkg/auth"
	"nithronos/secheaders/pkg/httpx"
	"nithronos/secheaders/pkg/secheaders"
)

const maxDocumentBytes = 1 << 20

// HeadersHandler serves the security headers admin API.
type HeadersHandler struct {
	logger  zerolog.Logger
	svc     *secheaders.Service
	auditor *posture.Auditor
	writes  *ratelimit.Limiter
}

// NewHeadersHandler wires the handler. auditor and writes may be nil.
func NewHeadersHandler(logger zerolog.Logger, svc *secheaders.Service, auditor *posture.Auditor, writes *ratelimit.Limiter) *HeadersHandler {
	return &HeadersHandler{
		logger:  logger.With().Str("component", "headers-handler").Logger(),
		svc:     svc,
		auditor: auditor,
		writes:  writes,
	}
}

// Routes returns the API routes. Callers mount it behind requireAuth.
func (h *HeadersHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/defaults/{env}", h.GetDefaults)
	r.Get("/posture", h.GetPosture)

	// Ad hoc documents
	r.Post("/validate", h.ValidateDocument)
	r.Post("/stats", h.ScoreDocument)
	r.Post("/compile", h.CompileDocument)

	r.Route("/{env}", func(r chi.Router) {
		r.Get("/", h.GetConfig)
		r.With(requireRole(auth.RoleAdmin), limitWrites(h.writes)).Put("/", h.PutConfig)
		r.Get("/headers", h.GetHeaders)
		r.Get("/validate", h.GetValidation)
		r.Get("/stats", h.GetStats)
		r.Get("/export", h.GetExport)
	})

	return r
}

func (h *HeadersHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, secheaders.Defaults(env))
}

func (h *HeadersHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	cfg, fromDefaults := h.svc.Resolve(r.Context(), env)
	w.Header().Set("X-Config-Source", source(fromDefaults))
	writeJSON(w, cfg)
}

func (h *HeadersHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	cfg, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	if cfg.Environment != "" && cfg.Environment != env {
		httpx.WriteTypedError(w, http.StatusBadRequest, "headers.environment_mismatch",
			"Document environment "+string(cfg.Environment)+" does not match "+string(env), 0)
		return
	}
	cfg.Environment = env

	saved, err := h.svc.SaveConfig(r.Context(), cfg)
	if err != nil {
		h.logger.Error().Err(err).Str("environment", string(env)).Msg("Failed to save config")
		httpx.WriteTypedError(w, http.StatusInternalServerError, "headers.save_failed", "Failed to save security headers config", 0)
		return
	}
	writeJSON(w, saved)
}

func (h *HeadersHandler) GetHeaders(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.svc.GenerateHeaders(r.Context(), env))
}

func (h *HeadersHandler) GetValidation(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.svc.ValidateConfig(h.svc.GetConfig(r.Context(), env)))
}

func (h *HeadersHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.svc.CalculateSecurityStats(h.svc.GetConfig(r.Context(), env)))
}

func (h *HeadersHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	env, ok := envParam(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(secheaders.FormatJSON)
	}
	format, err := secheaders.ParseFormat(name)
	if err != nil {
		httpx.WriteTypedError(w, http.StatusBadRequest, "headers.invalid_format", "Format must be json, nginx or apache", 0)
		return
	}
	body, err := h.svc.Export(h.svc.GenerateHeaders(r.Context(), env), format)
	if err != nil {
		h.logger.Error().Err(err).Str("environment", string(env)).Msg("Failed to export headers")
		httpx.WriteTypedError(w, http.StatusInternalServerError, "headers.export_failed", "Failed to export headers", 0)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="security-headers-`+string(env)+format.Extension()+`"`)
	_, _ = w.Write(body)
}

func (h *HeadersHandler) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	if cfg, ok := decodeEnvDocument(w, r); ok {
		writeJSON(w, h.svc.ValidateConfig(cfg))
	}
}

func (h *HeadersHandler) ScoreDocument(w http.ResponseWriter, r *http.Request) {
	if cfg, ok := decodeEnvDocument(w, r); ok {
		writeJSON(w, h.svc.CalculateSecurityStats(cfg))
	}
}

func (h *HeadersHandler) CompileDocument(w http.ResponseWriter, r *http.Request) {
	if cfg, ok := decodeEnvDocument(w, r); ok {
		writeJSON(w, h.svc.Compile(cfg))
	}
}

func (h *HeadersHandler) GetPosture(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		writeJSON(w, map[string]any{"reports": []posture.Report{}})
		return
	}
	writeJSON(w, map[string]any{"reports": h.auditor.Reports()})
}

func source(fromDefaults bool) string {
	if fromDefaults {
		return "defaults"
	}
	return "stored"
}

func envParam(w http.ResponseWriter, r *http.Request) (secheaders.Environment, bool) {
	env, err := secheaders.ParseEnvironment(chi.URLParam(r, "env"))
	if err != nil {
		httpx.WriteTypedError(w, http.StatusBadRequest, "headers.invalid_environment",
			"Environment must be development, staging or production", 0)
		return "", false
	}
	return env, true
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (secheaders.Config, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		httpx.WriteTypedError(w, http.StatusRequestEntityTooLarge, "headers.document_too_large", "Document too large", 0)
		return secheaders.Config{}, false
	}
	cfg, err := secheaders.DecodeDocument(raw)
	if err != nil {
		var de *secheaders.DocumentError
		if errors.As(err, &de) {
			httpx.WriteErrorWithDetails(w, http.StatusBadRequest, "headers.invalid_document", "Invalid security headers document", de.Problems)
			return secheaders.Config{}, false
		}
		httpx.WriteTypedError(w, http.StatusInternalServerError, "headers.schema_unavailable", err.Error(), 0)
		return secheaders.Config{}, false
	}
	return cfg, true
}

// decodeEnvDocument decodes a document that must name its environment.
func decodeEnvDocument(w http.ResponseWriter, r *http.Request) (secheaders.Config, bool) {
	cfg, ok := decodeDocument(w, r)
	if !ok {
		return cfg, false
	}
	if cfg.Environment == "" {
		httpx.WriteTypedError(w, http.StatusBadRequest, "headers.invalid_environment", "Document must name its environment", 0)
		return cfg, false
	}
	return cfg, true
}
