package observability

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"nithronos/secheaders/pkg/secheaders"
)

// Metrics holds the daemon's collectors. It implements secheaders.Observer.
type Metrics struct {
	compiles     *prom.CounterVec
	compiled     *prom.GaugeVec
	fallbacks    *prom.CounterVec
	saves        *prom.CounterVec
	enabled      *prom.GaugeVec
	level        *prom.GaugeVec
	validation   *prom.GaugeVec
	httpRequests *prom.CounterVec
}

var _ secheaders.Observer = (*Metrics)(nil)

// New registers every collector on reg.
func New(reg prom.Registerer) *Metrics {
	m := &Metrics{
		compiles: prom.NewCounterVec(prom.CounterOpts{
			Name: "secheaders_compiles_total",
			Help: "Header sets compiled, by environment.",
		}, []string{"environment"}),
		compiled: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "secheaders_compiled_headers",
			Help: "Headers emitted by the most recent compile, by environment.",
		}, []string{"environment"}),
		fallbacks: prom.NewCounterVec(prom.CounterOpts{
			Name: "secheaders_fallbacks_total",
			Help: "Reads served from built-in defaults instead of the store.",
		}, []string{"environment"}),
		saves: prom.NewCounterVec(prom.CounterOpts{
			Name: "secheaders_saves_total",
			Help: "Config saves by result.",
		}, []string{"environment", "result"}),
		enabled: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "secheaders_enabled_sections",
			Help: "Enabled header sections in the active config.",
		}, []string{"environment"}),
		level: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "secheaders_security_level",
			Help: "Security level of the active config, 0 (Low) to 3 (Maximum).",
		}, []string{"environment"}),
		validation: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "secheaders_validation_errors",
			Help: "Validation errors reported for the active config.",
		}, []string{"environment"}),
		httpRequests: prom.NewCounterVec(prom.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
	}
	reg.MustRegister(m.compiles, m.compiled, m.fallbacks, m.saves, m.enabled, m.level, m.validation, m.httpRequests)
	return m
}

func (m *Metrics) Compiled(env secheaders.Environment, headers int) {
	m.compiles.WithLabelValues(string(env)).Inc()
	m.compiled.WithLabelValues(string(env)).Set(float64(headers))
}

func (m *Metrics) FellBack(env secheaders.Environment) {
	m.fallbacks.WithLabelValues(string(env)).Inc()
}

func (m *Metrics) Saved(env secheaders.Environment, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.saves.WithLabelValues(string(env), result).Inc()
}

// Posture records the outcome of an audit pass for one environment.
func (m *Metrics) Posture(env secheaders.Environment, stats secheaders.Stats, validationErrors int) {
	m.enabled.WithLabelValues(string(env)).Set(float64(stats.TotalHeaders))
	m.level.WithLabelValues(string(env)).Set(float64(stats.SecurityLevel.Rank()))
	m.validation.WithLabelValues(string(env)).Set(float64(validationErrors))
}

// Request counts one served HTTP request.
func (m *Metrics) Request(method string, status int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler writes everything g gathers in the Prometheus text format.
func Handler(g prom.Gatherer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mfs, err := g.Gather()
		if err != nil && len(mfs) == 0 {
			http.Error(w, "gather metrics: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		enc := expfmt.NewEncoder(w, expfmt.FmtText)
		for _, mf := range mfs {
			_ = enc.Encode(mf)
		}
		if err != nil {
			_, _ = w.Write([]byte("# partial gather: " + err.Error() + "\n"))
		}
	})
}
