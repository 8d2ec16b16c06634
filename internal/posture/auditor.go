package posture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"nithronos/secheaders/pkg/secheaders"
)

// Reporter receives the outcome of each audit.
type Reporter interface {
	Posture(env secheaders.Environment, stats secheaders.Stats, validationErrors int)
}

// Report is the latest audit of one environment.
type Report struct {
	Environment secheaders.Environment      `json:"environment"`
	Source      string                      `json:"source"`
	Validation  secheaders.ValidationResult `json:"validation"`
	Stats       secheaders.Stats            `json:"stats"`
	AuditedAt   time.Time                   `json:"auditedAt"`
}

// Auditor periodically resolves, validates and scores the active config of
// every environment.
type Auditor struct {
	logger   zerolog.Logger
	svc      *secheaders.Service
	reporter Reporter
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.RWMutex
	reports map[secheaders.Environment]Report
}

func NewAuditor(logger zerolog.Logger, svc *secheaders.Service, reporter Reporter) *Auditor {
	return &Auditor{
		logger:   logger.With().Str("component", "posture-auditor").Logger(),
		svc:      svc,
		reporter: reporter,
		cron:     cron.New(),
		now:      time.Now,
		reports:  make(map[secheaders.Environment]Report),
	}
}

// Start audits once, then on every tick of schedule (standard cron syntax or
// @every). An empty schedule only runs the initial audit.
func (a *Auditor) Start(ctx context.Context, schedule string) error {
	a.RunOnce(ctx)
	if schedule == "" {
		a.logger.Info().Msg("Periodic audits disabled")
		return nil
	}
	if _, err := a.cron.AddFunc(schedule, func() { a.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid audit schedule %q: %w", schedule, err)
	}
	a.cron.Start()
	a.logger.Info().Str("schedule", schedule).Msg("Posture auditor started")
	return nil
}

// Stop halts the scheduler and waits for a running audit to finish.
func (a *Auditor) Stop() {
	<-a.cron.Stop().Done()
}

func (a *Auditor) RunOnce(ctx context.Context) {
	for _, env := range secheaders.Environments() {
		if ctx.Err() != nil {
			return
		}
		a.audit(ctx, env)
	}
}

func (a *Auditor) audit(ctx context.Context, env secheaders.Environment) {
	cfg, fromDefaults := a.svc.Resolve(ctx, env)
	rep := Report{
		Environment: env,
		Source:      "stored",
		Validation:  a.svc.ValidateConfig(cfg),
		Stats:       a.svc.CalculateSecurityStats(cfg),
		AuditedAt:   a.now().UTC(),
	}
	if fromDefaults {
		rep.Source = "defaults"
	}

	a.mu.Lock()
	a.reports[env] = rep
	a.mu.Unlock()

	if a.reporter != nil {
		a.reporter.Posture(env, rep.Stats, len(rep.Validation.Errors))
	}
	ev := a.logger.Info()
	if !rep.Validation.IsValid {
		ev = a.logger.Warn().Strs("errors", rep.Validation.Errors)
	}
	ev.Str("environment", string(env)).
		Str("source", rep.Source).
		Str("level", string(rep.Stats.SecurityLevel)).
		Int("enabled", rep.Stats.TotalHeaders).
		Msg("posture audited")
}

// Reports returns the latest report per environment in promotion order.
func (a *Auditor) Reports() []Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Report, 0, len(a.reports))
	for _, env := range secheaders.Environments() {
		if r, ok := a.reports[env]; ok {
			out = append(out, r)
		}
	}
	return out
}
