package posture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nithronos/secheaders/internal/store"
	"nithronos/secheaders/pkg/secheaders"
)

type recorder struct {
	mu     sync.Mutex
	levels map[secheaders.Environment]secheaders.Level
	errs   map[secheaders.Environment]int
	calls  int
}

func (r *recorder) Posture(env secheaders.Environment, stats secheaders.Stats, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.levels == nil {
		r.levels = map[secheaders.Environment]secheaders.Level{}
		r.errs = map[secheaders.Environment]int{}
	}
	r.levels[env] = stats.SecurityLevel
	r.errs[env] = n
	r.calls++
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRunOnceReportsEveryEnvironment(t *testing.T) {
	repo := store.NewMemory()
	weak := secheaders.Defaults(secheaders.Production)
	weak.CSP.Directives["scriptSrc"] = append(weak.CSP.Directives["scriptSrc"], "'unsafe-eval'")
	weak.HSTS.MaxAge = 3600
	if _, err := repo.Put(context.Background(), weak); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	a := NewAuditor(zerolog.Nop(), secheaders.NewService(repo, zerolog.Nop()), rec)
	a.RunOnce(context.Background())

	reports := a.Reports()
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	if reports[0].Environment != secheaders.Development || reports[2].Environment != secheaders.Production {
		t.Fatalf("order: %v %v", reports[0].Environment, reports[2].Environment)
	}
	if reports[0].Source != "defaults" || reports[2].Source != "stored" {
		t.Fatalf("sources: %s %s", reports[0].Source, reports[2].Source)
	}
	prod := reports[2]
	if prod.Validation.IsValid || len(prod.Validation.Errors) != 2 {
		t.Fatalf("production validation: %+v", prod.Validation)
	}
	if rec.levels[secheaders.Production] == secheaders.LevelMaximum || rec.errs[secheaders.Production] != 2 {
		t.Fatalf("reporter: %+v %+v", rec.levels, rec.errs)
	}
	if rec.levels[secheaders.Staging] != secheaders.LevelMaximum {
		t.Fatalf("staging defaults should score Maximum, got %s", rec.levels[secheaders.Staging])
	}
}

func TestStartSchedules(t *testing.T) {
	rec := &recorder{}
	a := NewAuditor(zerolog.Nop(), secheaders.NewService(store.NewMemory(), zerolog.Nop()), rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx, "@every 1s"); err != nil {
		t.Fatal(err)
	}
	defer a.Stop()
	if rec.count() != 3 {
		t.Fatalf("initial audit calls: %d", rec.count())
	}
	deadline := time.Now().Add(5 * time.Second)
	for rec.count() < 6 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduled audit did not run")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	a := NewAuditor(zerolog.Nop(), secheaders.NewService(nil, zerolog.Nop()), nil)
	if err := a.Start(context.Background(), "every so often"); err == nil {
		t.Fatalf("expected schedule error")
	}
	if err := a.Start(context.Background(), ""); err != nil {
		t.Fatalf("empty schedule: %v", err)
	}
}
