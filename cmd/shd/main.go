package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nithronos/secheaders/internal/config"
	"nithronos/secheaders/internal/observability"
	"nithronos/secheaders/internal/posture"
	"nithronos/secheaders/internal/ratelimit"
	"nithronos/secheaders/internal/server"
	"nithronos/secheaders/internal/store"
	"nithronos/secheaders/pkg/secheaders"
)

func main() {
	cfg := config.FromEnv()
	logger := server.Logger(cfg)

	repo, err := store.Open(cfg.StoreDriver, cfg.StorePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open config store")
	}
	defer repo.Close()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.New(reg)

	svc := secheaders.NewService(repo, logger, secheaders.WithObserver(metrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditor := posture.NewAuditor(logger, svc, metrics)
	if err := auditor.Start(ctx, cfg.AuditSchedule); err != nil {
		logger.Fatal().Err(err).Msg("start posture auditor")
	}
	defer auditor.Stop()

	if cfg.AuthDisabled {
		logger.Warn().Msg("authentication disabled; every request acts as admin")
	} else if len(cfg.SessionHashKey) == 0 && cfg.APIToken == "" {
		logger.Warn().Msg("no session key or API token configured; the API will reject every request")
	}

	writes := ratelimit.New(cfg.WritesPerMinute, time.Minute, cfg.RateStatePath)
	defer func() {
		if err := writes.Flush(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("persist rate limit state")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           server.NewRouter(cfg, logger, server.Deps{Service: svc, Auditor: auditor, Metrics: metrics, Gatherer: reg, Limiter: writes}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("environment", string(cfg.Environment)).
		Str("store", cfg.StoreDriver).
		Msgf("shd listening on http://%s", cfg.Bind)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
