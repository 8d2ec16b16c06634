package secheaders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var ErrNoRepository = errors.New("no config repository configured")

// Repository stores one active Config per environment. Put is an upsert keyed
// by Config.Environment; concurrent writers to the same key resolve as
// last-write-wins. Get returns ErrNotFound when nothing is stored.
type Repository interface {
	Get(ctx context.Context, env Environment) (Config, error)
	Put(ctx context.Context, cfg Config) (Config, error)
}

// Observer is notified of engine events, typically to export metrics.
type Observer interface {
	Compiled(env Environment, headers int)
	FellBack(env Environment)
	Saved(env Environment, err error)
}

// Service ties the pure engine functions to a Repository. It holds no
// mutable state and is safe for concurrent use.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time
}

type Option func(*Service)

func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService returns a Service backed by repo. A nil repo behaves like an
// unreachable one: reads fall back to defaults and writes fail.
func NewService(repo Repository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.With().Str("component", "security-headers").Logger(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolve returns the stored config for env, or Defaults(env) when the
// repository fails or holds nothing. fromDefaults reports which one it was.
func (s *Service) Resolve(ctx context.Context, env Environment) (cfg Config, fromDefaults bool) {
	if s.repo == nil {
		s.fellBack(env, ErrNoRepository)
		return Defaults(env), true
	}
	cfg, err := s.repo.Get(ctx, env)
	if err != nil {
		s.fellBack(env, err)
		return Defaults(env), true
	}
	return cfg, false
}

func (s *Service) fellBack(env Environment, err error) {
	ev := s.logger.Warn()
	if errors.Is(err, ErrNotFound) {
		ev = s.logger.Debug()
	}
	ev.Err(err).Str("environment", string(env)).Msg("using default security headers config")
	if s.observer != nil {
		s.observer.FellBack(env)
	}
}

func (s *Service) GetConfig(ctx context.Context, env Environment) Config {
	cfg, _ := s.Resolve(ctx, env)
	return cfg
}

// SaveConfig upserts cfg. Errors are returned to the caller since there is
// no safe substitute for a failed write.
func (s *Service) SaveConfig(ctx context.Context, cfg Config) (Config, error) {
	if _, err := ParseEnvironment(string(cfg.Environment)); err != nil {
		return Config{}, err
	}
	if s.repo == nil {
		return Config{}, ErrNoRepository
	}
	saved, err := s.repo.Put(ctx, cfg)
	if s.observer != nil {
		s.observer.Saved(cfg.Environment, err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("environment", string(cfg.Environment)).Msg("save security headers config")
		return Config{}, fmt.Errorf("save %s config: %w", cfg.Environment, err)
	}
	s.logger.Info().
		Str("environment", string(saved.Environment)).
		Str("updated_by", saved.UpdatedBy).
		Msg("security headers config saved")
	return saved, nil
}

// Compile compiles cfg stamped with the service clock.
func (s *Service) Compile(cfg Config) GeneratedHeaders {
	g := Compile(cfg, s.now())
	if s.observer != nil {
		s.observer.Compiled(g.Environment, g.TotalHeaders)
	}
	return g
}

// GenerateHeaders compiles the current config for env, or its defaults when
// the repository cannot provide one.
func (s *Service) GenerateHeaders(ctx context.Context, env Environment) GeneratedHeaders {
	return s.Compile(s.GetConfig(ctx, env))
}

func (s *Service) ValidateConfig(cfg Config) ValidationResult { return Validate(cfg) }

func (s *Service) CalculateSecurityStats(cfg Config) Stats { return Score(cfg) }

func (s *Service) Export(g GeneratedHeaders, f Format) ([]byte, error) {
	return Export(g, f, s.now())
}
