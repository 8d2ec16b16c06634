package store

import (
	"context"
	"sync"
	"time"

	"nithronos/secheaders/pkg/secheaders"
)

type Memory struct {
	mu    sync.RWMutex
	byEnv map[secheaders.Environment]secheaders.Config
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{byEnv: map[secheaders.Environment]secheaders.Config{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, env secheaders.Environment) (secheaders.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.byEnv[env]
	if !ok {
		return secheaders.Config{}, secheaders.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, cfg secheaders.Config) (secheaders.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prev *secheaders.Config
	if p, ok := m.byEnv[cfg.Environment]; ok {
		prev = &p
	}
	saved := stamp(ctx, prev, cfg, m.now())
	m.byEnv[cfg.Environment] = saved
	return saved.Clone(), nil
}

func (m *Memory) Close() error { return nil }
