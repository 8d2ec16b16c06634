package ratelimit

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nithronos/secheaders/internal/fsatomic"
)

type window struct {
	Hits  int       `json:"hits"`
	Start time.Time `json:"start"`
}

type state struct {
	Version int               `json:"version"`
	Windows map[string]window `json:"windows"`
}

// Limiter applies a fixed-window limit per key. With a path, windows are
// loaded at start and written back by Flush so limits survive restarts.
type Limiter struct {
	path   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
}

// New returns a limiter allowing limit hits per window. limit <= 0 allows
// everything.
func New(limit int, per time.Duration, path string) *Limiter {
	l := &Limiter{
		path:    path,
		limit:   limit,
		window:  per,
		now:     time.Now,
		windows: map[string]window{},
	}
	if path != "" {
		var st state
		if ok, err := fsatomic.ReadJSON(path, &st); err == nil && ok && st.Windows != nil {
			l.windows = st.Windows
		}
	}
	return l
}

// Allow records a hit for key. When the window is exhausted it returns false
// and the time left until the window resets.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil || l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now().UTC()
	w := l.windows[key]
	if w.Start.IsZero() || now.Sub(w.Start) >= l.window {
		w = window{Start: now}
	}
	if w.Hits >= l.limit {
		return false, w.Start.Add(l.window).Sub(now)
	}
	w.Hits++
	l.windows[key] = w
	return true, 0
}

// Flush drops expired windows and persists the rest.
func (l *Limiter) Flush(ctx context.Context) error {
	if l == nil || l.path == "" {
		return nil
	}
	l.mu.Lock()
	now := l.now().UTC()
	st := state{Version: 1, Windows: make(map[string]window, len(l.windows))}
	for k, w := range l.windows {
		if now.Sub(w.Start) < l.window {
			st.Windows[k] = w
		}
	}
	l.windows = st.Windows
	l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	return fsatomic.WithLock(l.path, func() error {
		return fsatomic.SaveJSON(ctx, l.path, st, fs.FileMode(0o600))
	})
}
