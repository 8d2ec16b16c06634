package store

import (
	"context"
	"time"

	"nithronos/secheaders/internal/fsatomic"
	"nithronos/secheaders/pkg/secheaders"
)

type fileDoc struct {
	Version int                                          `json:"version"`
	Configs map[secheaders.Environment]secheaders.Config `json:"configs"`
}

// File keeps all environments in one JSON document written atomically under
// an advisory lock, so several processes may share it.
type File struct {
	path string
	now  func() time.Time
}

func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

func (f *File) Get(_ context.Context, env secheaders.Environment) (secheaders.Config, error) {
	var doc fileDoc
	if _, err := fsatomic.ReadJSON(f.path, &doc); err != nil {
		return secheaders.Config{}, err
	}
	cfg, ok := doc.Configs[env]
	if !ok {
		return secheaders.Config{}, secheaders.ErrNotFound
	}
	return cfg, nil
}

func (f *File) Put(ctx context.Context, cfg secheaders.Config) (secheaders.Config, error) {
	var saved secheaders.Config
	err := fsatomic.Update(ctx, f.path, func(doc *fileDoc) error {
		doc.Version = 1
		if doc.Configs == nil {
			doc.Configs = map[secheaders.Environment]secheaders.Config{}
		}
		var prev *secheaders.Config
		if p, ok := doc.Configs[cfg.Environment]; ok {
			prev = &p
		}
		saved = stamp(ctx, prev, cfg, f.now())
		doc.Configs[cfg.Environment] = saved
		return nil
	})
	if err != nil {
		return secheaders.Config{}, err
	}
	return saved, nil
}

func (f *File) Close() error { return nil }
