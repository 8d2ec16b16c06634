package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nithronos/secheaders/pkg/secheaders"
)

// Store is a secheaders.Repository that owns a resource.
type Store interface {
	secheaders.Repository
	Close() error
}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open returns the store for driver. path is the JSON file or SQLite database
// location and is ignored by the memory driver.
func Open(driver, path string, logger zerolog.Logger) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverFile:
		return NewFile(path), nil
	case DriverSQLite:
		s, err := NewSQLite(path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// stamp applies the audit fields for an upsert of cfg over prev (nil when the
// environment has no row yet). The acting user comes from ctx.
func stamp(ctx context.Context, prev *secheaders.Config, cfg secheaders.Config, now time.Time) secheaders.Config {
	out := cfg.Clone()
	actor := secheaders.ActorFromContext(ctx)
	now = now.UTC()
	if prev != nil {
		out.ID = prev.ID
		out.CreatedBy = prev.CreatedBy
		out.CreatedAt = prev.CreatedAt
	} else {
		out.ID = uuid.NewString()
		out.CreatedBy = actor
		out.CreatedAt = &now
	}
	out.UpdatedBy = actor
	out.UpdatedAt = &now
	out.IsActive = true
	return out
}
