package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nithronos/secheaders/pkg/secheaders"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	lite, err := NewSQLite(filepath.Join(dir, "headers.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { _ = lite.Close() })
	return map[string]Store{
		DriverMemory: NewMemory(),
		DriverFile:   NewFile(filepath.Join(dir, "headers.json")),
		DriverSQLite: lite,
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, s := range openAll(t) {
		if _, err := s.Get(context.Background(), secheaders.Production); !errors.Is(err, secheaders.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestStoreUpsertKeepsCreationAudit(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			first := secheaders.Defaults(secheaders.Staging)
			ctx := secheaders.WithActor(context.Background(), "alice")
			a, err := s.Put(ctx, first)
			if err != nil {
				t.Fatal(err)
			}
			if a.ID == "" || a.CreatedBy != "alice" || a.UpdatedBy != "alice" || !a.IsActive {
				t.Fatalf("first write audit: %+v", a)
			}
			if a.CreatedAt == nil || a.UpdatedAt == nil {
				t.Fatalf("timestamps missing")
			}

			time.Sleep(2 * time.Millisecond)
			second := secheaders.Defaults(secheaders.Staging)
			second.HSTS.MaxAge = 63072000
			second.XFrameOptions.Enabled = false
			b, err := s.Put(secheaders.WithActor(context.Background(), "bob"), second)
			if err != nil {
				t.Fatal(err)
			}
			if b.ID != a.ID || b.CreatedBy != "alice" || b.UpdatedBy != "bob" {
				t.Fatalf("second write audit: id %s->%s created %s updated %s", a.ID, b.ID, b.CreatedBy, b.UpdatedBy)
			}
			if !b.CreatedAt.Equal(*a.CreatedAt) || !b.UpdatedAt.After(*a.UpdatedAt) {
				t.Fatalf("timestamps: created %s/%s updated %s/%s", a.CreatedAt, b.CreatedAt, a.UpdatedAt, b.UpdatedAt)
			}

			got, err := s.Get(context.Background(), secheaders.Staging)
			if err != nil {
				t.Fatal(err)
			}
			if got.HSTS.MaxAge != 63072000 || got.XFrameOptions.Enabled {
				t.Fatalf("last write not visible: %+v %+v", got.HSTS, got.XFrameOptions)
			}
			if secheaders.BuildCSP(got.CSP.Directives) != secheaders.BuildCSP(second.CSP.Directives) {
				t.Fatalf("directives changed in storage")
			}
			if _, err := s.Get(context.Background(), secheaders.Production); !errors.Is(err, secheaders.ErrNotFound) {
				t.Fatalf("write leaked into another environment: %v", err)
			}
		})
	}
}

func TestStoreDoesNotAliasCaller(t *testing.T) {
	for name, s := range openAll(t) {
		cfg := secheaders.Defaults(secheaders.Production)
		if _, err := s.Put(context.Background(), cfg); err != nil {
			t.Fatal(err)
		}
		cfg.CSP.Directives["scriptSrc"] = append(cfg.CSP.Directives["scriptSrc"], "'unsafe-eval'")
		got, err := s.Get(context.Background(), secheaders.Production)
		if err != nil {
			t.Fatal(err)
		}
		if !secheaders.Validate(got).IsValid {
			t.Fatalf("%s: stored config mutated through caller map", name)
		}
	}
}

func TestStoreConcurrentWritersLastWins(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errCh := make(chan error, 8)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					cfg := secheaders.Defaults(secheaders.Development)
					cfg.HSTS.MaxAge = 31536000 + i
					_, err := s.Put(context.Background(), cfg)
					errCh <- err
				}(i)
			}
			wg.Wait()
			close(errCh)
			for err := range errCh {
				if err != nil {
					t.Fatalf("put: %v", err)
				}
			}
			got, err := s.Get(context.Background(), secheaders.Development)
			if err != nil {
				t.Fatal(err)
			}
			if got.HSTS.MaxAge < 31536000 || got.HSTS.MaxAge > 31536007 {
				t.Fatalf("unexpected surviving write: %d", got.HSTS.MaxAge)
			}
		})
	}
}

func TestStoreReadsDuringWrites(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := s.Put(ctx, secheaders.Defaults(secheaders.Production)); err != nil {
				t.Fatal(err)
			}
			done := make(chan struct{})
			readErr := make(chan error, 4)
			var wg sync.WaitGroup
			for r := 0; r < 4; r++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						select {
						case <-done:
							readErr <- nil
							return
						default:
						}
						if _, err := s.Get(ctx, secheaders.Production); err != nil {
							readErr <- err
							return
						}
					}
				}()
			}
			var putErr error
			for i := 0; i < 200 && putErr == nil; i++ {
				cfg := secheaders.Defaults(secheaders.Production)
				cfg.HSTS.MaxAge = 31536000 + i
				_, putErr = s.Put(ctx, cfg)
			}
			close(done)
			wg.Wait()
			close(readErr)
			if putErr != nil {
				t.Fatalf("put while reading: %v", putErr)
			}
			for err := range readErr {
				if err != nil {
					t.Fatalf("get while writing: %v", err)
				}
			}
			got, err := s.Get(ctx, secheaders.Production)
			if err != nil || got.HSTS.MaxAge != 31536199 {
				t.Fatalf("final max-age=%d err=%v", got.HSTS.MaxAge, err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		s, err := Open(driver, filepath.Join(dir, driver+".store"), zerolog.Nop())
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		_ = s.Close()
	}
	if _, err := Open("postgres", "", zerolog.Nop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
