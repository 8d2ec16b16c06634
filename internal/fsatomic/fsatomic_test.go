package fsatomic

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type counterDoc struct {
	Writes []int `json:"writes"`
}

func TestUpdateSerializesWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	var wg sync.WaitGroup
	errCh := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errCh <- Update(context.Background(), path, func(d *counterDoc) error {
				d.Writes = append(d.Writes, i)
				return nil
			})
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	var got counterDoc
	ok, err := LoadJSON(path, &got)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	// every writer saw the previous one's result
	if len(got.Writes) != 16 {
		t.Fatalf("lost updates: %v", got.Writes)
	}
}

func TestUpdateAbortKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := SaveJSON(context.Background(), path, counterDoc{Writes: []int{1}}, 0); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := Update(context.Background(), path, func(d *counterDoc) error {
		d.Writes = nil
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var got counterDoc
	if _, err := LoadJSON(path, &got); err != nil || len(got.Writes) != 1 {
		t.Fatalf("document changed after aborted update: %v %v", got, err)
	}
}

func TestLoadRemovesCrashArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := SaveJSON(context.Background(), path, map[string]string{"a": "b"}, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".tmp", []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	ok, err := LoadJSON(path, &got)
	if err != nil || !ok || got["a"] != "b" {
		t.Fatalf("load: ok=%v err=%v got=%v", ok, err, got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp should be removed, err=%v", err)
	}
}

func TestReadLeavesTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := SaveJSON(context.Background(), path, counterDoc{Writes: []int{1}}, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".tmp", []byte("{\"writes\":[1,2]}"), 0o600); err != nil {
		t.Fatal(err)
	}
	var got counterDoc
	ok, err := ReadJSON(path, &got)
	if err != nil || !ok || len(got.Writes) != 1 {
		t.Fatalf("read: ok=%v err=%v got=%v", ok, err, got)
	}
	if _, err := os.Stat(path + ".tmp"); err != nil {
		t.Fatalf("unlocked read removed the temp file of a pending save: %v", err)
	}
}

func TestReadDuringUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	ctx := context.Background()
	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				var doc counterDoc
				_, _ = ReadJSON(path, &doc)
			}
		}()
	}
	for i := 0; i < 200; i++ {
		err := Update(ctx, path, func(doc *counterDoc) error {
			doc.Writes = append(doc.Writes, i)
			return nil
		})
		if err != nil {
			close(done)
			wg.Wait()
			t.Fatalf("update %d: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
	var got counterDoc
	if _, err := ReadJSON(path, &got); err != nil || len(got.Writes) != 200 {
		t.Fatalf("writes=%d err=%v", len(got.Writes), err)
	}
}

func TestLoadMissing(t *testing.T) {
	var v map[string]any
	ok, err := LoadJSON(filepath.Join(t.TempDir(), "absent.json"), &v)
	if ok || err != nil {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}
}

func TestSaveHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := SaveJSON(ctx, path, counterDoc{}, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file written despite cancellation")
	}
}
