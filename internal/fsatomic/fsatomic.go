package fsatomic

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// SaveJSON writes v as indented JSON to path so that readers see either the
// previous or the new document, never a partial one: write path+".tmp",
// fsync it, rename over path, fsync the directory. perm defaults to 0600.
func SaveJSON(ctx context.Context, path string, v any, perm fs.FileMode) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if perm == 0 {
		perm = 0o600
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := writeSynced(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := renameRetry(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return FsyncDir(dir)
}

func writeSynced(path string, data []byte, perm fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renameRetry retries briefly on Windows, where the destination may be held
// open by a concurrent reader.
func renameRetry(from, to string) error {
	var err error
	for i := 0; i < 5; i++ {
		if err = os.Rename(from, to); err == nil {
			return nil
		}
		if runtime.GOOS != "windows" {
			return err
		}
		_ = os.Remove(to)
		time.Sleep(time.Duration(10*(i+1)) * time.Millisecond)
	}
	return errors.Join(errors.New("rename failed after retries"), err)
}

// LoadJSON decodes path into v after removing any temp file left by an
// interrupted save. The removal races with an in-flight SaveJSON, so callers
// must hold the lock (Update does); unlocked readers use ReadJSON.
func LoadJSON(path string, v any) (exists bool, err error) {
	_ = os.Remove(path + ".tmp")
	return ReadJSON(path, v)
}

// ReadJSON decodes path into v without touching the temp file. A missing file
// is reported as exists=false with no error.
func ReadJSON(path string, v any) (exists bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// WithLock runs fn while holding an exclusive advisory lock on path+".lock".
func WithLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	unlock, err := flockExclusive(path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// Update performs a locked read-modify-write of the JSON document at path.
// fn receives the current document (zero value when the file is missing).
func Update[T any](ctx context.Context, path string, fn func(doc *T) error) error {
	return WithLock(path, func() error {
		var doc T
		if _, err := LoadJSON(path, &doc); err != nil {
			return err
		}
		if err := fn(&doc); err != nil {
			return err
		}
		return SaveJSON(ctx, path, &doc, 0)
	})
}

// FsyncDir persists directory metadata; it is a no-op on Windows.
func FsyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
