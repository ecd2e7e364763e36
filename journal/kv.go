package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrKeyNotFound is returned by KV.Get for a key that was never set.
var ErrKeyNotFound = errors.New("key not found")

// KV is a keyed-record store. Values are opaque bytes; Set replaces the
// whole record atomically.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Timestamped is implemented by backends that know when a key was last
// written.
type Timestamped interface {
	UpdatedAt(key string) (time.Time, error)
}

// Backend names accepted by OpenKV.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// OpenKV opens the named backend. path is a directory for the file backend
// and a database file for sqlite; memory ignores it.
func OpenKV(backend, path string) (KV, error) {
	switch strings.ToLower(backend) {
	case BackendFile, "":
		return NewFileKV(path)
	case BackendSQLite:
		return NewSQLiteKV(path)
	case BackendMemory:
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("unknown ledger backend %q", backend)
}

// MemoryKV keeps records in process memory.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string][]byte)}
}

func (kv *MemoryKV) Get(key string) ([]byte, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	v, ok := kv.m[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (kv *MemoryKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.m[key] = append([]byte(nil), value...)
	return nil
}

func (kv *MemoryKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	delete(kv.m, key)
	return nil
}

func (kv *MemoryKV) Close() error { return nil }

// FileKV stores each key as <dir>/<key>.json. Writes go to a temp file in
// the same directory, are synced, then renamed over the target.
type FileKV struct {
	dir string
	mu  sync.Mutex
}

func NewFileKV(dir string) (*FileKV, error) {
	if dir == "" {
		return nil, errors.New("file backend needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileKV{dir: dir}, nil
}

func (kv *FileKV) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(kv.dir, key+".json"), nil
}

func (kv *FileKV) Get(key string) ([]byte, error) {
	p, err := kv.path(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return b, err
}

func (kv *FileKV) Set(key string, value []byte) error {
	p, err := kv.path(key)
	if err != nil {
		return err
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	f, err := os.CreateTemp(kv.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp) // no-op once renamed

	if _, err := f.Write(value); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(p), err)
	}
	return nil
}

func (kv *FileKV) Delete(key string) error {
	p, err := kv.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (kv *FileKV) Close() error { return nil }

// UpdatedAt returns the modification time of key's file.
func (kv *FileKV) UpdatedAt(key string) (time.Time, error) {
	p, err := kv.path(key)
	if err != nil {
		return time.Time{}, err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, ErrKeyNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
