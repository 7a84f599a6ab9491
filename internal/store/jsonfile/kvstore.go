// Package jsonfile provides a JSON file backed kv.Store for single-host deployments.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// KVFile is the root JSON structure stored on disk for KV data.
// Lists are stored head first.
type KVFile struct {
	Hashes map[string]map[string]string `json:"hashes"`
	Lists  map[string][]string          `json:"lists"`
}

// KVStore implements kv.Store using a JSON file for persistence.
// A batch is applied under an exclusive file lock and written with a
// single rename, so other processes sharing the file see all of it or none.
type KVStore struct {
	path string
	mu   sync.RWMutex
}

// NewKVStore creates a new JSON file KV store at the given path.
func NewKVStore(path string) *KVStore {
	return &KVStore{path: path}
}

// lockPath returns the path to the lock file.
func (s *KVStore) lockPath() string {
	return s.path + ".lock"
}

// withSharedLock executes fn while holding a shared (read) file lock.
// Multiple processes can hold shared locks simultaneously.
func (s *KVStore) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

// withExclusiveLock executes fn while holding an exclusive (write) file lock.
// Only one process can hold an exclusive lock at a time.
func (s *KVStore) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *KVStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// HExists reports whether field is set in the hash at key.
func (s *KVStore) HExists(ctx context.Context, key, field string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found bool
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		_, found = file.Hashes[key][field]
		return nil
	})
	return found, err
}

// HGetAll returns a copy of the hash at key. A missing hash is empty, not an error.
func (s *KVStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		for k, v := range file.Hashes[key] {
			out[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LRange returns list elements between start and stop (inclusive), head first.
func (s *KVStore) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		list := file.Lists[key]
		lo, hi := kv.NormalizeRange(start, stop, len(list))
		out = slices.Clone(list[lo:hi])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exec applies the batch atomically. When the batch condition does not hold,
// the file is left untouched and kv.ErrConditionFailed is returned.
func (s *KVStore) Exec(ctx context.Context, b kv.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		if c := b.Cond; c != nil {
			_, ok := file.Hashes[c.Key][c.Field]
			if ok != c.Exists {
				return kv.ErrConditionFailed
			}
		}

		for _, op := range b.Ops {
			if err := apply(&file, op); err != nil {
				return err
			}
		}

		return s.save(file)
	})
}

// Ping verifies the store file can be locked and parsed.
func (s *KVStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.withSharedLock(func() error {
		_, err := s.load()
		return err
	})
}

// Close is a no-op; the store holds no open handles between calls.
func (s *KVStore) Close() error {
	return nil
}

func apply(file *KVFile, op kv.Op) error {
	switch op.Kind {
	case kv.OpHSet:
		h, ok := file.Hashes[op.Key]
		if !ok {
			h = make(map[string]string)
			file.Hashes[op.Key] = h
		}
		h[op.Field] = op.Value
	case kv.OpHDel:
		delete(file.Hashes[op.Key], op.Field)
		if len(file.Hashes[op.Key]) == 0 {
			delete(file.Hashes, op.Key)
		}
	case kv.OpLPush:
		file.Lists[op.Key] = slices.Insert(file.Lists[op.Key], 0, op.Value)
	case kv.OpLTrim:
		list := file.Lists[op.Key]
		lo, hi := kv.NormalizeRange(op.Start, op.Stop, len(list))
		if lo == hi {
			delete(file.Lists, op.Key)
			return nil
		}
		file.Lists[op.Key] = slices.Clone(list[lo:hi])
	default:
		return fmt.Errorf("unsupported op %s", op.Kind)
	}
	return nil
}

// load reads the KV file from disk.
// Returns empty KVFile if file doesn't exist.
func (s *KVStore) load() (KVFile, error) {
	empty := KVFile{
		Hashes: make(map[string]map[string]string),
		Lists:  make(map[string][]string),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return KVFile{}, fmt.Errorf("read %s: %w", s.path, err)
	}

	if len(data) == 0 {
		return empty, nil
	}

	var file KVFile
	if err := json.Unmarshal(data, &file); err != nil {
		return KVFile{}, fmt.Errorf("parse %s: %w", s.path, err)
	}

	if file.Hashes == nil {
		file.Hashes = empty.Hashes
	}
	if file.Lists == nil {
		file.Lists = empty.Lists
	}

	return file, nil
}

// save writes the KV file to disk atomically.
func (s *KVStore) save(file KVFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
