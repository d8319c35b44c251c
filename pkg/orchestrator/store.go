package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Store persists connection state across sessions as raw JSON values under
// well-known keys. Writing then reading must reproduce the exact bytes.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// fileStore keeps all keys in one JSON file under the user cache directory
// with 0600 permissions.
//
//	macOS:   ~/Library/Caches/memeforge/state.json
//	Linux:   ~/.cache/memeforge/state.json
//	Windows: %LocalAppData%\memeforge\state.json
type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store at path; with an empty path the default
// per-user cache location is used.
func NewFileStore(path string) Store {
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, "memeforge", "state.json")
	}
	return &fileStore{path: path}
}

var _ Store = (*fileStore)(nil)

func (s *fileStore) load() map[string]json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return make(map[string]json.RawMessage)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return make(map[string]json.RawMessage)
	}
	return m
}

func (s *fileStore) save(m map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *fileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[key]
	return v, ok, nil
}

func (s *fileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	m[key] = json.RawMessage(value)
	return s.save(m)
}

func (s *fileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return s.save(m)
}

// MemStore is an in-memory Store (useful for tests).
type MemStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{m: make(map[string][]byte)}
}

var _ Store = (*MemStore)(nil)

func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
