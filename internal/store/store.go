// Package store persists the library as a single versioned JSON document.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/library"
)

const (
	stateFileName = "library.json"
	schemaVersion = 2
)

// PersistenceError means the state file could not be read or written.
// Callers treat it as fatal.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type document struct {
	Version int `json:"version"`
	library.Library
}

// Store owns the library and writes it to disk after every change.
type Store struct {
	path string
	mu   sync.RWMutex
	lib  *library.Library
}

// DefaultPath returns XDG_STATE_HOME/chaprun/library.json or
// ~/.local/state/chaprun/library.json.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "chaprun", stateFileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "chaprun", stateFileName)
}

// Open loads the state at path. A missing file yields an empty library; an
// unreadable or corrupt one is an error so it is never silently replaced.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path}
	lib, err := load(path)
	if err != nil {
		return nil, err
	}
	s.lib = lib
	return s, nil
}

func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current library.
func (s *Store) Snapshot() *library.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lib.Clone()
}

// Update applies fn to a copy of the library and, if fn succeeds, saves the
// copy and makes it current. On any error the previous state stays in place.
func (s *Store) Update(fn func(*library.Library) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.lib.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := save(s.path, next); err != nil {
		return err
	}
	s.lib = next
	return nil
}

func load(path string) (*library.Library, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", path).Msg("no state file, starting empty")
		return library.New(), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return library.New(), nil
	}
	lib, legacy, err := decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "decode", Path: path, Err: err}
	}
	if legacy {
		importLegacyPrompts(lib, filepath.Join(filepath.Dir(path), legacyPromptFile))
	}
	return lib, nil
}

// decode reads either schema; legacy reports a migrated pre-versioned file.
func decode(data []byte) (lib *library.Library, legacy bool, err error) {
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, false, err
	}
	switch {
	case head.Version == 0:
		lib, err = migrateLegacy(data)
		if err != nil {
			return nil, false, err
		}
		legacy = true
	case head.Version <= schemaVersion:
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, false, err
		}
		lib = &doc.Library
	default:
		return nil, false, fmt.Errorf("schema version %d is newer than supported %d", head.Version, schemaVersion)
	}
	lib.Normalize()
	return lib, legacy, nil
}

func save(path string, lib *library.Library) error {
	data, err := json.MarshalIndent(document{Version: schemaVersion, Library: *lib}, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Path: path, Err: err}
	}
	if err := writeAtomic(path, data); err != nil {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// writeAtomic writes through a temp file in the same directory so a crash
// never leaves a truncated state file behind.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(name, path)
}
