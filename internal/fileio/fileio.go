// Package fileio persists the output configuration document on disk and
// watches it for external edits.
package fileio

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// Store reads and writes the serialized output document at a fixed path. It
// satisfies the orchestrator's Persistence interface.
type Store struct {
	mu        sync.Mutex
	path      string
	lastSaved []byte
}

// NewStore creates a store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document and hands it to the visitor. A missing or
// unreadable file is an error; the caller decides what that means.
func (s *Store) Load(visit func(data []byte) error) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return visit(data)
}

// Save writes the document to disk. The content is remembered so a file
// watcher can tell this write apart from an external edit.
func (s *Store) Save(data []byte) error {
	s.mu.Lock()
	s.lastSaved = append(s.lastSaved[:0], data...)
	s.mu.Unlock()

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// WroteLast reports whether data matches the most recent Save.
func (s *Store) WroteLast(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved != nil && bytes.Equal(s.lastSaved, data)
}
