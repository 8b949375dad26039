// Package session persists the active job identity across process restarts.
//
// The record is the sole source of truth for "is there an active job" after
// a restart: present means the client believes a job may still be running or
// has results worth showing, absent means a fresh submission is required.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record identifies the job the client is tracking.
type Record struct {
	JobID       string    `json:"job_id"`
	DisplayName string    `json:"display_name"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store reads and writes the durable session record.
type Store struct {
	mu       sync.Mutex
	filePath string
}

// NewStore creates a store backed by the given file path.
func NewStore(filePath string) *Store {
	return &Store{filePath: filePath}
}

// DefaultSessionFilePath returns the default path for the session file.
func DefaultSessionFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".faceaudit-session.json"
	}
	return filepath.Join(homeDir, ".config", "faceaudit", "session.json")
}

// Load reads the session record. A missing file, or a record missing either
// field, means no active session and returns (nil, nil).
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	if rec.JobID == "" || rec.DisplayName == "" {
		return nil, nil
	}
	return &rec, nil
}

// Save writes the session record atomically (temp file + rename).
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.SavedAt.IsZero() {
		rec.SavedAt = time.Now()
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename session file: %w", err)
	}

	return nil
}

// Clear removes the session record. Clearing an absent record is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
