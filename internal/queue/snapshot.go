package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Snapshot is the on-disk representation of the queue: the seq counter
// plus every live entry with its stored key.
type Snapshot struct {
	TicketCounter int64   `json:"ticket_counter"`
	Tickets       []Entry `json:"tickets"`
}

// Store persists queue snapshots to a single JSON file. Writes go
// through a temp sibling and rename, so a crash mid-write leaves either
// the old snapshot or the new one, never a torn file.
type Store struct {
	path string
}

// NewStore returns a store writing to path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Save atomically replaces the snapshot file.
func (s *Store) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	return nil
}

// Load reads the snapshot file. A missing file returns (nil, nil); a
// corrupt file returns an error so the caller can start empty.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	return &snap, nil
}
