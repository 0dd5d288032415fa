package sched

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// FileStore keeps subscriptions in one JSON file. Suitable for single-node
// deployments; use PostgresStore when several dispatchers share state.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore opens (or prepares to create) the subscriptions file.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating subscriptions dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// List returns all subscriptions. A missing file is an empty list.
func (s *FileStore) List(_ context.Context) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Update replaces the subscription with the matching ID.
func (s *FileStore) Update(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs, err := s.read()
	if err != nil {
		return err
	}
	for i := range subs {
		if subs[i].ID == sub.ID {
			subs[i] = sub
			return s.write(subs)
		}
	}
	return fmt.Errorf("subscription %s not found", sub.ID)
}

// Add appends a new subscription, assigning an ID when empty.
func (s *FileStore) Add(_ context.Context, sub Subscription) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	subs, err := s.read()
	if err != nil {
		return Subscription{}, err
	}
	subs = append(subs, sub)
	if err := s.write(subs); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

func (s *FileStore) read() ([]Subscription, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading subscriptions file: %w", err)
	}

	var subs []Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("parsing subscriptions file: %w", err)
	}
	return subs, nil
}

func (s *FileStore) write(subs []Subscription) error {
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding subscriptions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing subscriptions file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing subscriptions file: %w", err)
	}
	return nil
}
