package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const cacheVersion = 1

// fileEntry is the on-disk format. Timestamps are ISO 8601 so entries are
// inspectable with standard tools.
type fileEntry struct {
	Product         string          `json:"product"`
	Channel         string          `json:"channel"`
	LastUpdated     string          `json:"last_updated"`
	ItemCount       int             `json:"item_count"`
	Payload         json.RawMessage `json:"payload"`
	SourcePlatforms []string        `json:"source_platforms"`
	CacheVersion    int             `json:"cache_version"`
}

// FileStore persists one JSON file per cache key under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key Key) string {
	name := sanitize(key.Product) + "--" + sanitize(key.Channel) + ".json"
	return filepath.Join(s.dir, name)
}

// Load reads the entry for key, returning (nil, nil) when none exists.
func (s *FileStore) Load(key Key) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var fe fileEntry
	if err := json.Unmarshal(data, &fe); err != nil {
		return nil, fmt.Errorf("parsing cache file: %w", err)
	}
	if fe.CacheVersion != cacheVersion {
		// Stale format, treat as absent so it gets rewritten.
		return nil, nil
	}

	updated, err := time.Parse(time.RFC3339, fe.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("parsing cache timestamp: %w", err)
	}

	return &Entry{
		Key:             key,
		Payload:         []byte(fe.Payload),
		ItemCount:       fe.ItemCount,
		SourcePlatforms: fe.SourcePlatforms,
		LastUpdated:     updated,
	}, nil
}

// Save writes the entry atomically via a temp file rename.
func (s *FileStore) Save(entry *Entry) error {
	fe := fileEntry{
		Product:         entry.Key.Product,
		Channel:         entry.Key.Channel,
		LastUpdated:     entry.LastUpdated.UTC().Format(time.RFC3339),
		ItemCount:       entry.ItemCount,
		Payload:         json.RawMessage(entry.Payload),
		SourcePlatforms: entry.SourcePlatforms,
		CacheVersion:    cacheVersion,
	}
	if len(fe.Payload) == 0 {
		fe.Payload = json.RawMessage("null")
	}

	data, err := json.MarshalIndent(fe, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	target := s.path(entry.Key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// MemoryStore is a Store for tests and single-run use.
type MemoryStore struct {
	entries map[Key]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*Entry)}
}

func (s *MemoryStore) Load(key Key) (*Entry, error) {
	return s.entries[key], nil
}

func (s *MemoryStore) Save(entry *Entry) error {
	s.entries[entry.Key] = entry
	return nil
}

func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")
	return replacer.Replace(s)
}
