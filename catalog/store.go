package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt marks persisted catalog state that exists but cannot be read
// or decoded. Callers must treat it as fatal at startup rather than as an
// empty catalog: silently discarding prior state would wipe every sold and
// signaled flag accumulated so far.
var ErrCorrupt = errors.New("catalog state corrupt")

// Store persists the catalog collection between cycles.
type Store interface {
	// Load returns the full collection, or an empty one if no state has
	// been persisted yet. Unreadable or malformed state yields ErrCorrupt.
	Load(ctx context.Context) ([]Item, error)

	// Save overwrites the persisted state with the given collection. A
	// concurrent reader never observes a partially written collection.
	Save(ctx context.Context, items []Item) error
}

// FileStore keeps the collection as a single JSON array on disk.
// Saves go through a temp file in the same directory followed by a rename,
// so readers see either the old state or the new one, never a torn write.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) ([]Item, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	return items, nil
}

func (s *FileStore) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("catalog dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("catalog temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close catalog: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
