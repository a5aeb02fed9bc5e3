package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DiskStore writes sessions as JSON files to a directory. Without an
// explicit directory a temp directory is created lazily on first use.
type DiskStore struct {
	mu  sync.Mutex
	dir string
}

// NewDiskStore creates a DiskStore. An empty dir selects a lazily created
// temp directory.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Save writes s as a JSON file.
func (d *DiskStore) Save(s *Session) error {
	dir, err := d.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session %s: %w", s.ID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, s.ID+".json"), data, 0o644); err != nil {
		return fmt.Errorf("writing session %s: %w", s.ID, err)
	}
	return nil
}

// Load reads a session from disk.
func (d *DiskStore) Load(id string) (*Session, error) {
	dir, err := d.ensureDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(id)+".json"))
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshalling session %s: %w", id, err)
	}
	return &s, nil
}

// Dir returns the directory sessions are written to, creating it if needed.
func (d *DiskStore) Dir() (string, error) {
	return d.ensureDir()
}

func (d *DiskStore) ensureDir() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dir != "" {
		if err := os.MkdirAll(d.dir, 0o755); err != nil {
			return "", fmt.Errorf("creating session directory: %w", err)
		}
		return d.dir, nil
	}
	dir, err := os.MkdirTemp("", "gentest-sessions-*")
	if err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	d.dir = dir
	return dir, nil
}
