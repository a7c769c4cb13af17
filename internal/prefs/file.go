package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const prefsFile = "preferences.json"

// File stores preferences as a JSON object on disk. Every Set or Delete
// rewrites the file.
type File struct {
	mu     sync.RWMutex
	values map[string]string
	path   string
}

// DefaultPath returns ~/.config/histo-analyzer/preferences.json.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "histo-analyzer", prefsFile)
}

// OpenFile reads preferences from path. A missing file yields an empty store;
// a file that is not valid JSON is an error.
func OpenFile(path string) (*File, error) {
	p := &File{
		values: make(map[string]string),
		path:   path,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	if err := json.Unmarshal(data, &p.values); err != nil {
		return nil, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	if p.values == nil {
		p.values = make(map[string]string)
	}
	return p, nil
}

// Path returns the backing file path.
func (p *File) Path() string {
	return p.path
}

// Get implements Store.
func (p *File) Get(key string) (string, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok, nil
}

// Set implements Store.
func (p *File) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return p.save()
}

// Delete implements Store.
func (p *File) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.values[key]; !ok {
		return nil
	}
	delete(p.values, key)
	return p.save()
}

// save writes preferences to disk. Callers hold the lock.
func (p *File) save() error {
	data, err := json.MarshalIndent(p.values, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return os.Rename(tmp, p.path)
}
