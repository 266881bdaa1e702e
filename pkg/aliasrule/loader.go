package aliasrule

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader loads and optionally hot-reloads alias rule sets from YAML files.
type Loader struct {
	dir string

	mu   sync.RWMutex
	sets map[string]*RuleSet
}

// NewLoader creates a rule loader for the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{
		dir:  dir,
		sets: make(map[string]*RuleSet),
	}
}

// LoadAll loads all .yaml and .yml files from the configured directory.
func (l *Loader) LoadAll() (map[string]*RuleSet, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read alias rule dir %q: %w", l.dir, err)
	}

	result := make(map[string]*RuleSet)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		rs, err := l.loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
		result[rs.Name] = rs
	}

	l.mu.Lock()
	l.sets = result
	l.mu.Unlock()

	return result, nil
}

// Get returns a loaded rule set by name.
func (l *Loader) Get(name string) (*RuleSet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rs, ok := l.sets[name]
	return rs, ok
}

// All returns all loaded rule sets.
func (l *Loader) All() map[string]*RuleSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]*RuleSet, len(l.sets))
	for k, v := range l.sets {
		result[k] = v
	}
	return result
}

func (l *Loader) loadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if rs.Name == "" {
		rs.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}

	return &rs, nil
}

// WatchAndReload starts watching the rule directory for changes and reloads.
// This blocks until the done channel is closed.
func (l *Loader) WatchAndReload(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch dir %q: %w", l.dir, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				ext := filepath.Ext(event.Name)
				if ext == ".yaml" || ext == ".yml" {
					l.LoadAll()
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
