// Package prefs provides JSON-based viewer preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"facewarp/internal/config"
)

const (
	prefsFile = "preferences.json"
	maxRecent = 8
)

// Preference keys.
const (
	KeyLastDir     = "lastDirectory"
	KeySplitOffset = "splitOffset"
	keyRecent      = "recentImages"
)

// Prefs stores viewer preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]interface{}
	path   string
}

// Load reads preferences from the facewarp config directory. Returns
// empty preferences if the file doesn't exist.
func Load() *Prefs {
	return LoadFrom(filepath.Join(config.ConfigDir(), prefsFile))
}

// LoadFrom reads preferences from path.
func LoadFrom(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]interface{}),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n, ok := p.values[key].(float64); ok {
		return n
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.values[key].(string)
	return s
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// RecentImages returns recently opened images, newest first.
func (p *Prefs) RecentImages() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	list, _ := p.values[keyRecent].([]interface{})
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// AddRecentImage moves path to the front of the recent list.
func (p *Prefs) AddRecentImage(path string) {
	recent := []interface{}{path}
	for _, s := range p.RecentImages() {
		if s != path && len(recent) < maxRecent {
			recent = append(recent, s)
		}
	}
	p.mu.Lock()
	p.values[keyRecent] = recent
	p.mu.Unlock()
}
