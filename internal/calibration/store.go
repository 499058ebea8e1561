package calibration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"plate-scanner/internal/sampler"
)

const curvesFile = "curves.json"

// ErrCurveNotFound is returned when a name has no saved curve.
var ErrCurveNotFound = errors.New("calibration curve not found")

// Store persists fitted models by name. Saving under an existing name
// replaces the old curve.
type Store struct {
	mu     sync.RWMutex
	curves map[string]Model
	path   string
}

// record is the on-disk form; older files may lack channel and r2.
type record struct {
	K       float64          `json:"k"`
	B       float64          `json:"b"`
	Channel *sampler.Channel `json:"channel,omitempty"`
	R2      *float64         `json:"r2,omitempty"`
}

// DefaultStorePath returns ~/.config/plate-scanner/curves.json.
func DefaultStorePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "plate-scanner", curvesFile), nil
}

// NewStore creates an empty store that saves to path.
func NewStore(path string) *Store {
	return &Store{
		curves: make(map[string]Model),
		path:   path,
	}
}

// OpenStore loads the curves saved at path. A missing file yields an empty store.
func OpenStore(path string) (*Store, error) {
	s := NewStore(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read curves: %w", err)
	}

	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse curves %s: %w", path, err)
	}

	for name, rec := range records {
		m := Model{K: rec.K, B: rec.B, Channel: sampler.ChannelH}
		if rec.Channel != nil {
			m.Channel = *rec.Channel
		}
		if rec.R2 != nil {
			m.R2 = *rec.R2
		}
		s.curves[name] = m
	}

	log.Debugf("loaded %d curves from %s", len(s.curves), path)
	return s, nil
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Put stores m under name.
func (s *Store) Put(name string, m Model) error {
	if name == "" {
		return errors.New("curve name must not be empty")
	}
	s.mu.Lock()
	s.curves[name] = m
	s.mu.Unlock()
	return nil
}

// Get returns the curve saved under name. The demo curve is available under
// DemoName unless a saved curve overrides it.
func (s *Store) Get(name string) (Model, error) {
	s.mu.RLock()
	m, ok := s.curves[name]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}
	if name == DemoName {
		return DemoModel, nil
	}
	return Model{}, fmt.Errorf("%w: %q", ErrCurveNotFound, name)
}

// Delete removes a saved curve and reports whether it existed.
func (s *Store) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.curves[name]
	delete(s.curves, name)
	return ok
}

// Names returns the saved curve names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.curves))
	for name := range s.curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the store to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.curves, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create curves directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}
