package config

import "sync"

// Store guards the live settings shared by the tray and the refresh worker.
type Store struct {
	mu   sync.RWMutex
	path string
	s    Settings
}

// NewStore wraps s, persisted at path. A nil s means defaults.
func NewStore(path string, s *Settings) *Store {
	if s == nil {
		s = DefaultSettings()
	}
	return &Store{path: path, s: *s}
}

// Path returns the settings file location.
func (st *Store) Path() string {
	return st.path
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Save writes s to disk and makes it current. On error the current settings
// are unchanged.
func (st *Store) Save(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := SaveSettings(st.path, &s); err != nil {
		return err
	}
	st.s = s
	return nil
}
