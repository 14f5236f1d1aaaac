package config

import (
	"sync"
)

// Store reads and writes individual settings in a config file. Every call
// goes to disk so that changes made by `athany config set` while the daemon
// runs are seen.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns a store for the file at Path().
func DefaultStore() (*Store, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return NewStore(p), nil
}

func (s *Store) Path() string { return s.path }

// Load reads the whole config.
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadFrom(s.path)
}

func (s *Store) Get(key string) (string, error) {
	cfg, err := s.Load()
	if err != nil {
		return "", err
	}
	return cfg.Get(key)
}

func (s *Store) Set(key, value string) error {
	return s.update(func(c *Config) error { return c.Set(key, value) })
}

func (s *Store) Unset(key string) error {
	return s.update(func(c *Config) error { return c.Unset(key) })
}

// SaveLocation stores city and country together.
func (s *Store) SaveLocation(city, country string) error {
	return s.update(func(c *Config) error {
		c.City, c.Country = city, country
		return nil
	})
}

// ClearLocation forgets the saved city and country so the next launch asks
// for a location again.
func (s *Store) ClearLocation() error {
	return s.update(func(c *Config) error {
		c.City, c.Country = "", ""
		return nil
	})
}

// Reset deletes the config file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ResetAt(s.path)
}

func (s *Store) update(fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := LoadFrom(s.path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cfg.SaveTo(s.path)
}
