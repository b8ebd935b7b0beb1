// Package upstream holds the operator-editable upstream endpoints. Readers
// get an immutable snapshot; updates build a new snapshot and swap it in.
package upstream

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/numo-systems/numo-admin/common/fsutil"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

// Override holds environment-supplied directory settings. Non-empty fields
// win over both the persisted file and API updates.
type Override struct {
	DirURL   string
	DirToken string
}

type Options struct {
	// Path is the JSON file updates are persisted to. Empty disables
	// persistence.
	Path     string
	Defaults models.UpstreamSettings
	Override Override
}

type Store struct {
	path     string
	defaults models.UpstreamSettings
	override Override

	mu      sync.Mutex
	current atomic.Pointer[models.UpstreamSettings]
}

func NewStore(opts Options) *Store {
	s := &Store{path: opts.Path, defaults: opts.Defaults, override: opts.Override}
	initial := s.normalize(opts.Defaults)
	s.current.Store(&initial)
	return s
}

// Load merges the persisted file over the defaults. A missing file is not an
// error; an unreadable one is reported and the defaults stay in effect.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.defaults
	if err := fsutil.ReadJSON(s.path, &merged); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load upstream config: %w", err)
	}

	next := s.normalize(merged)
	s.current.Store(&next)
	return nil
}

// Get returns the current snapshot.
func (s *Store) Get() models.UpstreamSettings {
	return *s.current.Load()
}

// Update merges patch over the current settings, persists the result and
// publishes it. On a persistence error the previous snapshot stays current.
func (s *Store) Update(patch models.UpstreamPatch) (models.UpstreamSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.normalize(patch.Apply(*s.current.Load()))

	if s.path != "" {
		if err := fsutil.WriteJSONAtomic(s.path, next, 0o600); err != nil {
			return s.Get(), fmt.Errorf("failed to save upstream config: %w", err)
		}
	}

	s.current.Store(&next)
	return next, nil
}

// normalize restores blank directory settings to their defaults and then
// applies the environment override.
func (s *Store) normalize(in models.UpstreamSettings) models.UpstreamSettings {
	if in.DirURL == "" {
		in.DirURL = s.defaults.DirURL
	}
	if in.DirToken == "" {
		in.DirToken = s.defaults.DirToken
	}
	if s.override.DirURL != "" {
		in.DirURL = s.override.DirURL
	}
	if s.override.DirToken != "" {
		in.DirToken = s.override.DirToken
	}
	return in
}
