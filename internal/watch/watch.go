// Package watch defines the Watcher interface and registry that every
// per-tool ingester implements: discover native session sources, parse them
// into the canonical model, and report paths worth watching for changes.
package watch

import (
	"github.com/lorehq/lore/internal/model"
)

// Info describes a watcher: its identifier, a human-readable description,
// and the default filesystem locations it looks under.
type Info struct {
	Name         string
	Description  string
	DefaultPaths []string
}

// ParsedSource is one (session, messages) pair returned by parsing a single
// source file. A source may yield zero, one, or several sessions.
type ParsedSource struct {
	Session  model.Session
	Messages []model.Message
}

// Watcher discovers and normalizes one tool's native session storage format
// into the canonical Session/Message model. Implementations must be safe to
// call from any worker; parsing is I/O bound and must not hold locks.
type Watcher interface {
	// Info returns static metadata about this watcher.
	Info() Info

	// IsAvailable reports whether the tool's storage location exists on
	// this system.
	IsAvailable() bool

	// FindSources returns paths to individual session files or databases
	// that can be passed to ParseSource.
	FindSources() ([]string, error)

	// ParseSource is pure with respect to the filesystem: it reads and
	// returns, never writing to the store. An empty slice is legal (e.g.
	// a metadata-only file).
	ParseSource(path string) ([]ParsedSource, error)

	// WatchPaths returns paths the daemon should monitor for changes.
	WatchPaths() []string
}

// Registry holds a collection of watchers and answers availability queries.
type Registry struct {
	watchers []Watcher
}

// NewRegistry creates an empty watcher registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a watcher to the registry.
func (r *Registry) Register(w Watcher) {
	r.watchers = append(r.watchers, w)
}

// All returns every registered watcher, regardless of availability.
func (r *Registry) All() []Watcher {
	return r.watchers
}

// Available returns only watchers whose IsAvailable() is true.
func (r *Registry) Available() []Watcher {
	var out []Watcher
	for _, w := range r.watchers {
		if w.IsAvailable() {
			out = append(out, w)
		}
	}
	return out
}

// Get retrieves a watcher by its Info().Name. Returns nil if not registered.
func (r *Registry) Get(name string) Watcher {
	for _, w := range r.watchers {
		if w.Info().Name == name {
			return w
		}
	}
	return nil
}

// AllWatchPaths collects watch paths from every available watcher.
func (r *Registry) AllWatchPaths() []string {
	var out []string
	for _, w := range r.Available() {
		out = append(out, w.WatchPaths()...)
	}
	return out
}
