// Package registry keeps named database handles open across calls.
//
// The registry owns every store it holds: a store moves in when it is opened
// and moves out when it is closed. Callers reach a store only through With,
// which runs while holding that handle's lock, so operations on one name are
// serialized and operations on different names proceed independently.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/store"
)

type handle struct {
	mu     sync.Mutex
	store  *store.Store
	closed bool
}

// Registry maps names to open stores.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

// Open opens a database described by cfg and registers it as name.
// An empty name gets a generated one. If name is already registered the
// existing handle is kept and the new connection is closed.
// Returns the registered name.
func (r *Registry) Open(name string, cfg store.Config) (string, error) {
	if name == "" {
		name = uuid.NewString()
	}

	s, err := store.Open(cfg)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	_, exists := r.handles[name]
	if !exists {
		r.handles[name] = &handle{store: s}
	}
	r.mu.Unlock()

	if exists {
		if err := s.Close(); err != nil {
			return "", dberr.Database("close duplicate connection", err)
		}
	}
	return name, nil
}

// OpenInMemory opens a private in-memory database under name.
func (r *Registry) OpenInMemory(name string) (string, error) {
	return r.Open(name, store.Config{Path: store.MemoryPath})
}

// OpenPath opens the database file at path, registered under the path itself.
func (r *Registry) OpenPath(path string) (string, error) {
	return r.Open(path, store.Config{Path: path})
}

// With runs fn with exclusive access to the named store.
func (r *Registry) With(name string, fn func(*store.Store) error) error {
	r.mu.Lock()
	h, ok := r.handles[name]
	r.mu.Unlock()
	if !ok {
		return dberr.Connection(name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Closed between lookup and lock
	if h.closed {
		return dberr.Connection(name)
	}
	return fn(h.store)
}

// Close removes the named store and closes it.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	h, ok := r.handles[name]
	delete(r.handles, name)
	r.mu.Unlock()
	if !ok {
		return dberr.Connection(name)
	}
	return h.close(name)
}

// CloseAll closes every registered store. Every store is attempted; failures
// are aggregated.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*handle)
	r.mu.Unlock()

	names := make([]string, 0, len(handles))
	for name := range handles {
		names = append(names, name)
	}
	sort.Strings(names)

	var result *multierror.Error
	for _, name := range names {
		if err := handles[name].close(name); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// close waits for any running With call on the handle, then closes it.
func (h *handle) close(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.store.Close(); err != nil {
		return dberr.Database(fmt.Sprintf("close %q", name), err)
	}
	return nil
}
