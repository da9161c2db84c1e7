package registry

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// Synchronized guards a Registry with a read/write mutex so it can be shared
// between goroutines. Load and Close take the write lock for their whole
// duration, including the plugin's Register call.
type Synchronized[T any] struct {
	mu  sync.RWMutex
	reg *Registry[T]
}

// NewSynchronized wraps reg. reg must not be used directly afterwards.
func NewSynchronized[T any](reg *Registry[T]) *Synchronized[T] {
	return &Synchronized[T]{reg: reg}
}

// Load calls Registry.Load under the write lock.
func (s *Synchronized[T]) Load(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Load(ctx, path)
}

// LoadWith calls Registry.LoadWith under the write lock.
func (s *Synchronized[T]) LoadWith(ctx context.Context, path string, b Backend[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.LoadWith(ctx, path, b)
}

// Get calls Registry.Get under the read lock.
func (s *Synchronized[T]) Get(name string) (*Proxy[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.Get(name)
}

// Functions yields the names registered when iteration starts. The lock is
// not held while the caller's loop body runs, so the body may call Load.
func (s *Synchronized[T]) Functions() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.mu.RLock()
		names := slices.Collect(s.reg.Functions())
		s.mu.RUnlock()

		for _, name := range names {
			if !yield(name) {
				return
			}
		}
	}
}

// Len calls Registry.Len under the read lock.
func (s *Synchronized[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.Len()
}

// Libraries calls Registry.Libraries under the read lock.
func (s *Synchronized[T]) Libraries() []*library.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.Libraries()
}

// Close calls Registry.Close under the write lock.
func (s *Synchronized[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.Close()
}
