package library

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrReleased is returned by Lookup once the last reference is gone.
var ErrReleased = errors.New("library handle released")

// Handle is a shared reference to one opened binary.
type Handle struct {
	id   uuid.UUID
	path string
	obj  Object

	refs      atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// Open opens path with opener and returns a handle holding one reference.
func Open(opener Opener, path string) (*Handle, error) {
	obj, err := opener.Open(path)
	if err != nil {
		return nil, err
	}
	h := &Handle{id: uuid.New(), path: path, obj: obj}
	h.refs.Store(1)
	return h, nil
}

// ID identifies the handle in logs. It carries no other meaning.
func (h *Handle) ID() uuid.UUID { return h.id }

// Path is the path the binary was opened from.
func (h *Handle) Path() string { return h.path }

// Refs returns the current number of references.
func (h *Handle) Refs() int64 { return h.refs.Load() }

// Released reports whether the last reference has been released.
func (h *Handle) Released() bool { return h.refs.Load() <= 0 }

// Acquire takes an additional reference and returns h.
func (h *Handle) Acquire() *Handle {
	if h.refs.Add(1) <= 1 {
		h.refs.Add(-1)
		panic(fmt.Sprintf("library: acquire on released handle %s (%s)", h.id, h.path))
	}
	return h
}

// Release drops one reference. Dropping the last one closes the object and
// returns its Close error.
func (h *Handle) Release() error {
	n := h.refs.Add(-1)
	switch {
	case n > 0:
		return nil
	case n < 0:
		h.refs.Add(1)
		panic(fmt.Sprintf("library: handle %s (%s) released more times than acquired", h.id, h.path))
	}
	h.closeOnce.Do(func() {
		h.closeErr = h.obj.Close()
	})
	return h.closeErr
}

// Lookup resolves symbol in the underlying binary.
func (h *Handle) Lookup(symbol string) (any, error) {
	if h.Released() {
		return nil, ErrReleased
	}
	return h.obj.Lookup(symbol)
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	return fmt.Sprintf("%s (%s)", h.path, h.id)
}
