package registry

import (
	"runtime"

	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// Proxy couples a callable to the library it came from. While the Proxy is
// reachable, its library stays mapped.
type Proxy[T any] struct {
	name string
	fn   T
	lib  *library.Handle
}

func newProxy[T any](name string, fn T, lib *library.Handle) *Proxy[T] {
	p := &Proxy[T]{name: name, fn: fn, lib: lib.Acquire()}
	runtime.AddCleanup(p, releaseHandle, lib)
	return p
}

func releaseHandle(lib *library.Handle) {
	_ = lib.Release()
}

// Name is the name the callable was registered under.
func (p *Proxy[T]) Name() string { return p.name }

// Library is the handle of the binary that exported the callable.
func (p *Proxy[T]) Library() *library.Handle { return p.lib }

// Value returns the callable. The caller must keep p reachable for as long
// as it uses the returned value; Use does that automatically.
func (p *Proxy[T]) Value() T { return p.fn }

// Use calls fn with the callable while keeping the proxy alive.
func (p *Proxy[T]) Use(fn func(T)) {
	fn(p.fn)
	runtime.KeepAlive(p)
}
