package registry

import (
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// Registry owns every loaded library and maps names to the callables they
// registered. See the package documentation for the concurrency contract.
type Registry[T any] struct {
	functions map[string]*Proxy[T]
	libraries []*library.Handle

	backend Backend[T]
	symbol  string
	logger  *slog.Logger
	closed  bool
}

// Backend describes one way of loading binaries: how they are opened, how
// their declaration symbol is interpreted and which versions it must carry.
type Backend[T any] struct {
	Opener   library.Opener
	Decode   abi.Decoder[T]
	Versions abi.Versions
}

// GoBackend is the Go plugin backend with the versions of this build.
func GoBackend[T any]() Backend[T] {
	return Backend[T]{
		Opener:   library.GoPlugin(),
		Decode:   abi.Assert[T],
		Versions: abi.Current(),
	}
}

// Option configures a Registry.
type Option[T any] func(*Registry[T])

// WithBackend replaces the default backend used by Load.
func WithBackend[T any](b Backend[T]) Option[T] {
	return func(r *Registry[T]) { r.backend = b }
}

// WithOpener sets how binaries are opened. The default is library.GoPlugin().
func WithOpener[T any](opener library.Opener) Option[T] {
	return func(r *Registry[T]) { r.backend.Opener = opener }
}

// WithDecoder sets how the declaration symbol is interpreted. The default is
// abi.Assert.
func WithDecoder[T any](decode abi.Decoder[T]) Option[T] {
	return func(r *Registry[T]) { r.backend.Decode = decode }
}

// WithSymbol sets the declaration symbol to look up. The default is
// abi.DeclarationSymbol.
func WithSymbol[T any](symbol string) Option[T] {
	return func(r *Registry[T]) { r.symbol = symbol }
}

// WithVersions sets the versions declarations must match. The default is
// abi.Current().
func WithVersions[T any](v abi.Versions) Option[T] {
	return func(r *Registry[T]) { r.backend.Versions = v }
}

// WithLogger sets the logger used for load diagnostics. Without it the
// registry logs to the logger carried by the load's context, or
// slog.Default().
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(r *Registry[T]) { r.logger = logger }
}

// New creates an empty registry.
func New[T any](opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		functions: make(map[string]*Proxy[T]),
		backend:   GoBackend[T](),
		symbol:    abi.DeclarationSymbol,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the proxy registered under name.
func (r *Registry[T]) Get(name string) (*Proxy[T], bool) {
	p, ok := r.functions[name]
	return p, ok
}

// Functions yields every registered name once, in no particular order. The
// sequence reads the live map, so each iteration reflects the current names.
func (r *Registry[T]) Functions() iter.Seq[string] {
	return maps.Keys(r.functions)
}

// Len returns the number of registered names.
func (r *Registry[T]) Len() int {
	return len(r.functions)
}

// Libraries returns the retained handles in load order.
func (r *Registry[T]) Libraries() []*library.Handle {
	return slices.Clone(r.libraries)
}

// Symbol returns the declaration symbol the registry looks up.
func (r *Registry[T]) Symbol() string {
	return r.symbol
}

// Versions returns the versions declarations loaded by Load must match.
func (r *Registry[T]) Versions() abi.Versions {
	return r.backend.Versions
}

// Close releases the registry's reference on every retained library and
// forgets all names. Proxies still held by callers keep their library mapped
// until they become unreachable. The first Close error is returned.
func (r *Registry[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for _, lib := range r.libraries {
		if err := lib.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.libraries = nil
	clear(r.functions)
	return firstErr
}
