package registry

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// Load opens the binary at path, validates its declaration and registers
// everything it exports. On error the registry is left exactly as it was.
//
// ctx is consulted only before the binary is opened and to find the logger.
// Once opened, the load runs to completion: the plugin's Register entry point
// cannot be interrupted.
func (r *Registry[T]) Load(ctx context.Context, path string) error {
	return r.LoadWith(ctx, path, r.backend)
}

// LoadWith is Load using backend b instead of the registry's default. Hosts
// mixing Go and C plugins in one registry pick the backend per path.
func (r *Registry[T]) LoadWith(ctx context.Context, path string, b Backend[T]) error {
	logger := r.loggerFor(ctx).With("path", path)

	if r.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Debug("Opening library.")
	lib, err := library.Open(b.Opener, path)
	if err != nil {
		logger.Debug("Failed to open library.", "error", err)
		if errors.Is(err, library.ErrIncompatibleBuild) {
			return &VersionMismatchError{
				Path:         path,
				ExpectedCore: b.Versions.Core,
				ExpectedHost: b.Versions.HostRuntime,
				Err:          err,
			}
		}
		return &IOError{Path: path, Err: err}
	}
	logger = logger.With("library", lib.ID())

	decl, err := r.declaration(lib, b.Decode)
	if err != nil {
		r.discard(ctx, lib)
		return err
	}

	actual := decl.Versions()
	if !b.Versions.Matches(actual) {
		logger.Debug("Declaration versions do not match.", "core", actual.Core, "host_runtime", actual.HostRuntime)
		r.discard(ctx, lib)
		return &VersionMismatchError{
			Path:         path,
			ExpectedCore: b.Versions.Core,
			ActualCore:   actual.Core,
			ExpectedHost: b.Versions.HostRuntime,
			ActualHost:   actual.HostRuntime,
		}
	}

	logger.Debug("Calling plugin register entry point.")
	reg := newRegistrar[T](lib)
	decl.Register(reg)
	reg.seal()

	names := slices.Sorted(maps.Keys(reg.functions))
	for _, name := range names {
		if old, exists := r.functions[name]; exists {
			logger.Debug("Replacing registered function.", "name", name, "previous_library", old.lib.ID())
		}
		r.functions[name] = newProxy(name, reg.functions[name], lib)
	}
	r.libraries = append(r.libraries, lib)

	logger.Info("Library loaded.", "functions", names)
	return nil
}

// declaration resolves and decodes the declaration record of lib.
func (r *Registry[T]) declaration(lib *library.Handle, decode abi.Decoder[T]) (*abi.Declaration[T], error) {
	sym, err := lib.Lookup(r.symbol)
	if err != nil {
		return nil, &SymbolNotFoundError{Path: lib.Path(), Symbol: r.symbol, Err: err}
	}
	decl, err := decode(sym)
	if err != nil {
		return nil, &SymbolNotFoundError{Path: lib.Path(), Symbol: r.symbol, Err: err}
	}
	return decl, nil
}

// discard releases a handle that will not be retained.
func (r *Registry[T]) discard(ctx context.Context, lib *library.Handle) {
	if err := lib.Release(); err != nil {
		r.loggerFor(ctx).Warn("Failed to close rejected library.", "path", lib.Path(), "error", err)
	}
}

func (r *Registry[T]) loggerFor(ctx context.Context) *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return ctxlog.FromContext(ctx)
}
