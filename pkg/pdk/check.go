package pdk

import (
	"context"
	"errors"
	"slices"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/registry"
)

const checkPath = "memory:pdk-check"

// Report lists what a declaration registered.
//
// Functions holds the bare callables. They outlive the registry Check used
// only because an in-memory declaration has no library to unmap; callables
// taken from a real shared object must be used through their Proxy.
type Report[T any] struct {
	Names     []string
	Functions map[string]T
}

// Check loads decl through a fresh registry that expects the versions of this
// build, exactly as a host would, and reports the registered callables. The
// registry is closed before Check returns.
func Check[T any](ctx context.Context, decl *abi.Declaration[T]) (*Report[T], error) {
	return check(ctx, NewMemoryOpener(), decl)
}

func check[T any](ctx context.Context, opener *MemoryOpener, decl *abi.Declaration[T]) (report *Report[T], err error) {
	opener.AddDeclaration(checkPath, abi.DeclarationSymbol, decl)
	reg := registry.New(registry.WithOpener[T](opener))
	defer func() {
		if closeErr := reg.Close(); closeErr != nil {
			report, err = nil, errors.Join(err, closeErr)
		}
	}()

	if err := reg.Load(ctx, checkPath); err != nil {
		return nil, err
	}

	report = &Report[T]{
		Names:     slices.Sorted(reg.Functions()),
		Functions: make(map[string]T, reg.Len()),
	}
	for _, name := range report.Names {
		p, _ := reg.Get(name)
		report.Functions[name] = p.Value()
	}
	return report, nil
}
