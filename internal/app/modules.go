package app

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/andrea-alfonsi/nyx/modules/env"
	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/command"
	"github.com/andrea-alfonsi/nyx/pkg/pdk"
	"github.com/andrea-alfonsi/nyx/pkg/registry"
)

// coreModules is the definitive list of all command sets that are compiled
// into the nyx binary, keyed by the pseudo path they are loaded from.
var coreModules = map[string]*abi.Declaration[command.Command]{
	"builtin:env": &env.Declaration,
}

// loadBuiltins loads the core modules through the registry like any plugin,
// before every real plugin, so plugins can replace built-in names.
func (a *App) loadBuiltins(ctx context.Context) error {
	opener := pdk.NewMemoryOpener()
	for path, decl := range coreModules {
		opener.AddDeclaration(path, command.Symbol, decl)
	}
	b := registry.Backend[command.Command]{
		Opener:   opener,
		Decode:   abi.Assert[command.Command],
		Versions: abi.Current(),
	}

	for _, path := range slices.Sorted(maps.Keys(coreModules)) {
		if err := a.registry.LoadWith(ctx, path, b); err != nil {
			return fmt.Errorf("failed to load built-in module %s: %w", path, err)
		}
	}
	return nil
}
