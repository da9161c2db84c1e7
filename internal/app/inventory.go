package app

import (
	"slices"
)

// Inventory describes what the registry holds. It is printed by list,
// served on /functions and sent with the load announcement.
type Inventory struct {
	Functions []FunctionInfo `json:"functions"`
	Libraries []LibraryInfo  `json:"libraries"`
}

// FunctionInfo is a registered name and the library that provides it.
type FunctionInfo struct {
	Name    string `json:"name"`
	Library string `json:"library"`
	Path    string `json:"path"`
}

// LibraryInfo is a retained library.
type LibraryInfo struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Refs int64  `json:"refs"`
}

// Inventory snapshots the registry. Functions are sorted by name and
// libraries are in load order.
func (a *App) Inventory() *Inventory {
	inv := &Inventory{
		Functions: []FunctionInfo{},
		Libraries: []LibraryInfo{},
	}

	for _, name := range slices.Sorted(a.registry.Functions()) {
		p, ok := a.registry.Get(name)
		if !ok {
			continue
		}
		inv.Functions = append(inv.Functions, FunctionInfo{
			Name:    name,
			Library: p.Library().ID().String(),
			Path:    p.Library().Path(),
		})
	}
	for _, lib := range a.registry.Libraries() {
		inv.Libraries = append(inv.Libraries, LibraryInfo{
			ID:   lib.ID().String(),
			Path: lib.Path(),
			Refs: lib.Refs(),
		})
	}
	return inv
}
