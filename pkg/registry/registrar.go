package registry

import (
	"fmt"

	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// registrar collects the callables of a single load. It is sealed once the
// plugin's Register call returns.
type registrar[T any] struct {
	lib       *library.Handle
	functions map[string]T
	sealed    bool
}

func newRegistrar[T any](lib *library.Handle) *registrar[T] {
	return &registrar[T]{lib: lib, functions: make(map[string]T)}
}

// RegisterFunction implements abi.Registrar.
func (r *registrar[T]) RegisterFunction(name string, fn T) {
	if r.sealed {
		panic(fmt.Sprintf("registry: RegisterFunction(%q) called after the load of %s finished", name, r.lib.Path()))
	}
	r.functions[name] = fn
}

func (r *registrar[T]) seal() {
	r.sealed = true
}
