package abi

import (
	"errors"
	"fmt"
)

// DeclarationSymbol is the default exported symbol holding a plugin's Declaration.
const DeclarationSymbol = "NyxDeclaration"

var (
	// ErrPrototypeMismatch is returned when the declaration symbol exists but
	// was built for a different prototype than the host expects.
	ErrPrototypeMismatch = errors.New("declaration built for a different prototype")

	// ErrMalformedDeclaration is returned for a declaration without a
	// registration entry point.
	ErrMalformedDeclaration = errors.New("declaration has no register entry point")
)

// Registrar is the only surface a plugin sees during registration.
// Registering the same name twice within one load keeps the last callable.
type Registrar[T any] interface {
	RegisterFunction(name string, fn T)
}

// Declaration is the compatibility record exported by every plugin. The field
// order is part of the contract.
type Declaration[T any] struct {
	CoreVersion        string
	HostRuntimeVersion string
	Register           func(Registrar[T])
}

// Export builds a Declaration carrying the versions of this build.
func Export[T any](register func(Registrar[T])) Declaration[T] {
	return Declaration[T]{
		CoreVersion:        CoreVersion,
		HostRuntimeVersion: HostRuntimeVersion,
		Register:           register,
	}
}

// Versions returns the identifiers carried by the record.
func (d *Declaration[T]) Versions() Versions {
	return Versions{Core: d.CoreVersion, HostRuntime: d.HostRuntimeVersion}
}

// Decoder interprets a raw looked-up symbol as a Declaration.
type Decoder[T any] func(sym any) (*Declaration[T], error)

// Assert is the Decoder for Go plugins, where the symbol is a pointer to the
// exported Declaration variable.
func Assert[T any](sym any) (*Declaration[T], error) {
	decl, ok := sym.(*Declaration[T])
	if !ok {
		return nil, fmt.Errorf("%w: symbol has type %T, want %T", ErrPrototypeMismatch, sym, decl)
	}
	if decl == nil || decl.Register == nil {
		return nil, ErrMalformedDeclaration
	}
	return decl, nil
}
