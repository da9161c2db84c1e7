package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrIO matches errors raised while opening a binary.
	ErrIO = errors.New("cannot open library")
	// ErrSymbolNotFound matches a missing or unusable declaration symbol.
	ErrSymbolNotFound = errors.New("declaration symbol not found")
	// ErrVersionMismatch matches a declaration built for other versions.
	ErrVersionMismatch = errors.New("version mismatch")
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("registry closed")
)

// IOError reports that the binary could not be opened: it does not exist,
// is unreadable, or is not a loadable dynamic binary.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// SymbolNotFoundError reports that the binary is not a plugin for this host:
// the declaration symbol is absent or does not decode to a usable record.
type SymbolNotFoundError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("load %s: symbol %q: %v", e.Path, e.Symbol, e.Err)
}

func (e *SymbolNotFoundError) Unwrap() error { return e.Err }

func (e *SymbolNotFoundError) Is(target error) bool { return target == ErrSymbolNotFound }

// VersionMismatchError reports a plugin built against another protocol or
// runtime version.
type VersionMismatchError struct {
	Path         string
	ExpectedCore string
	ActualCore   string
	ExpectedHost string
	ActualHost   string

	// Err is set when the loader refused the binary before its declaration
	// could be read. ActualCore and ActualHost are empty then.
	Err error
}

func (e *VersionMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: version mismatch: host runtime (want %q): %v", e.Path, e.ExpectedHost, e.Err)
	}
	return fmt.Sprintf("load %s: version mismatch: core %q (want %q), host runtime %q (want %q)",
		e.Path, e.ActualCore, e.ExpectedCore, e.ActualHost, e.ExpectedHost)
}

func (e *VersionMismatchError) Unwrap() error { return e.Err }

func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }
