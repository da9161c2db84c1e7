//go:build !(darwin || (linux && (amd64 || arm64)))

package cabi

import (
	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// Open always fails with ErrUnsupported.
func Open(path string) (library.Object, error) {
	return nil, ErrUnsupported
}

// Opener returns an Opener that always fails with ErrUnsupported.
func Opener() library.Opener {
	return library.OpenerFunc(Open)
}

// Decoder returns a decoder that always fails with ErrUnsupported.
func Decoder[T any](bind func(Func) T) abi.Decoder[T] {
	return func(any) (*abi.Declaration[T], error) {
		return nil, ErrUnsupported
	}
}

// StringFunc panics: no library can be opened here.
func StringFunc(Func) func(string) string {
	panic(ErrUnsupported)
}
