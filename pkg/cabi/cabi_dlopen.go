//go:build darwin || (linux && (amd64 || arm64))

package cabi

import (
	"sync"
	"unsafe"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/library"
	"github.com/ebitengine/purego"
)

// object is an abstraction around a dlopen'ed shared library.
type object struct {
	handle uintptr
}

// Open dlopens the shared library at path.
func Open(path string) (library.Object, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	return &object{handle: h}, nil
}

// Opener returns a library.Opener for C shared libraries.
func Opener() library.Opener {
	return library.OpenerFunc(Open)
}

// Lookup returns the address of symbol as a Symbol.
func (o *object) Lookup(symbol string) (any, error) {
	addr, err := purego.Dlsym(o.handle, symbol)
	if err != nil {
		return nil, err
	}
	return Symbol(addr), nil
}

// Close dlcloses the library.
func (o *object) Close() error {
	return purego.Dlclose(o.handle)
}

var (
	callbackOnce sync.Once
	callback     uintptr
)

// registerFunction returns the C function pointer handed to register_plugin.
// purego limits the number of callbacks per process, so one is shared by all
// loads and dispatches on the registrar token.
func registerFunction() uintptr {
	callbackOnce.Do(func() {
		callback = purego.NewCallback(func(token uintptr, name *byte, addr uintptr) {
			deliver(token, name, addr)
		})
	})
	return callback
}

func callRegister(entry, token uintptr) {
	purego.SyscallN(entry, token, registerFunction())
}

// Decoder returns an abi.Decoder for C declaration records. bind turns each
// registered function into a T.
func Decoder[T any](bind func(Func) T) abi.Decoder[T] {
	return func(sym any) (*abi.Declaration[T], error) {
		return decode(sym, bind, callRegister)
	}
}

// StringFunc wraps a C function of type `const char *(const char *)`. Each
// non-NULL result is copied and then handed to the plugin's free_result, if
// it declared one. A NULL result yields "".
func StringFunc(f Func) func(string) string {
	var call func(string) unsafe.Pointer
	purego.RegisterFunc(&call, f.Addr)

	release := func(unsafe.Pointer) {}
	if f.FreeResult != 0 {
		purego.RegisterFunc(&release, f.FreeResult)
	}

	return func(in string) string {
		return copyResult(call(in), release)
	}
}
