// Package cabi loads plugins written against the C declaration record in
// nyx.h, without cgo.
//
// Libraries are opened with dlopen through purego. The declaration record is
// read in place, its version strings are copied into an abi.Declaration, and
// the record's register_plugin entry point is called with a registrar token
// and a C callback that forwards each (name, function pointer) pair to the
// host's Registrar. Function pointers become callables through a bind
// function such as StringFunc, which also hands results back to the
// plugin's free_result entry point.
package cabi

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
)

// ABIVersion is the runtime identifier C plugins embed in place of a Go
// toolchain version. It changes whenever the record layout changes.
const ABIVersion = "nyx-c-abi/2"

// ErrUnsupported is returned on platforms without dlopen support.
var ErrUnsupported = errors.New("cabi: C plugins are not supported on " + runtime.GOOS + "/" + runtime.GOARCH)

// Symbol is the address of an exported C symbol.
type Symbol uintptr

// Func is a function registered by a C plugin. FreeResult is the plugin's
// free_result entry point, or 0 when the plugin keeps ownership of results.
type Func struct {
	Addr       uintptr
	FreeResult uintptr
}

// Versions returns the versions C plugins must declare.
func Versions() abi.Versions {
	return abi.Versions{Core: abi.CoreVersion, HostRuntime: ABIVersion}
}

// declaration mirrors struct nyx_declaration.
type declaration struct {
	coreVersion        *byte
	hostRuntimeVersion *byte
	registerPlugin     uintptr
	freeResult         uintptr
}

// pointer turns an address obtained from C into a pointer. The memory behind
// it is not managed by the Go runtime.
func pointer(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

// goString copies a NUL-terminated C string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// copyResult copies the C string at p and passes p to release. A nil p
// yields "" and is not released.
func copyResult(p unsafe.Pointer, release func(unsafe.Pointer)) string {
	if p == nil {
		return ""
	}
	out := goString((*byte)(p))
	release(p)
	return out
}

// decode reads the record at sym. call invokes register_plugin with a
// registrar token.
func decode[T any](sym any, bind func(Func) T, call func(fn, token uintptr)) (*abi.Declaration[T], error) {
	s, ok := sym.(Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: symbol has type %T, want cabi.Symbol", abi.ErrPrototypeMismatch, sym)
	}
	if s == 0 {
		return nil, abi.ErrMalformedDeclaration
	}

	raw := (*declaration)(pointer(uintptr(s)))
	if raw.registerPlugin == 0 {
		return nil, abi.ErrMalformedDeclaration
	}
	entry, free := raw.registerPlugin, raw.freeResult

	return &abi.Declaration[T]{
		CoreVersion:        goString(raw.coreVersion),
		HostRuntimeVersion: goString(raw.hostRuntimeVersion),
		Register: func(r abi.Registrar[T]) {
			token := sinks.add(func(name string, addr uintptr) {
				r.RegisterFunction(name, bind(Func{Addr: addr, FreeResult: free}))
			})
			defer sinks.remove(token)
			call(entry, token)
		},
	}, nil
}

// sinkTable maps registrar tokens handed to C code to the registrar of the
// load in progress.
type sinkTable struct {
	mu   sync.Mutex
	next uintptr
	m    map[uintptr]func(name string, addr uintptr)
}

var sinks = &sinkTable{m: make(map[uintptr]func(string, uintptr))}

func (t *sinkTable) add(fn func(string, uintptr)) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.m[t.next] = fn
	return t.next
}

func (t *sinkTable) remove(token uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.m, token)
}

// deliver is the body of the register_function callback. It runs on a C
// stack, so problems are logged and the entry is dropped.
func deliver(token uintptr, name *byte, addr uintptr) {
	sinks.mu.Lock()
	fn, ok := sinks.m[token]
	sinks.mu.Unlock()

	n := goString(name)
	switch {
	case !ok:
		slog.Warn("cabi: register_function called with a stale registrar token", "token", token, "name", n)
	case name == nil:
		slog.Warn("cabi: register_function called with a NULL name, entry skipped", "token", token)
	case addr == 0:
		slog.Warn("cabi: register_function called with a NULL function, entry skipped", "token", token, "name", n)
	default:
		fn(n, addr)
	}
}
