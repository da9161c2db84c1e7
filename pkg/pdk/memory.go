package pdk

import (
	"fmt"
	"io/fs"
	"maps"
	"sync"

	"github.com/andrea-alfonsi/nyx/pkg/library"
)

// MemoryOpener is a library.Opener backed by in-memory symbol tables. It
// counts opens and closes per path so tests can assert on handle lifetimes.
type MemoryOpener struct {
	mu      sync.Mutex
	libs    map[string]map[string]any
	opened  map[string]int
	closed  map[string]int
	failing map[string]error
}

// NewMemoryOpener returns an opener with no libraries.
func NewMemoryOpener() *MemoryOpener {
	return &MemoryOpener{
		libs:    make(map[string]map[string]any),
		opened:  make(map[string]int),
		closed:  make(map[string]int),
		failing: make(map[string]error),
	}
}

// Add makes path openable and exporting symbols.
func (m *MemoryOpener) Add(path string, symbols map[string]any) *MemoryOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.libs[path] = maps.Clone(symbols)
	return m
}

// AddDeclaration makes path openable and exporting decl under symbol.
func (m *MemoryOpener) AddDeclaration(path, symbol string, decl any) *MemoryOpener {
	return m.Add(path, map[string]any{symbol: decl})
}

// FailClose makes closing path's object return err.
func (m *MemoryOpener) FailClose(path string, err error) *MemoryOpener {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[path] = err
	return m
}

// Open implements library.Opener.
func (m *MemoryOpener) Open(path string) (library.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbols, ok := m.libs[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	m.opened[path]++
	return &memoryObject{opener: m, path: path, symbols: symbols}, nil
}

// Opened returns how many times path was opened.
func (m *MemoryOpener) Opened(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened[path]
}

// Closed returns how many objects opened from path were closed.
func (m *MemoryOpener) Closed(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[path]
}

type memoryObject struct {
	opener  *MemoryOpener
	path    string
	symbols map[string]any
}

func (o *memoryObject) Lookup(symbol string) (any, error) {
	sym, ok := o.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found in %s", symbol, o.path)
	}
	return sym, nil
}

func (o *memoryObject) Close() error {
	o.opener.mu.Lock()
	defer o.opener.mu.Unlock()
	o.opener.closed[o.path]++
	return o.opener.failing[o.path]
}
