package library

import (
	"errors"
	"fmt"
	"plugin"
	"strings"
)

// ErrIncompatibleBuild is returned by the Go plugin opener when the plugin
// was linked against a different toolchain or different versions of the
// packages it shares with the host.
var ErrIncompatibleBuild = errors.New("plugin built against a different host runtime")

// buildMismatch is the message the Go runtime uses when a plugin's package
// hashes differ from the host's.
const buildMismatch = "plugin was built with a different version of package"

// Object is an opened dynamic binary.
type Object interface {
	// Lookup resolves an exported symbol.
	Lookup(symbol string) (any, error)
	// Close releases the OS-level mapping. It is called at most once.
	Close() error
}

// Opener opens dynamic binaries.
type Opener interface {
	Open(path string) (Object, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Object, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Object, error) {
	return f(path)
}

// GoPlugin returns an Opener for binaries built with -buildmode=plugin.
func GoPlugin() Opener {
	return OpenerFunc(func(path string) (Object, error) {
		p, err := plugin.Open(path)
		if err != nil {
			return nil, classifyOpenError(err)
		}
		return &goPlugin{p: p}, nil
	})
}

type goPlugin struct {
	p *plugin.Plugin
}

func (g *goPlugin) Lookup(symbol string) (any, error) {
	sym, err := g.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close is a no-op: the Go runtime keeps plugins mapped for the process lifetime.
func (g *goPlugin) Close() error {
	return nil
}

// classifyOpenError marks build mismatches reported by plugin.Open with
// ErrIncompatibleBuild.
func classifyOpenError(err error) error {
	if strings.Contains(err.Error(), buildMismatch) {
		return fmt.Errorf("%w: %w", ErrIncompatibleBuild, err)
	}
	return err
}
