package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// Backend selects how a shared library is opened and decoded.
type Backend string

const (
	// BackendGo loads libraries built with -buildmode=plugin.
	BackendGo Backend = "go"
	// BackendC loads C shared libraries exporting a nyx_declaration record.
	BackendC Backend = "c"
)

// ParseBackend validates s. The empty string means BackendGo.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendGo:
		return BackendGo, nil
	case BackendC:
		return BackendC, nil
	}
	return "", fmt.Errorf("unknown backend %q: must be %q or %q", s, BackendGo, BackendC)
}

// Notify defaults.
const (
	DefaultNamespace     = "/"
	DefaultEvent         = "nyx:loaded"
	DefaultNotifyTimeout = 10 * time.Second
)

// Model is the unified, format-agnostic representation of the host
// configuration.
type Model struct {
	Plugins []*Plugin
	Dirs    []*Dir
	Notify  *Notify
}

// Plugin is a single shared library.
type Plugin struct {
	Name     string
	Path     string
	Backend  Backend
	Optional bool
}

// Dir is a directory scanned for shared libraries. Files are loaded in
// lexical order.
type Dir struct {
	Path     string
	Backend  Backend
	Optional bool
}

// Notify configures the socket.io load announcement.
type Notify struct {
	URL                string
	Namespace          string
	Event              string
	AckEvent           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Merge appends other's plugins and directories to m. A notify block in
// other replaces the one in m.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	m.Plugins = append(m.Plugins, other.Plugins...)
	m.Dirs = append(m.Dirs, other.Dirs...)
	if other.Notify != nil {
		m.Notify = other.Notify
	}
}

// ResolvePaths makes every relative plugin and directory path relative to
// baseDir, usually the directory of the file that declared it.
func (m *Model) ResolvePaths(baseDir string) {
	for _, p := range m.Plugins {
		p.Path = resolve(baseDir, p.Path)
	}
	for _, d := range m.Dirs {
		d.Path = resolve(baseDir, d.Path)
	}
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// Normalize fills defaults and validates the model.
func (m *Model) Normalize() error {
	var errs []error
	seen := make(map[string]struct{}, len(m.Plugins))

	for i, p := range m.Plugins {
		if p.Path == "" {
			errs = append(errs, fmt.Errorf("plugin %d (%q): path is required", i, p.Name))
		}
		if p.Name == "" {
			p.Name = p.Path
		}
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Errorf("plugin %q is declared more than once", p.Name))
		}
		seen[p.Name] = struct{}{}

		b, err := ParseBackend(string(p.Backend))
		if err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: %w", p.Name, err))
		}
		p.Backend = b
	}

	for i, d := range m.Dirs {
		if d.Path == "" {
			errs = append(errs, fmt.Errorf("directory %d: path is required", i))
		}
		b, err := ParseBackend(string(d.Backend))
		if err != nil {
			errs = append(errs, fmt.Errorf("directory %q: %w", d.Path, err))
		}
		d.Backend = b
	}

	if n := m.Notify; n != nil {
		if n.URL == "" {
			errs = append(errs, errors.New("notify: url is required"))
		}
		if n.Namespace == "" {
			n.Namespace = DefaultNamespace
		}
		if n.Event == "" {
			n.Event = DefaultEvent
		}
		if n.Timeout <= 0 {
			n.Timeout = DefaultNotifyTimeout
		}
	}

	return errors.Join(errs...)
}
