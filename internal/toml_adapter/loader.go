// Package toml_adapter loads the host configuration from TOML files.
//
//	[[plugin]]
//	name    = "strings"
//	path    = "$NYX_HOME/plugins/strings.so"
//	backend = "go"
//
//	[[directory]]
//	path     = "plugins"
//	optional = true
//
//	[notify]
//	url       = "ws://localhost:3000/socket.io/"
//	ack_event = "nyx:ack"
//	timeout   = "5s"
//
// Environment variables in paths and the notify URL are expanded with
// os.Expand semantics. Unknown keys are rejected.
package toml_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/internal/fsutil"
)

// Loader is the TOML implementation of the config.Loader interface.
type Loader struct {
	getenv func(string) string
}

// NewLoader creates a new TOML configuration loader.
func NewLoader() *Loader {
	return &Loader{getenv: os.Getenv}
}

type file struct {
	Plugins []pluginTable `toml:"plugin"`
	Dirs    []dirTable    `toml:"directory"`
	Notify  *notifyTable  `toml:"notify"`
}

type pluginTable struct {
	Name     string `toml:"name"`
	Path     string `toml:"path"`
	Backend  string `toml:"backend"`
	Optional bool   `toml:"optional"`
}

type dirTable struct {
	Path     string `toml:"path"`
	Backend  string `toml:"backend"`
	Optional bool   `toml:"optional"`
}

type notifyTable struct {
	URL                string `toml:"url"`
	Namespace          string `toml:"namespace"`
	Event              string `toml:"event"`
	AckEvent           string `toml:"ack_event"`
	Timeout            string `toml:"timeout"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Load parses every .toml file found under paths and merges them into one
// model. Relative plugin paths are resolved against the declaring file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("TOML loader started.", "path_count", len(paths))

	model := &config.Model{}
	for _, path := range paths {
		files, err := findTOMLFiles(path)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			part, err := l.loadFile(f)
			if err != nil {
				return nil, err
			}
			model.Merge(part)
		}
	}

	if err := model.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("TOML loading complete.", "plugins", len(model.Plugins), "directories", len(model.Dirs), "notify", model.Notify != nil)
	return model, nil
}

func (l *Loader) loadFile(path string) (*config.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse error in %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	m := &config.Model{}
	for _, p := range f.Plugins {
		m.Plugins = append(m.Plugins, &config.Plugin{
			Name:     p.Name,
			Path:     l.expand(p.Path),
			Backend:  config.Backend(p.Backend),
			Optional: p.Optional,
		})
	}
	for _, d := range f.Dirs {
		m.Dirs = append(m.Dirs, &config.Dir{
			Path:     l.expand(d.Path),
			Backend:  config.Backend(d.Backend),
			Optional: d.Optional,
		})
	}
	if n := f.Notify; n != nil {
		var timeout time.Duration
		if n.Timeout != "" {
			if timeout, err = time.ParseDuration(n.Timeout); err != nil {
				return nil, fmt.Errorf("invalid configuration in %s: notify: invalid timeout: %w", path, err)
			}
		}
		m.Notify = &config.Notify{
			URL:                l.expand(n.URL),
			Namespace:          n.Namespace,
			Event:              n.Event,
			AckEvent:           n.AckEvent,
			Timeout:            timeout,
			InsecureSkipVerify: n.InsecureSkipVerify,
		}
	}

	m.ResolvePaths(filepath.Dir(path))
	return m, nil
}

func (l *Loader) expand(s string) string {
	return os.Expand(s, l.getenv)
}

func findTOMLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return fsutil.FindFilesByExtension(path, ".toml")
}
