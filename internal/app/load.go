package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/internal/fsutil"
	"github.com/andrea-alfonsi/nyx/internal/hcl_adapter"
	"github.com/andrea-alfonsi/nyx/internal/toml_adapter"
)

// LoadConfig builds the plugin model from the configuration files and the
// plugins given on the command line, in that order.
func (a *App) LoadConfig(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration...", "paths", a.config.ConfigPaths)

	model := &config.Model{}
	for _, path := range a.config.ConfigPaths {
		loaders, err := loadersFor(path)
		if err != nil {
			return err
		}
		for _, loader := range loaders {
			part, err := loader.Load(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			model.Merge(part)
		}
	}

	backend := config.Backend(a.config.Backend)
	for _, p := range a.config.PluginPaths {
		model.Plugins = append(model.Plugins, &config.Plugin{Path: p, Backend: backend})
	}
	for _, d := range a.config.PluginDirs {
		model.Dirs = append(model.Dirs, &config.Dir{Path: d, Backend: backend})
	}

	if err := model.Normalize(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.model = model
	logger.Debug("Configuration loaded.", "plugins", len(model.Plugins), "directories", len(model.Dirs))
	return nil
}

// loadersFor picks the loaders for a configuration path. Directories are
// read by every loader, each picking up its own files.
func loadersFor(path string) ([]config.Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return []config.Loader{hcl_adapter.NewLoader()}, nil
	case ".toml":
		return []config.Loader{toml_adapter.NewLoader()}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("unsupported configuration file %s: expected .hcl or .toml", path)
	}
	return []config.Loader{hcl_adapter.NewLoader(), toml_adapter.NewLoader()}, nil
}

// LoadPlugins loads every plugin of the model, then every library found in
// the model's directories. Failures of optional entries are logged and
// skipped; any other failure aborts loading.
func (a *App) LoadPlugins(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading plugins...", "plugins", len(a.model.Plugins), "directories", len(a.model.Dirs))

	if a.config.Builtins {
		if err := a.loadBuiltins(ctx); err != nil {
			return err
		}
	}

	for _, p := range a.model.Plugins {
		if err := a.loadLibrary(ctx, p.Path, p.Backend); err != nil {
			if p.Optional {
				logger.Warn("Skipping optional plugin.", "plugin", p.Name, "path", p.Path, "error", err)
				continue
			}
			return fmt.Errorf("failed to load plugin %q: %w", p.Name, err)
		}
	}

	for _, d := range a.model.Dirs {
		files, err := fsutil.FindFilesByExtension(d.Path, libraryExt(d.Backend))
		if err != nil {
			if d.Optional {
				logger.Warn("Skipping optional plugin directory.", "path", d.Path, "error", err)
				continue
			}
			return fmt.Errorf("failed to scan plugin directory %s: %w", d.Path, err)
		}
		logger.Debug("Scanned plugin directory.", "path", d.Path, "libraries", len(files))

		for _, f := range files {
			if err := a.loadLibrary(ctx, f, d.Backend); err != nil {
				if d.Optional {
					logger.Warn("Skipping library from optional directory.", "path", f, "error", err)
					continue
				}
				return fmt.Errorf("failed to load library %s: %w", f, err)
			}
		}
	}

	logger.Info("Plugins loaded.", "functions", a.registry.Len(), "libraries", len(a.registry.Libraries()))
	return nil
}

func (a *App) loadLibrary(ctx context.Context, path string, name config.Backend) error {
	b, ok := a.backends[name]
	if !ok {
		return fmt.Errorf("no %q backend available", name)
	}
	return a.registry.LoadWith(ctx, path, b)
}

// libraryExt is the file extension searched for in plugin directories. Go
// plugins are always built as .so files.
func libraryExt(b config.Backend) string {
	if b == config.BackendC {
		return fsutil.HostSharedLibraryExt()
	}
	return ".so"
}
