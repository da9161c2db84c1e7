package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/internal/ctxlog"
	"github.com/andrea-alfonsi/nyx/internal/fsutil"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// fileRoot is a struct used to decode all top-level blocks from a file.
type fileRoot struct {
	Plugins []*pluginBlock `hcl:"plugin,block"`
	Dirs    []*dirBlock    `hcl:"directory,block"`
	Notify  *notifyBlock   `hcl:"notify,block"`
}

type pluginBlock struct {
	Name     string `hcl:"name,label"`
	Path     string `hcl:"path"`
	Backend  string `hcl:"backend,optional"`
	Optional bool   `hcl:"optional,optional"`
}

type dirBlock struct {
	Path     string `hcl:"path"`
	Backend  string `hcl:"backend,optional"`
	Optional bool   `hcl:"optional,optional"`
}

type notifyBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	AckEvent           string `hcl:"ack_event,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// Load parses every .hcl file found under paths and merges them into one
// model. Relative plugin paths are resolved against the declaring file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := l.evalContext()
	model := &config.Model{}

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		part, err := translate(&root)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration in %s: %w", file, err)
		}
		part.ResolvePaths(filepath.Dir(file))
		model.Merge(part)
	}

	if err := model.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("HCL loading complete.", "plugins", len(model.Plugins), "directories", len(model.Dirs), "notify", model.Notify != nil)
	return model, nil
}

func translate(root *fileRoot) (*config.Model, error) {
	m := &config.Model{}
	for _, p := range root.Plugins {
		m.Plugins = append(m.Plugins, &config.Plugin{
			Name:     p.Name,
			Path:     p.Path,
			Backend:  config.Backend(p.Backend),
			Optional: p.Optional,
		})
	}
	for _, d := range root.Dirs {
		m.Dirs = append(m.Dirs, &config.Dir{
			Path:     d.Path,
			Backend:  config.Backend(d.Backend),
			Optional: d.Optional,
		})
	}
	if n := root.Notify; n != nil {
		var timeout time.Duration
		if n.Timeout != "" {
			var err error
			if timeout, err = time.ParseDuration(n.Timeout); err != nil {
				return nil, fmt.Errorf("notify: invalid timeout: %w", err)
			}
		}
		m.Notify = &config.Notify{
			URL:                n.URL,
			Namespace:          n.Namespace,
			Event:              n.Event,
			AckEvent:           n.AckEvent,
			Timeout:            timeout,
			InsecureSkipVerify: n.InsecureSkipVerify,
		}
	}
	return m, nil
}

// evalContext exposes the environment and host facts to expressions.
func (l *Loader) evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range l.environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
			"host": cty.ObjectVal(map[string]cty.Value{
				"goos":   cty.StringVal(runtime.GOOS),
				"goarch": cty.StringVal(runtime.GOARCH),
				"ext":    cty.StringVal(fsutil.HostSharedLibraryExt()),
			}),
		},
		Functions: map[string]function.Function{
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		candidates := []string{path}
		if info.IsDir() {
			if candidates, err = fsutil.FindFilesByExtension(path, ".hcl"); err != nil {
				return nil, err
			}
		}
		for _, f := range candidates {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
