// Package env provides the built-in `env` command.
package env

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/command"
)

// Declaration registers the `env` command.
var Declaration = command.Export(func(r abi.Registrar[command.Command]) {
	r.RegisterFunction("env", command.Func(OnRunEnv))
})

// OnRunEnv prints KEY=VALUE lines for the named variables, or for the whole
// environment sorted by key when no name is given.
func OnRunEnv(ctx context.Context, args []string) (string, error) {
	return run(os.LookupEnv, os.Environ, args)
}

func run(lookup func(string) (string, bool), environ func() []string, args []string) (string, error) {
	if len(args) == 0 {
		lines := slices.Clone(environ())
		slices.Sort(lines)
		return strings.Join(lines, "\n"), nil
	}

	lines := make([]string, 0, len(args))
	for _, name := range args {
		v, ok := lookup(name)
		if !ok {
			return "", fmt.Errorf("variable %q is not set", name)
		}
		lines = append(lines, name+"="+v)
	}
	return strings.Join(lines, "\n"), nil
}
