package app

import (
	"context"
	"strings"

	"github.com/andrea-alfonsi/nyx/internal/config"
	"github.com/andrea-alfonsi/nyx/pkg/cabi"
	"github.com/andrea-alfonsi/nyx/pkg/command"
	"github.com/andrea-alfonsi/nyx/pkg/registry"
)

// bindCommand turns an exported C function of type
// `const char *(const char *)` into a Command. The arguments are joined with
// single spaces into the function's only parameter.
func bindCommand(f cabi.Func) command.Command {
	fn := cabi.StringFunc(f)
	return command.Func(func(_ context.Context, args []string) (string, error) {
		return fn(strings.Join(args, " ")), nil
	})
}

func defaultBackends() map[config.Backend]registry.Backend[command.Command] {
	return map[config.Backend]registry.Backend[command.Command]{
		config.BackendGo: registry.GoBackend[command.Command](),
		config.BackendC: {
			Opener:   cabi.Opener(),
			Decode:   cabi.Decoder(bindCommand),
			Versions: cabi.Versions(),
		},
	}
}
