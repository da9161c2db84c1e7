// Package command defines the plugin slot served by the nyx host: named
// commands that take string arguments and produce text.
package command

import (
	"context"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
)

// Symbol is the declaration symbol command plugins export.
const Symbol = "NyxCommands"

// Command is the capability every command plugin provides.
type Command interface {
	Run(ctx context.Context, args []string) (string, error)
}

// Func adapts an ordinary function to the Command interface.
type Func func(ctx context.Context, args []string) (string, error)

// Run calls f(ctx, args).
func (f Func) Run(ctx context.Context, args []string) (string, error) {
	return f(ctx, args)
}

// Export builds the declaration a command plugin exposes as
//
//	var NyxCommands = command.Export(register)
func Export(register func(abi.Registrar[Command])) abi.Declaration[Command] {
	return abi.Export(register)
}
