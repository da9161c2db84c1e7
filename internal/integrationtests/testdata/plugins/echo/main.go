// Command echo is a Go plugin exporting text commands for the nyx host.
package main

import (
	"context"
	"strings"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
	"github.com/andrea-alfonsi/nyx/pkg/command"
)

// NyxCommands is looked up by the host.
var NyxCommands = command.Export(func(r abi.Registrar[command.Command]) {
	r.RegisterFunction("echo", command.Func(func(_ context.Context, args []string) (string, error) {
		return strings.Join(args, " "), nil
	}))
	r.RegisterFunction("upper", command.Func(func(_ context.Context, args []string) (string, error) {
		return strings.ToUpper(strings.Join(args, " ")), nil
	}))
})

func main() {}
