// Command strings is a test plugin exporting string transforms.
package main

import (
	"strings"

	"github.com/andrea-alfonsi/nyx/pkg/abi"
)

var NyxDeclaration = abi.Export(func(r abi.Registrar[func(string) string]) {
	r.RegisterFunction("upper", strings.ToUpper)
	r.RegisterFunction("trim", strings.TrimSpace)
})

func main() {}
