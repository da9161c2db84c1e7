// Command reverse is a test plugin that overrides "upper" from the strings plugin.
package main

import (
	"github.com/andrea-alfonsi/nyx/pkg/abi"
)

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

var NyxDeclaration = abi.Export(func(r abi.Registrar[func(string) string]) {
	r.RegisterFunction("reverse", reverse)
	r.RegisterFunction("upper", reverse)
})

func main() {}
