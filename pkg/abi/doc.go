// Package abi defines the contract shared by a host and the plugins it loads.
//
// Every plugin binary exports one Declaration under a well-known symbol. The
// declaration is plain data: two version strings and a registration entry
// point. The host reads it once per load, compares both versions byte for byte
// against its own, and only then calls Register with a Registrar that collects
// the plugin's named callables.
//
// # Writing a plugin
//
//	package main
//
//	import (
//	    "github.com/andrea-alfonsi/nyx/pkg/abi"
//	    "github.com/andrea-alfonsi/nyx/pkg/command"
//	)
//
//	var NyxCommands = abi.Export(func(r abi.Registrar[command.Command]) {
//	    r.RegisterFunction("echo", command.Func(echo))
//	})
//
// The variable must be exported and its name must match the symbol the host
// looks up (DeclarationSymbol unless the host chose a per-slot symbol).
//
// # Versions
//
// CoreVersion identifies the loading protocol and is a constant, so it is
// embedded verbatim in every plugin built against this package.
// HostRuntimeVersion identifies the toolchain the binary was linked with.
// A mismatch on either is defined to mean an incompatible record layout and
// always blocks the load.
//
// A Go plugin shares the host's copy of this package, so the
// HostRuntimeVersion it declares is always the host's own. The host-runtime
// half is enforced by the Go loader instead: plugin.Open refuses binaries
// whose shared packages were built differently, and the registry reports
// that refusal as a version mismatch. C plugins embed their runtime string
// verbatim and are compared like any other record.
package abi
