package abi

import "runtime"

// CoreVersion is the version of the loading protocol.
const CoreVersion = "0.3.0"

// HostRuntimeVersion identifies the Go toolchain and target the binary was
// linked for, e.g. "go1.24.5 gc linux/amd64".
var HostRuntimeVersion = runtime.Version() + " " + runtime.Compiler + " " + runtime.GOOS + "/" + runtime.GOARCH

// Versions is the pair of identifiers a declaration must match.
type Versions struct {
	Core        string
	HostRuntime string
}

// Current returns the versions this binary was built with.
func Current() Versions {
	return Versions{Core: CoreVersion, HostRuntime: HostRuntimeVersion}
}

// Matches reports whether both identifiers are byte-for-byte equal.
func (v Versions) Matches(other Versions) bool {
	return v.Core == other.Core && v.HostRuntime == other.HostRuntime
}
