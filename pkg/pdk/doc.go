// Package pdk is the plugin development kit: tools to exercise a plugin's
// declaration before shipping it as a shared object.
//
// MemoryOpener serves declarations from memory, so a host or a plugin can be
// tested through the real load protocol without -buildmode=plugin. Check runs
// one declaration through a fresh registry and reports what it registered.
package pdk
