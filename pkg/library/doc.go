// Package library wraps dynamically loaded binaries in shared, reference
// counted handles.
//
// An Opener turns a path into an Object, the OS-level load handle. Open wraps
// the Object in a Handle that starts with one reference. Every holder that
// needs the code to stay mapped takes its own reference with Acquire and gives
// it back with Release; the Object is closed exactly once, when the last
// reference is released.
//
// Two backends are provided: GoPlugin, over the standard library's plugin
// package, and the C-ABI backend in package cabi. The Go runtime never unmaps
// a Go plugin, so closing a Go plugin object only marks the handle as
// released.
package library
