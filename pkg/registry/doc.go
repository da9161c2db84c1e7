// Package registry loads plugins and keeps the callables they export
// available under string names.
//
// A Registry is generic over the prototype T, the capability every plugin
// for a given slot must provide. Load runs the whole protocol for one binary:
//
//  1. open the binary into a library.Handle
//  2. look up the declaration symbol and decode it
//  3. compare both version strings with the registry's expected versions
//  4. hand a fresh Registrar to the plugin's Register entry point
//  5. wrap each collected callable in a Proxy and merge it into the registry
//  6. retain the handle for the registry's lifetime
//
// Steps 1 to 3 fail with IOError, SymbolNotFoundError or VersionMismatchError
// and leave the registry untouched. Step 4 runs code the host cannot verify;
// a panic raised there is not recovered.
//
// # Backends
//
// A Backend bundles the Opener, the Decoder and the expected versions. New
// uses the Go plugin backend unless told otherwise; LoadWith loads a single
// binary through another backend, so Go plugins and C shared objects can
// share one registry.
//
// # Ownership
//
// Every Proxy holds its own reference on the handle that produced it, and the
// registry holds one more per loaded binary. A binary whose names were all
// overwritten by later loads stays mapped until the registry is closed. A
// Proxy obtained from Get keeps its binary mapped for as long as the Proxy is
// reachable, even after Close.
//
// # Concurrency
//
// Registry does no locking. Concurrent Load calls, or a Load concurrent with
// Get or Functions, are data races unless the caller serialises them. Use
// Synchronized when the registry is shared between goroutines.
//
// # Name collisions
//
// The last load wins: registering a name that already exists replaces the
// previous Proxy. The replacement is logged at debug level.
package registry
