// Package app contains the core application logic of the nyx plugin host. It
// builds the plugin model from configuration files and flags, loads every
// plugin into a shared registry, announces the result and then lists, calls
// or serves the registered commands. It is decoupled from any specific
// entrypoint like a CLI.
package app
