// Package config defines the format-agnostic configuration model for the
// plugin host: which libraries to load, how to open them, and where to
// announce the loaded set.
//
// `config.Model` is the single source of truth for the `app` package.
// Concrete loaders for HCL and TOML live in `hcl_adapter` and
// `toml_adapter`.
package config
