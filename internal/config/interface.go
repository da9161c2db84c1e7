package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model and merges everything into a single Model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
