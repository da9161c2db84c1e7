package app

import (
	"errors"
	"fmt"

	"github.com/andrea-alfonsi/nyx/internal/config"
)

// Commands understood by App.Run.
const (
	CommandList  = "list"
	CommandCall  = "call"
	CommandServe = "serve"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // .hcl/.toml files or directories
	PluginPaths []string // shared objects given on the command line
	PluginDirs  []string
	Backend     string // backend for PluginPaths and PluginDirs
	Builtins    bool   // load the commands compiled into the binary first

	Command string
	Args    []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandList
	}

	switch cfg.Command {
	case CommandList:
	case CommandCall:
		if len(cfg.Args) == 0 {
			return nil, errors.New("call requires a function name")
		}
	case CommandServe:
		if cfg.HealthcheckPort <= 0 {
			return nil, errors.New("serve requires a positive healthcheck port")
		}
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}

	b, err := config.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	cfg.Backend = string(b)

	return &cfg, nil
}
