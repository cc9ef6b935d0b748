// Package config resolves the serve command's runtime configuration from
// flags, environment variables and sensible defaults.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Transport is the MCP wire transport the server exposes.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportSSE   Transport = "sse"
)

// ExternalRunner names the external reviewer subprocess family to invoke.
// Empty selects self-review mode.
type ExternalRunner string

const (
	ExternalRunnerNone   ExternalRunner = ""
	ExternalRunnerClaude ExternalRunner = "claude"
)

// DefaultPort is the SSE transport's default listen port.
const DefaultPort = 8000

// Config is the fully resolved set of serve-time settings.
type Config struct {
	Path             string
	NoQualityGate    bool
	Transport        Transport
	Port             int
	ExternalRunner    ExternalRunner
}

// Load resolves Config from viper, which cobra has already bound to the
// serve command's flags, and applies defaults and environment fallbacks in
// priority order: flag, then environment, then default.
func Load() (Config, error) {
	cfg := Config{
		Path:          viper.GetString("path"),
		NoQualityGate: viper.GetBool("no-quality-gate"),
		Transport:     Transport(viper.GetString("transport")),
		Port:          viper.GetInt("port"),
		ExternalRunner: ExternalRunner(viper.GetString("external-runner")),
	}

	if cfg.Path == "" {
		cfg.Path = "."
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if env := os.Getenv("DEEPWORK_EXTERNAL_RUNNER"); env != "" && cfg.ExternalRunner == ExternalRunnerNone {
		cfg.ExternalRunner = ExternalRunner(env)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the resolved configuration is internally consistent.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("invalid --transport %q: must be %q or %q", c.Transport, TransportStdio, TransportSSE)
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("--path %q does not exist: %w", c.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("--path %q is not a directory", c.Path)
	}

	switch c.ExternalRunner {
	case ExternalRunnerNone, ExternalRunnerClaude:
	default:
		return fmt.Errorf("unsupported --external-runner %q", c.ExternalRunner)
	}

	return nil
}
