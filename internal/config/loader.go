package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/forgeline/internal/dispatch"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses service configuration from a file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	interpolated := interpolateEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolated), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults merges default values into config where not explicitly set.
func applyDefaults(cfg *Config) {
	defaults := Defaults()

	if cfg.Service.Name == "" {
		cfg.Service.Name = defaults.Service.Name
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = defaults.Service.LogLevel
	}
	if cfg.Service.PidFile == "" {
		cfg.Service.PidFile = defaults.Service.PidFile
	}
	if cfg.Manifest.Path == "" {
		cfg.Manifest.Path = defaults.Manifest.Path
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaults.Database.Path
	}
	if cfg.Webhooks.Listen == "" {
		cfg.Webhooks.Listen = defaults.Webhooks.Listen
	}
	if cfg.Backends == nil {
		cfg.Backends = make(map[string]BackendConfig)
	}
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Service.LogLevel] {
		return fmt.Errorf("service.log_level must be one of: debug, info, warn, error (got %q)", cfg.Service.LogLevel)
	}

	if cfg.Manifest.Path == "" {
		return fmt.Errorf("manifest.path is required")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	for name, backend := range cfg.Backends {
		if !knownBackend(name) {
			return fmt.Errorf("backends.%s: unknown backend (known: %v)", name, KnownBackends)
		}
		if backend.MaxInFlight < 0 {
			return fmt.Errorf("backends.%s.max_in_flight must not be negative", name)
		}
		if backend.MaxAttempts < 0 {
			return fmt.Errorf("backends.%s.max_attempts must not be negative", name)
		}
	}

	for i, ep := range cfg.Webhooks.Endpoints {
		if ep.Forge != "github" && ep.Forge != "gitlab" {
			return fmt.Errorf("webhooks.endpoints[%d].forge must be github or gitlab (got %q)", i, ep.Forge)
		}
		if envVarPattern.MatchString(ep.Secret) {
			matches := envVarPattern.FindStringSubmatch(ep.Secret)
			if len(matches) > 1 {
				return fmt.Errorf("webhooks.endpoints[%d].secret: environment variable ${%s} is not set", i, matches[1])
			}
			return fmt.Errorf("webhooks.endpoints[%d].secret: unresolved environment variable", i)
		}
	}

	return nil
}

// DispatchLimits converts backend settings into dispatcher limits, filling
// defaults for anything unset.
func (c *Config) DispatchLimits() map[string]dispatch.Limits {
	out := make(map[string]dispatch.Limits, len(c.Backends))
	for name, backend := range c.Backends {
		l := dispatch.DefaultLimits()
		if backend.MaxInFlight > 0 {
			l.MaxInFlight = backend.MaxInFlight
		}
		if backend.MaxAttempts > 0 {
			l.MaxAttempts = backend.MaxAttempts
		}
		if backend.BackoffBase > 0 {
			l.BackoffBase = backend.BackoffBase
		}
		if backend.CallTimeout > 0 {
			l.CallTimeout = backend.CallTimeout
		}
		out[name] = l
	}
	return out
}

func knownBackend(name string) bool {
	for _, known := range KnownBackends {
		if name == known {
			return true
		}
	}
	return false
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is (not expanded).
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}
