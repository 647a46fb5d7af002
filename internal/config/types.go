package config

import "time"

// Config represents the complete forgeline service configuration. This is the
// host-side config; the packaging manifest it serves lives in its own file
// and package (internal/manifest).
type Config struct {
	Service  ServiceConfig            `yaml:"service"`
	Manifest ManifestConfig           `yaml:"manifest"`
	Database DatabaseConfig           `yaml:"database"`
	Webhooks WebhooksConfig           `yaml:"webhooks"`
	Backends map[string]BackendConfig `yaml:"backends,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	PidFile  string `yaml:"pid_file,omitempty"`
}

// ManifestConfig locates the packaging manifest and controls reload behavior.
type ManifestConfig struct {
	Path string `yaml:"path"`

	// Watch enables hot reload on file change.
	Watch bool `yaml:"watch,omitempty"`

	// VerifyLock refuses startup when the manifest drifted from its
	// .manifest.lock hash.
	VerifyLock bool `yaml:"verify_lock,omitempty"`
}

// DatabaseConfig defines dispatch report storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebhooksConfig defines webhook listener settings.
type WebhooksConfig struct {
	Listen    string            `yaml:"listen"`
	Endpoints []WebhookEndpoint `yaml:"endpoints"`
}

// WebhookEndpoint defines one forge ingress endpoint.
type WebhookEndpoint struct {
	// Forge selects the payload dialect: "github" or "gitlab".
	Forge string `yaml:"forge"`

	// Secret is the shared secret: the HMAC key for github, the token
	// value itself for gitlab.
	Secret string `yaml:"secret"`

	// SignatureHeader is the HTTP header carrying the delivery credential,
	// e.g. "X-Hub-Signature-256" or "X-Gitlab-Token".
	SignatureHeader string `yaml:"signature_header"`

	// MaxBodySize caps the request body in bytes (default 1MB).
	MaxBodySize int64 `yaml:"max_body_size,omitempty"`
}

// BackendConfig bounds one backend's dispatch behavior. Keys in
// Config.Backends are backend names: copr, distgit, koji, bodhi.
type BackendConfig struct {
	MaxInFlight int64         `yaml:"max_in_flight,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
	BackoffBase time.Duration `yaml:"backoff_base,omitempty"`
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`
}

// KnownBackends lists the backend names Config.Backends may configure.
var KnownBackends = []string{"copr", "distgit", "koji", "bodhi"}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "forgeline",
			LogLevel: "info",
			PidFile:  "./data/forgeline.pid",
		},
		Manifest: ManifestConfig{
			Path:  "./forgeline.yaml",
			Watch: true,
		},
		Database: DatabaseConfig{
			Path: "./data/dispatch.db",
		},
		Webhooks: WebhooksConfig{
			Listen: "127.0.0.1:8787",
		},
		Backends: make(map[string]BackendConfig),
	}
}
