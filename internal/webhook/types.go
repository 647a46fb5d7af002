package webhook

import (
	"context"

	"github.com/mattjoyce/forgeline/internal/events"
	"github.com/mattjoyce/forgeline/internal/service"
)

// EventHandler is the piece of the hosting service the webhook server feeds.
type EventHandler interface {
	HandleEvent(ctx context.Context, forge, eventType string, payload []byte) (*service.Receipt, error)
}

// StatusSource backs the read-only status feed endpoint. The hub satisfies it.
type StatusSource interface {
	SnapshotSince(lastSeq int64) []events.StatusEvent
}

// Config holds webhook server configuration.
type Config struct {
	Listen    string
	Endpoints []EndpointConfig
}

// EndpointConfig defines one forge ingress endpoint, served at
// /webhook/<forge>.
type EndpointConfig struct {
	// Forge selects the payload dialect ("github", "gitlab") and the event
	// type header read from requests.
	Forge string

	// Secret is the shared secret: the HMAC key for github, the token
	// value itself for gitlab.
	Secret string

	// SignatureHeader is the HTTP header carrying the delivery credential.
	// GitHub-style forges send an HMAC-SHA256 digest of the body in
	// "X-Hub-Signature-256"; GitLab sends the shared secret itself in
	// "X-Gitlab-Token".
	SignatureHeader string

	// MaxBodySize is the maximum allowed request body size in bytes (default: 1MB)
	MaxBodySize int64
}

// ErrorResponse is the JSON response for webhook errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
)

// eventTypeHeader returns the header naming the event type for a forge.
func eventTypeHeader(forge string) string {
	switch forge {
	case "gitlab":
		return "X-Gitlab-Event"
	default:
		return "X-GitHub-Event"
	}
}
