package webhook

import (
	"fmt"

	"github.com/mattjoyce/forgeline/internal/config"
)

// FromGlobalConfig converts config.WebhooksConfig to webhook.Config,
// filling per-forge defaults.
func FromGlobalConfig(wc config.WebhooksConfig) (Config, error) {
	cfg := Config{
		Listen:    wc.Listen,
		Endpoints: make([]EndpointConfig, len(wc.Endpoints)),
	}

	for i, ep := range wc.Endpoints {
		if ep.Secret == "" {
			return Config{}, fmt.Errorf("webhook endpoint %q: no secret configured", ep.Forge)
		}

		header := ep.SignatureHeader
		if header == "" {
			switch ep.Forge {
			case "gitlab":
				header = "X-Gitlab-Token"
			default:
				header = "X-Hub-Signature-256"
			}
		}

		cfg.Endpoints[i] = EndpointConfig{
			Forge:           ep.Forge,
			Secret:          ep.Secret,
			SignatureHeader: header,
			MaxBodySize:     ep.MaxBodySize,
		}
	}

	return cfg, nil
}
