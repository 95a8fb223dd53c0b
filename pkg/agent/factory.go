package agent

import (
	"context"
	"fmt"

	"synergy/pkg/agent/llm"
	"synergy/pkg/agent/llm/anthropic"
	"synergy/pkg/agent/llm/google"
	"synergy/pkg/agent/llm/openai"
	"synergy/pkg/config"
	"synergy/pkg/metrics"
)

// meteredClient counts completion requests per provider and outcome.
type meteredClient struct {
	llm.Client
	provider string
}

func (m *meteredClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	resp, err := m.Client.Complete(ctx, in)
	if err != nil {
		metrics.RecordLLMRequest(m.provider, "error")
		return resp, err
	}
	metrics.RecordLLMRequest(m.provider, "success")
	return resp, nil
}

// NewClient builds the provider client selected by the configuration and
// wraps it with the default retry policy.
func NewClient(cfg *config.Config) (llm.Client, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s", cfg.Provider)
	}

	var raw llm.Client
	switch cfg.Provider {
	case config.ProviderGoogle:
		raw = google.NewClient(apiKey, cfg.Model)
	case config.ProviderOpenAI:
		raw = openai.NewClient(apiKey, cfg.Model)
	case config.ProviderAnthropic:
		raw = anthropic.NewClient(apiKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	retried := llm.NewRetryableClient(raw, llm.DefaultRetryConfig)
	return &meteredClient{Client: retried, provider: cfg.Provider}, nil
}
