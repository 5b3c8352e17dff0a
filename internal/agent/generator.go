package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SQLGenerator turns a natural-language question into candidate SQL.
// Failures are *apperr.Error values of kind UpstreamUnavailable, UpstreamError
// or UpstreamProtocol.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
}

// Provider names accepted by NewGenerator
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// GeneratorConfig holds the settings shared by every provider
type GeneratorConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewGenerator builds the SQLGenerator for cfg.Provider
func NewGenerator(cfg GeneratorConfig) (SQLGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
