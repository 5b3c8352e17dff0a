package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/schema"
	"github.com/flowbit/nl2sql/internal/sqltext"
	"github.com/rs/zerolog/log"
)

const defaultAnthropicModel = "claude-sonnet-4-6"

// AnthropicClient generates SQL through the Anthropic Messages API or a compatible provider
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicClient creates a single-attempt client; SDK retries are disabled
func NewAnthropicClient(cfg GeneratorConfig) (*AnthropicClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	// The OpenAI-style default base URL is meaningless here
	if cfg.BaseURL != "" && cfg.BaseURL != defaultOpenAIBaseURL {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// GenerateSQL sends one Messages request and returns the extracted SQL
func (a *AnthropicClient) GenerateSQL(ctx context.Context, question string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(a.model)),
		MaxTokens:   anthropic.F(int64(a.maxTokens)),
		Temperature: anthropic.F(a.temperature),
		System: anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(schema.SystemPrompt()),
		}),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(question)),
		}),
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			msg := fmt.Sprintf("LLM provider error (%d)", apiErr.StatusCode)
			var pe providerError
			if json.Unmarshal([]byte(apiErr.JSON.RawJSON()), &pe) == nil && pe.Error != nil && pe.Error.Message != "" {
				msg += ": " + pe.Error.Message
			}
			log.Warn().Int("status", apiErr.StatusCode).Str("model", a.model).Msg("messages request rejected")
			return "", apperr.UpstreamError(apiErr.StatusCode, msg)
		}
		return "", apperr.UpstreamUnavailable("failed to connect to LLM provider", err)
	}

	var text strings.Builder
	found := false
	for _, block := range resp.Content {
		if b, ok := block.AsUnion().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
			found = true
		}
	}
	if !found {
		return "", apperr.UpstreamProtocol("unexpected LLM provider response", nil)
	}

	log.Debug().
		Str("stop_reason", string(resp.StopReason)).
		Int64("output_tokens", resp.Usage.OutputTokens).
		Msg("messages response")

	return strings.TrimSpace(sqltext.ExtractSQL(text.String())), nil
}
