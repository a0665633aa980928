package provider

import (
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/careergraph/config"
	"github.com/mohammad-safakhou/careergraph/internal/agent/core"
	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	anthropic_provider "github.com/mohammad-safakhou/careergraph/provider/anthropic"
	openai_provider "github.com/mohammad-safakhou/careergraph/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

var ErrMissingAPIKey = errors.New("llm api key not set")

// New creates the completion client selected by cfg.
func New(cfg config.LLMConfig) (core.Completer, error) {
	return NewWithHTTP(cfg, helpers.NewHTTPClient(cfg.Timeout, cfg.MaxRetries, 0))
}

// NewWithHTTP is New with an explicit transport, used by tests.
func NewWithHTTP(cfg config.LLMConfig, http *helpers.HTTPClient) (core.Completer, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, ErrMissingAPIKey)
	}
	switch Client(cfg.Provider) {
	case OpenAI, "":
		return openai_provider.NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature, cfg.MaxTokens, http), nil
	case Anthropic:
		return anthropic_provider.NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Temperature, cfg.MaxTokens, http), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
