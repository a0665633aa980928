package web_search

import (
	"context"
	"errors"

	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/tools/web_search/brave"
	"github.com/mohammad-safakhou/careergraph/tools/web_search/models"
	"github.com/mohammad-safakhou/careergraph/tools/web_search/serper"
)

type WebSearcher interface {
	Search(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported web search provider")
	ErrMissingAPIKey       = errors.New("web search api key not set")
)

// New builds the searcher for provider. client carries timeout and retry
// policy and is shared by every request.
func New(provider Provider, apiKey string, client *helpers.HTTPClient) (WebSearcher, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch provider {
	case SerperProvider:
		return serper.New(apiKey, client), nil
	case BraveProvider:
		return brave.New(apiKey, client), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
