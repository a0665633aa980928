package serper

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/tools/web_search/models"
)

const DefaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	ApiKey   string
	Endpoint string
	client   *helpers.HTTPClient
}

func New(apiKey string, client *helpers.HTTPClient) Search {
	if client == nil {
		client = helpers.NewHTTPClient(0, 0, 0)
	}
	return Search{ApiKey: apiKey, Endpoint: DefaultEndpoint, client: client}
}

type organic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q, "num": k}
	headers := map[string]string{"X-API-KEY": s.ApiKey}

	var raw struct {
		Organic []organic `json:"organic"`
	}
	if err := s.client.DoJSON(ctx, "POST", s.Endpoint, headers, payload, &raw); err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	out := make([]models.Result, 0, len(raw.Organic))
	for _, it := range raw.Organic {
		if len(out) >= k {
			break
		}
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		out = append(out, models.Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
	}
	return out, nil
}
