package brave

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/tools/web_search/models"
)

const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// brave rejects counts above 20
const maxCount = 20

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

func (s Search) Search(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	count := k
	if count > maxCount {
		count = maxCount
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(count))
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.ApiKey,
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.client.DoJSON(ctx, "GET", s.Endpoint+"?"+params.Encode(), headers, nil, &raw); err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}

	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out, nil
}
