package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/internal/logger"
	cgruntime "github.com/mohammad-safakhou/careergraph/internal/runtime"
	"github.com/mohammad-safakhou/careergraph/models"
	"github.com/mohammad-safakhou/careergraph/tools/web_search"
	searchmodels "github.com/mohammad-safakhou/careergraph/tools/web_search/models"
)

// coursePlatforms are searched in order until the cap is reached.
var coursePlatforms = []string{"coursera.org", "udemy.com", "edx.org"}

const perPlatform = 2

var (
	docMarkers  = []string{"docs.", "documentation", "guide", "readthedocs", "github.io"}
	bookMarkers = []string{"book", "edition", "author", "published", "isbn"}
)

// Service finds learning resources through a web search provider. It
// satisfies the pipeline's Discoverer: failures are logged and reported as
// an empty result.
type Service struct {
	searcher web_search.WebSearcher
	cache    Cache
	log      *logger.Logger
	metrics  *cgruntime.Metrics
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *cgruntime.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService returns a discovery service. A nil searcher yields a service
// that always finds nothing.
func NewService(searcher web_search.WebSearcher, opts ...Option) *Service {
	s := &Service{searcher: searcher, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover returns at most maxResults resources of kind for topic.
func (s *Service) Discover(ctx context.Context, topic string, kind models.ResourceKind, maxResults int) []models.Resource {
	topic = strings.TrimSpace(topic)
	if s == nil || s.searcher == nil || maxResults <= 0 || topic == "" {
		return []models.Resource{}
	}

	key := cacheKey(kind, maxResults, topic)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.log.Warn("discovery cache read failed", "kind", kind, "error", err)
		case ok:
			s.metrics.Discovery(string(kind), "hit")
			return cached
		}
	}

	found, err := s.search(ctx, topic, kind, maxResults)
	if err != nil {
		s.metrics.Discovery(string(kind), "error")
		s.log.Warn("resource discovery failed", "topic", topic, "kind", kind, "error", err)
		return []models.Resource{}
	}
	if len(found) > maxResults {
		found = found[:maxResults]
	}
	if len(found) == 0 {
		s.metrics.Discovery(string(kind), "empty")
		return []models.Resource{}
	}
	s.metrics.Discovery(string(kind), "miss")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, found); err != nil {
			s.log.Warn("discovery cache write failed", "kind", kind, "error", err)
		}
	}
	return found
}

func (s *Service) search(ctx context.Context, topic string, kind models.ResourceKind, max int) ([]models.Resource, error) {
	switch kind {
	case models.KindVideo:
		return s.videos(ctx, topic, max)
	case models.KindCourse:
		return s.courses(ctx, topic, max)
	case models.KindDocumentation:
		return s.documentation(ctx, topic, max)
	case models.KindBook:
		return s.books(ctx, topic, max)
	default:
		return nil, errors.New("no search strategy for kind " + string(kind))
	}
}

func (s *Service) videos(ctx context.Context, topic string, max int) ([]models.Resource, error) {
	results, err := s.searcher.Search(ctx, topic+" tutorial site:youtube.com", max)
	if err != nil {
		return nil, err
	}
	var out []models.Resource
	for _, r := range results {
		if helpers.HostMatches(r.URL, "youtube.com") || helpers.HostMatches(r.URL, "youtu.be") {
			out = append(out, toResource(r, models.KindVideo, "YouTube"))
		}
	}
	return out, nil
}

// courses queries each platform separately. A platform that errors is
// skipped; the call only fails when every platform did.
func (s *Service) courses(ctx context.Context, topic string, max int) ([]models.Resource, error) {
	var out []models.Resource
	var errs []error
	for _, platform := range coursePlatforms {
		results, err := s.searcher.Search(ctx, topic+" course site:"+platform, perPlatform)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for i, r := range results {
			if i >= perPlatform {
				break
			}
			out = append(out, toResource(r, models.KindCourse, platformLabel(platform)))
		}
		if len(out) >= max {
			break
		}
	}
	if len(errs) == len(coursePlatforms) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (s *Service) documentation(ctx context.Context, topic string, max int) ([]models.Resource, error) {
	results, err := s.searcher.Search(ctx, topic+" official documentation", max)
	if err != nil {
		return nil, err
	}
	var out []models.Resource
	for _, r := range results {
		if containsAny(strings.ToLower(r.URL), docMarkers) {
			out = append(out, toResource(r, models.KindDocumentation, "Official Docs"))
		}
	}
	return out, nil
}

func (s *Service) books(ctx context.Context, topic string, max int) ([]models.Resource, error) {
	// ask for a little extra, not every hit is a book
	results, err := s.searcher.Search(ctx, topic+" book recommended", max+2)
	if err != nil {
		return nil, err
	}
	var out []models.Resource
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		if containsAny(text, bookMarkers) {
			out = append(out, toResource(r, models.KindBook, "Book"))
		}
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

func toResource(r searchmodels.Result, kind models.ResourceKind, source string) models.Resource {
	return models.Resource{
		Title:       helpers.PlainText(r.Title),
		URL:         strings.TrimSpace(r.URL),
		Type:        kind,
		Description: helpers.PlainText(r.Snippet),
		Source:      source,
	}
}

// platformLabel turns "coursera.org" into "Coursera".
func platformLabel(domain string) string {
	name, _, _ := strings.Cut(domain, ".")
	if name == "" {
		return domain
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
