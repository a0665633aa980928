package core

import (
	"context"

	"github.com/mohammad-safakhou/careergraph/config"
	"github.com/mohammad-safakhou/careergraph/models"
)

// Completer answers a prompt with free-form text that may embed a JSON object.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Discoverer finds learning resources of one kind for a topic phrase.
// Implementations never fail: errors are logged and an empty slice returned.
type Discoverer interface {
	Discover(ctx context.Context, topic string, kind models.ResourceKind, maxResults int) []models.Resource
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// KindCaps maps a resource kind to the maximum number of resources gathered.
type KindCaps map[models.ResourceKind]int

// Options is the immutable parameter object every stage reads its tuning from.
type Options struct {
	DiscoveryEnabled bool
	TopicCaps        KindCaps
	SubtopicCaps     KindCaps
	MaxConcurrency   int
	ErrorExcerptLen  int
}

// DefaultOptions matches the caps the service has always shipped with.
func DefaultOptions() Options {
	return Options{
		DiscoveryEnabled: true,
		TopicCaps: KindCaps{
			models.KindVideo:         2,
			models.KindCourse:        2,
			models.KindDocumentation: 1,
			models.KindBook:          1,
		},
		SubtopicCaps: KindCaps{
			models.KindVideo:  1,
			models.KindCourse: 1,
		},
		MaxConcurrency:  4,
		ErrorExcerptLen: 200,
	}
}

// OptionsFromConfig derives pipeline options from application config.
func OptionsFromConfig(cfg *config.Config) Options {
	toCaps := func(c config.KindCaps) KindCaps {
		return KindCaps{
			models.KindVideo:         c.Video,
			models.KindCourse:        c.Course,
			models.KindDocumentation: c.Documentation,
			models.KindBook:          c.Book,
		}
	}
	opts := DefaultOptions()
	opts.DiscoveryEnabled = cfg.Sources.WebSearch.Enabled
	opts.TopicCaps = toCaps(cfg.Research.TopicCaps)
	opts.SubtopicCaps = toCaps(cfg.Research.SubtopicCaps)
	if cfg.Research.MaxConcurrency > 0 {
		opts.MaxConcurrency = cfg.Research.MaxConcurrency
	}
	return opts
}

func (o Options) normalized() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 1
	}
	if o.ErrorExcerptLen <= 0 {
		o.ErrorExcerptLen = 200
	}
	return o
}
