package core

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/careergraph/internal/helpers"
	"github.com/mohammad-safakhou/careergraph/models"
)

const placeholderURL = "https://example.com"

// ResearchStage decomposes the goal into topics and attaches resources to
// every topic and subtopic. Only the decomposition can fail the stage;
// discovery problems just mean fewer resources.
func (o *Orchestrator) ResearchStage(ctx context.Context, in State) (out State) {
	defer o.recoverStage(AgentResearch, in, &out)
	log := o.logFor(ctx)

	completion, err := o.completer.Complete(ctx, researchPrompt(in.Query))
	if err != nil {
		se := newStageError(AgentResearch, KindCompletion, err, "", o.opts.ErrorExcerptLen)
		log.Warn("research failed", "kind", se.Kind, "error", err)
		return in.Fail(se)
	}

	var data models.ResearchData
	if kind, err := decodePayload(completion, schemaResearch, &data); err != nil {
		se := newStageError(AgentResearch, kind, err, completion, o.opts.ErrorExcerptLen)
		log.Warn("research failed", "kind", se.Kind, "error", err)
		return in.Fail(se)
	}

	if o.opts.DiscoveryEnabled && o.discoverer != nil {
		data = o.enrich(ctx, data)
	} else {
		data = withPlaceholders(data)
	}

	out = in.AppendResearch(data).advance(AgentResearch)
	log.Info("research complete", "topics", len(data.Topics), "resources", countResources(data), "discovery", o.opts.DiscoveryEnabled)
	return out
}

// discoveryJob fills one slot; slots are preallocated so concurrent jobs
// never share memory and per-node ordering stays deterministic.
type discoveryJob struct {
	phrase string
	kind   models.ResourceKind
	limit  int
	dst    *[]models.Resource
}

func (o *Orchestrator) enrich(ctx context.Context, data models.ResearchData) models.ResearchData {
	kinds := models.DiscoveryKinds
	topicSlots := make([][][]models.Resource, len(data.Topics))
	subSlots := make([][][][]models.Resource, len(data.Topics))

	var jobs []discoveryJob
	for i, topic := range data.Topics {
		topicSlots[i] = make([][]models.Resource, len(kinds))
		for k, kind := range kinds {
			if limit := o.opts.TopicCaps[kind]; limit > 0 {
				jobs = append(jobs, discoveryJob{phrase: topic.Title, kind: kind, limit: limit, dst: &topicSlots[i][k]})
			}
		}
		subSlots[i] = make([][][]models.Resource, len(topic.Subtopics))
		for j, sub := range topic.Subtopics {
			subSlots[i][j] = make([][]models.Resource, len(kinds))
			phrase := strings.TrimSpace(topic.Title + " " + sub.Title)
			for k, kind := range kinds {
				if limit := o.opts.SubtopicCaps[kind]; limit > 0 {
					jobs = append(jobs, discoveryJob{phrase: phrase, kind: kind, limit: limit, dst: &subSlots[i][j][k]})
				}
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			*job.dst = o.discover(gctx, job.phrase, job.kind, job.limit)
			return nil
		})
	}
	_ = g.Wait()

	out := cloneResearch(data)
	for i := range out.Topics {
		out.Topics[i].Resources = mergeResources(topicSlots[i])
		for j := range out.Topics[i].Subtopics {
			out.Topics[i].Subtopics[j].Resources = mergeResources(subSlots[i][j])
		}
	}
	return out
}

// discover shields the stage from a misbehaving Discoverer.
func (o *Orchestrator) discover(ctx context.Context, phrase string, kind models.ResourceKind, limit int) (res []models.Resource) {
	defer func() {
		if r := recover(); r != nil {
			o.logFor(ctx).Error("discovery panicked", "phrase", phrase, "kind", kind, "panic", r)
			res = nil
		}
	}()
	res = o.discoverer.Discover(ctx, phrase, kind, limit)
	if len(res) > limit {
		res = res[:limit]
	}
	return res
}

// mergeResources concatenates per-kind results in kind order, keeping the
// first occurrence of any link.
func mergeResources(perKind [][]models.Resource) []models.Resource {
	out := []models.Resource{}
	for _, list := range perKind {
		for _, r := range list {
			dup := false
			for _, seen := range out {
				if helpers.SameURL(seen.URL, r.URL) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, r)
			}
		}
	}
	return out
}

func withPlaceholders(data models.ResearchData) models.ResearchData {
	out := cloneResearch(data)
	for i := range out.Topics {
		for j := range out.Topics[i].Subtopics {
			out.Topics[i].Subtopics[j].Resources = []models.Resource{placeholderResource(out.Topics[i].Subtopics[j].Title)}
		}
	}
	return out
}

func placeholderResource(subject string) models.Resource {
	return models.Resource{
		Title:       "Learn " + subject,
		URL:         placeholderURL,
		Type:        models.KindCourse,
		Description: "Comprehensive guide to " + subject,
		Source:      "LLM Suggestion",
	}
}

func countResources(data models.ResearchData) int {
	n := 0
	for _, t := range data.Topics {
		n += len(t.Resources)
		for _, s := range t.Subtopics {
			n += len(s.Resources)
		}
	}
	return n
}
