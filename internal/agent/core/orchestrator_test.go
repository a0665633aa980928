package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cgruntime "github.com/mohammad-safakhou/careergraph/internal/runtime"
	"github.com/mohammad-safakhou/careergraph/models"
)

var fixedTime = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func validAnswer(string) (string, error) {
	return "```json\n{\"is_valid\": true, \"message\": \"A career goal\"}\n```", nil
}

type resourceKey struct{ title, url string }

func researchResources(s State) map[resourceKey]bool {
	out := map[resourceKey]bool{}
	for _, rd := range s.ResearchData {
		for _, t := range rd.Topics {
			for _, r := range t.Resources {
				out[resourceKey{r.Title, r.URL}] = true
			}
			for _, st := range t.Subtopics {
				for _, r := range st.Resources {
					out[resourceKey{r.Title, r.URL}] = true
				}
			}
		}
	}
	return out
}

func nodeResources(nodes []models.RoadmapNode) map[resourceKey]bool {
	out := map[resourceKey]bool{}
	for _, n := range nodes {
		for _, r := range n.Resources {
			out[resourceKey{r.Title, r.URL}] = true
		}
	}
	return out
}

func TestRunProducesRoadmap(t *testing.T) {
	const query = "Become a data scientist"
	research := `{"topics": [{"title": "Python", "subtopics": ["Pandas"]}]}`
	structure := func(string) (string, error) {
		return mustJSON(t, map[string]any{
			"title":       "Data scientist",
			"description": "From zero to analyst",
			"total_time":  "6 months",
			"nodes": []map[string]any{
				{"id": "root", "title": query, "description": "Goal", "level": 0, "parent_id": nil},
				{"id": "t1", "title": "Python", "description": "Language", "level": 1, "parent_id": "root",
					"resources": []map[string]any{{
						"title": "Learn Pandas", "url": "https://example.com", "type": "course",
						"description": "Comprehensive guide to Pandas", "source": "LLM Suggestion",
					}}},
			},
		}), nil
	}
	llm := newStubLLM(validAnswer, reply(research), structure)
	opts := DefaultOptions()
	opts.DiscoveryEnabled = false
	metrics := cgruntime.NewMetrics()
	o, err := NewOrchestrator(llm, nil, opts, WithMetrics(metrics))
	require.NoError(t, err)

	s := o.Run(context.Background(), query)
	require.Empty(t, s.Error)
	assert.True(t, s.IsValid)
	assert.Equal(t, 3, llm.calls())
	assert.Equal(t, AgentStructure, s.CurrentAgent)
	require.Len(t, s.Nodes, 2)

	levels := map[int]bool{}
	for _, n := range s.Nodes {
		levels[n.Level] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true}, levels)
	assert.Equal(t, researchResources(s), nodeResources(s.Nodes))
	assert.Equal(t, OutcomeCompleted, s.Outcome())

	rm := s.Roadmap(fixedTime)
	assert.Equal(t, "Data scientist", rm.Title)
	assert.Equal(t, "6 months", rm.TotalTime)

	assert.Equal(t, float64(1), runsTotal(t, metrics, "completed"))
}

func TestRunRejectsOffTopicQuery(t *testing.T) {
	llm := newStubLLM(reply(`{"is_valid": false, "message": "This is about the weather"}`))
	o := newTestOrchestrator(t, llm, &stubDiscoverer{}, DefaultOptions())

	s := o.Run(context.Background(), "What's the weather today?")
	assert.False(t, s.IsValid)
	assert.Equal(t, "This is about the weather", s.ValidationMessage)
	assert.Empty(t, s.Error)
	assert.Empty(t, s.Nodes)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, OutcomeRejected, s.Outcome())
}

func TestRunStopsOnUnparseableValidation(t *testing.T) {
	llm := newStubLLM(reply("Sure! This looks like a great career goal."))
	o := newTestOrchestrator(t, llm, nil, DefaultOptions())

	s := o.Run(context.Background(), "Become a nurse")
	assert.False(t, s.IsValid)
	assert.True(t, strings.HasPrefix(s.Error, "validation parsing error: "), s.Error)
	assert.Equal(t, 1, llm.calls())
	assert.Empty(t, s.Nodes)
}

func TestRunFreezesStateAfterResearchFailure(t *testing.T) {
	llm := newStubLLM(validAnswer, replyErr(errors.New("rate limited")))
	disc := &stubDiscoverer{}
	o := newTestOrchestrator(t, llm, disc, DefaultOptions())

	s := o.Run(context.Background(), "Become a data engineer")
	assert.True(t, s.IsValid)
	assert.Equal(t, KindCompletion, s.ErrorKind)
	assert.Equal(t, "research completion failed: rate limited", s.Error)
	assert.Equal(t, AgentValidation, s.CurrentAgent)
	assert.Equal(t, AgentResearch, s.FailedStage)
	assert.Equal(t, 2, llm.calls())
	assert.Empty(t, s.ResearchData)
	assert.Nil(t, s.RoadmapStructure)
	assert.Empty(t, disc.recorded())
}

func TestRunRecoversStagePanic(t *testing.T) {
	llm := newStubLLM(validAnswer, func(string) (string, error) { panic("nil map write") })
	o := newTestOrchestrator(t, llm, nil, DefaultOptions())

	var s State
	require.NotPanics(t, func() { s = o.Run(context.Background(), "Become a data engineer") })
	assert.Equal(t, KindPanic, s.ErrorKind)
	assert.Equal(t, "research stage panicked: nil map write", s.Error)
	assert.True(t, s.IsValid)
	assert.Equal(t, 2, llm.calls())
}

func TestRunRejectsMalformedTree(t *testing.T) {
	twoRoots := `{"nodes": [
		{"id": "a", "title": "A", "description": "", "level": 0},
		{"id": "b", "title": "B", "description": "", "level": 0}
	]}`
	llm := newStubLLM(validAnswer, reply(`{"topics": [{"title": "SQL"}]}`), reply(twoRoots))
	o := newTestOrchestrator(t, llm, nil, DefaultOptions())

	s := o.Run(context.Background(), "Become a DBA")
	assert.Equal(t, KindTreeInvariant, s.ErrorKind)
	assert.Contains(t, s.Error, "structure tree rejected")
	assert.Empty(t, s.Nodes)
	assert.Len(t, s.ResearchData, 1)
	assert.Equal(t, OutcomeFailed, s.Outcome())
}

func TestRunHonoursCancellationBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	llm := newStubLLM(func(p string) (string, error) {
		cancel()
		return validAnswer(p)
	})
	metrics := cgruntime.NewMetrics()
	o, err := NewOrchestrator(llm, nil, DefaultOptions(), WithMetrics(metrics))
	require.NoError(t, err)

	s := o.Run(ctx, "Become a data engineer")
	assert.Equal(t, KindCancelled, s.ErrorKind)
	assert.Equal(t, "pipeline cancelled before research: context canceled", s.Error)
	assert.Equal(t, AgentValidation, s.CurrentAgent)
	assert.Equal(t, AgentResearch, s.FailedStage)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, float64(1), runsTotal(t, metrics, "failed"))
}

func TestNewOrchestratorRequiresCompleter(t *testing.T) {
	_, err := NewOrchestrator(nil, nil, DefaultOptions())
	require.Error(t, err)
}

func runsTotal(t *testing.T, m *cgruntime.Metrics, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "careergraph_pipeline_runs_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// promptQuery recovers the quoted query from a REQUEST: or GOAL: line.
func promptQuery(prompt string) string {
	sc := bufio.NewScanner(strings.NewReader(prompt))
	for sc.Scan() {
		line := sc.Text()
		for _, prefix := range []string{"REQUEST: ", "GOAL: "} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				if q, err := strconv.Unquote(rest); err == nil {
					return q
				}
			}
		}
	}
	return ""
}

// routingLLM answers each stage based on the prompt, echoing the query so
// results can be matched to their run.
func routingLLM(t *testing.T) CompleterFunc {
	return func(_ context.Context, prompt string) (string, error) {
		q := promptQuery(prompt)
		switch {
		case strings.Contains(prompt, "decides whether"):
			return `{"is_valid": true, "message": "ok"}`, nil
		case strings.Contains(prompt, "curriculum designer"):
			return mustJSON(t, map[string]any{"topics": []map[string]any{{"title": q + " basics", "subtopics": []string{"intro"}}}}), nil
		case strings.Contains(prompt, "building a hierarchical"):
			return mustJSON(t, map[string]any{"nodes": []map[string]any{
				{"id": "root", "title": q, "description": "goal", "level": 0},
				{"id": "t1", "title": q + " basics", "description": "", "level": 1, "parent_id": "root"},
			}}), nil
		}
		return "", fmt.Errorf("unexpected prompt")
	}
}

func TestRunIsolatesConcurrentRequests(t *testing.T) {
	disc := &stubDiscoverer{fn: func(topic string, kind models.ResourceKind, max int) []models.Resource {
		return resourcesFor(topic, kind, max)
	}}
	o := newTestOrchestrator(t, routingLLM(t), disc, DefaultOptions())

	const runs = 8
	results := make([]State, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.Run(context.Background(), fmt.Sprintf("Become engineer number %d", i))
		}(i)
	}
	wg.Wait()

	for i, s := range results {
		want := fmt.Sprintf("Become engineer number %d", i)
		require.Empty(t, s.Error, "run %d", i)
		require.Len(t, s.Nodes, 2)
		assert.Equal(t, want, s.Nodes[0].Title)
		require.Len(t, s.ResearchData, 1)
		topic := s.ResearchData[0].Topics[0]
		assert.Equal(t, want+" basics", topic.Title)
		for _, r := range topic.Resources {
			assert.True(t, strings.HasPrefix(r.Title, want+" basics "), r.Title)
		}
	}
}
