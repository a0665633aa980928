package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/careergraph/models"
)

// stubLLM replays one scripted answer per Complete call.
type stubLLM struct {
	mu      sync.Mutex
	steps   []func(prompt string) (string, error)
	prompts []string
}

func newStubLLM(steps ...func(prompt string) (string, error)) *stubLLM {
	return &stubLLM{steps: steps}
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	i := len(s.prompts) - 1
	s.mu.Unlock()
	if i >= len(s.steps) {
		return "", fmt.Errorf("unexpected completion call #%d", i+1)
	}
	return s.steps[i](prompt)
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func replyErr(err error) func(string) (string, error) {
	return func(string) (string, error) { return "", err }
}

type discoverCall struct {
	Topic string
	Kind  models.ResourceKind
	Max   int
}

// stubDiscoverer answers with fn and records every call.
type stubDiscoverer struct {
	mu    sync.Mutex
	calls []discoverCall
	fn    func(topic string, kind models.ResourceKind, max int) []models.Resource
}

func (d *stubDiscoverer) Discover(_ context.Context, topic string, kind models.ResourceKind, max int) []models.Resource {
	d.mu.Lock()
	d.calls = append(d.calls, discoverCall{Topic: topic, Kind: kind, Max: max})
	d.mu.Unlock()
	if d.fn == nil {
		return nil
	}
	return d.fn(topic, kind, max)
}

func (d *stubDiscoverer) recorded() []discoverCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]discoverCall(nil), d.calls...)
}

// resourcesFor fabricates n resources of kind for topic.
func resourcesFor(topic string, kind models.ResourceKind, n int) []models.Resource {
	out := make([]models.Resource, 0, n)
	slug := strings.ReplaceAll(strings.ToLower(topic), " ", "-")
	for i := 0; i < n; i++ {
		out = append(out, models.Resource{
			Title:       fmt.Sprintf("%s %s %d", topic, kind, i+1),
			URL:         fmt.Sprintf("https://%s.example.org/%s/%d", kind, slug, i+1),
			Type:        kind,
			Description: "about " + topic,
		})
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func newTestOrchestrator(t *testing.T, llm Completer, disc Discoverer, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(llm, disc, opts)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}
