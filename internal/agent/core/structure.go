package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/careergraph/internal/validation"
	"github.com/mohammad-safakhou/careergraph/models"
)

type rawStructure struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TotalTime   any              `json:"total_time"`
	Nodes       []map[string]any `json:"nodes"`
}

// StructureStage turns the accumulated research into the final node tree.
// Any parse, conversion or tree problem fails the run with no nodes.
func (o *Orchestrator) StructureStage(ctx context.Context, in State) (out State) {
	defer o.recoverStage(AgentStructure, in, &out)
	log := o.logFor(ctx)

	fail := func(se *StageError) State {
		log.Warn("structuring failed", "kind", se.Kind, "error", se.Err)
		failed := in.Fail(se)
		failed.Nodes = nil
		return failed
	}

	prompt, err := structurePrompt(in.Query, in.ResearchData)
	if err != nil {
		return fail(newStageError(AgentStructure, KindStructuralConversion, err, "", o.opts.ErrorExcerptLen))
	}
	completion, err := o.completer.Complete(ctx, prompt)
	if err != nil {
		return fail(newStageError(AgentStructure, KindCompletion, err, "", o.opts.ErrorExcerptLen))
	}

	var raw rawStructure
	if kind, err := decodePayload(completion, schemaStructure, &raw); err != nil {
		return fail(newStageError(AgentStructure, kind, err, completion, o.opts.ErrorExcerptLen))
	}

	nodes := make([]models.RoadmapNode, 0, len(raw.Nodes))
	for i, rn := range raw.Nodes {
		node, dropped, err := convertNode(rn)
		if err != nil {
			return fail(newStageError(AgentStructure, KindStructuralConversion, fmt.Errorf("node %d: %w", i, err), "", o.opts.ErrorExcerptLen))
		}
		if dropped > 0 {
			log.Warn("dropped malformed resources", "node", node.ID, "count", dropped)
		}
		nodes = append(nodes, node)
	}

	nodes, repairs, err := ValidateTree(nodes)
	if err != nil {
		return fail(newStageError(AgentStructure, KindTreeInvariant, err, "", o.opts.ErrorExcerptLen))
	}
	for _, r := range repairs {
		log.Warn("repaired roadmap tree", "repair", r)
	}

	out = in.Clone().advance(AgentStructure)
	out.RoadmapStructure = &models.RoadmapStructure{
		Title:       raw.Title,
		Description: raw.Description,
		TotalTime:   scalarString(raw.TotalTime),
		Nodes:       raw.Nodes,
	}
	out.Nodes = nodes
	log.Info("roadmap structured", "nodes", len(nodes), "title", raw.Title)
	return out
}

// convertNode maps one model-emitted node onto RoadmapNode. id, title,
// description and level must be present; everything else defaults. Resources
// that lack a title or url are dropped and counted.
func convertNode(raw map[string]any) (models.RoadmapNode, int, error) {
	var node models.RoadmapNode
	for _, key := range []string{"id", "title", "description", "level"} {
		if v, ok := raw[key]; !ok || v == nil {
			return node, 0, fmt.Errorf("missing required field %q", key)
		}
	}

	id, ok := idString(raw["id"])
	if !ok {
		return node, 0, fmt.Errorf("field \"id\" must be a string, got %T", raw["id"])
	}
	title, ok := raw["title"].(string)
	if !ok {
		return node, 0, fmt.Errorf("field \"title\" must be a string, got %T", raw["title"])
	}
	description, ok := raw["description"].(string)
	if !ok {
		return node, 0, fmt.Errorf("field \"description\" must be a string, got %T", raw["description"])
	}
	level, err := levelInt(raw["level"])
	if err != nil {
		return node, 0, err
	}

	node = models.RoadmapNode{
		ID:            id,
		Title:         strings.TrimSpace(title),
		Description:   description,
		Level:         level,
		Resources:     []models.Resource{},
		Prerequisites: []string{},
		EstimatedTime: scalarString(raw["estimated_time"]),
	}
	if pid, ok := idString(raw["parent_id"]); ok && pid != "" {
		node.ParentID = &pid
	}

	if list, ok := raw["prerequisites"].([]any); ok {
		for _, p := range list {
			if s, ok := idString(p); ok && s != "" {
				node.Prerequisites = append(node.Prerequisites, s)
			}
		}
	}

	dropped := 0
	if list, ok := raw["resources"].([]any); ok {
		for _, item := range list {
			r, ok := convertResource(item)
			if !ok {
				dropped++
				continue
			}
			node.Resources = append(node.Resources, r)
		}
	}

	if err := validation.Struct(node); err != nil {
		return node, dropped, err
	}
	return node, dropped, nil
}

func convertResource(item any) (models.Resource, bool) {
	var r models.Resource
	obj, ok := item.(map[string]any)
	if !ok {
		return r, false
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return r, false
	}
	var loose struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Type          string `json:"type"`
		Description   string `json:"description"`
		Duration      any    `json:"duration"`
		Source        string `json:"source"`
		PublishedDate any    `json:"published_date"`
	}
	if err := json.Unmarshal(b, &loose); err != nil {
		return r, false
	}
	r = models.Resource{
		Title:         strings.TrimSpace(loose.Title),
		URL:           strings.TrimSpace(loose.URL),
		Type:          models.ResourceKind(strings.ToLower(strings.TrimSpace(loose.Type))),
		Description:   loose.Description,
		Duration:      scalarString(loose.Duration),
		Source:        loose.Source,
		PublishedDate: scalarString(loose.PublishedDate),
	}
	if r.Type == "" {
		r.Type = models.KindArticle
	}
	if validation.Struct(r) != nil {
		return r, false
	}
	return r, true
}

// idString accepts ids emitted as strings or as integral numbers.
func idString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func levelInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("field \"level\" must be an integer, got %v", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("field \"level\" must be an integer, got %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field \"level\" must be an integer, got %T", v)
	}
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
