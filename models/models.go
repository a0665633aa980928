package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ResourceKind labels a learning resource. The set is open-ended; the constants
// below are the kinds the discovery layer knows how to search for plus the
// kinds models commonly emit.
type ResourceKind string

const (
	KindVideo         ResourceKind = "video"
	KindCourse        ResourceKind = "course"
	KindDocumentation ResourceKind = "documentation"
	KindBook          ResourceKind = "book"
	KindPaper         ResourceKind = "paper"
	KindArticle       ResourceKind = "article"
)

// DiscoveryKinds is the order in which resources are gathered for one node.
var DiscoveryKinds = []ResourceKind{KindVideo, KindCourse, KindDocumentation, KindBook}

// Resource is a learning material reference. Resources are plain values and
// compare by their fields.
type Resource struct {
	Title         string       `json:"title" validate:"required"`
	URL           string       `json:"url" validate:"required"`
	Type          ResourceKind `json:"type" validate:"required"`
	Description   string       `json:"description"`
	Duration      string       `json:"duration,omitempty"`
	Source        string       `json:"source,omitempty"`
	PublishedDate string       `json:"published_date,omitempty"`
}

// RoadmapNode is one entry of the roadmap tree. Level 0 is the goal itself,
// 1 a main topic, 2 a subtopic and 3 a learning unit.
type RoadmapNode struct {
	ID            string     `json:"id" validate:"required"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Level         int        `json:"level" validate:"min=0"`
	ParentID      *string    `json:"parent_id"`
	Resources     []Resource `json:"resources" validate:"dive"`
	Prerequisites []string   `json:"prerequisites"`
	EstimatedTime string     `json:"estimated_time,omitempty"`
}

// IsRoot reports whether the node is the level-0 goal.
func (n RoadmapNode) IsRoot() bool { return n.Level == 0 }

// Roadmap is the document handed to API clients and the exporter.
type Roadmap struct {
	Query       string        `json:"query" validate:"required"`
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Nodes       []RoadmapNode `json:"nodes" validate:"required,min=1,dive"`
	TotalTime   string        `json:"total_time,omitempty"`
	GeneratedAt string        `json:"generated_at"`
}

// NewRoadmap assembles a roadmap document, defaulting the title and
// description the way the API has always presented them.
func NewRoadmap(query, title, description, totalTime string, nodes []RoadmapNode, at time.Time) Roadmap {
	if strings.TrimSpace(title) == "" {
		title = "Roadmap: " + query
	}
	if strings.TrimSpace(description) == "" {
		description = "Career learning roadmap"
	}
	if nodes == nil {
		nodes = []RoadmapNode{}
	}
	return Roadmap{
		Query:       query,
		Title:       title,
		Description: description,
		Nodes:       nodes,
		TotalTime:   totalTime,
		GeneratedAt: at.UTC().Format(time.RFC3339),
	}
}

// ResearchSubtopic is a narrower area under a research topic.
type ResearchSubtopic struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	SearchKeywords []string   `json:"search_keywords,omitempty"`
	Units          []string   `json:"units,omitempty"`
	Resources      []Resource `json:"resources"`
}

// UnmarshalJSON accepts either a bare title string or an object. Units may be
// listed as strings or as objects carrying a title.
func (s *ResearchSubtopic) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*s = ResearchSubtopic{Title: title}
		return nil
	}
	var raw struct {
		Title          string            `json:"title"`
		Description    string            `json:"description"`
		SearchKeywords flexibleStrings   `json:"search_keywords"`
		Units          flexibleStrings   `json:"units"`
		LearningUnits  flexibleStrings   `json:"learning_units"`
		Resources      []json.RawMessage `json:"resources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	units := raw.Units
	if len(units) == 0 {
		units = raw.LearningUnits
	}
	*s = ResearchSubtopic{
		Title:          raw.Title,
		Description:    raw.Description,
		SearchKeywords: raw.SearchKeywords,
		Units:          units,
		Resources:      decodeResources(raw.Resources),
	}
	return nil
}

// ResearchTopic is a main area of study produced by topic decomposition.
type ResearchTopic struct {
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	SearchKeywords []string           `json:"search_keywords,omitempty"`
	Subtopics      []ResearchSubtopic `json:"subtopics"`
	Resources      []Resource         `json:"resources"`
}

// UnmarshalJSON tolerates search keywords given as a single string and
// silently drops resources that do not decode.
func (t *ResearchTopic) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title          string             `json:"title"`
		Description    string             `json:"description"`
		SearchKeywords flexibleStrings    `json:"search_keywords"`
		Subtopics      []ResearchSubtopic `json:"subtopics"`
		Resources      []json.RawMessage  `json:"resources"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ResearchTopic{
		Title:          raw.Title,
		Description:    raw.Description,
		SearchKeywords: raw.SearchKeywords,
		Subtopics:      raw.Subtopics,
		Resources:      decodeResources(raw.Resources),
	}
	return nil
}

// ResearchData is one research pass: the decomposed topic tree with the
// resources attached during enrichment.
type ResearchData struct {
	Topics []ResearchTopic `json:"topics"`
}

// RoadmapStructure is the tree object as the model emitted it. Nodes are kept
// raw so the typed conversion can report exactly what was wrong.
type RoadmapStructure struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TotalTime   string           `json:"total_time"`
	Nodes       []map[string]any `json:"nodes"`
}

// flexibleStrings decodes a string, a list of strings, or a list of objects
// with a "title" field into a plain string slice.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) != "" {
			*f = flexibleStrings{single}
		}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(flexibleStrings, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Title string `json:"title"`
			Name  string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if obj.Title != "" {
				out = append(out, obj.Title)
			} else if obj.Name != "" {
				out = append(out, obj.Name)
			}
		}
	}
	*f = out
	return nil
}

func decodeResources(items []json.RawMessage) []Resource {
	var out []Resource
	for _, item := range items {
		var r Resource
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		if r.Title == "" || r.URL == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
