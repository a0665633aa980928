package core

import (
	"slices"
	"time"

	"github.com/mohammad-safakhou/careergraph/models"
)

// Agent tags the last stage that completed.
type Agent string

const (
	AgentNone       Agent = ""
	AgentValidation Agent = "validation"
	AgentResearch   Agent = "research"
	AgentStructure  Agent = "structure"
	AgentEnd        Agent = "end"
)

// rank orders stages so CurrentAgent can only move forward.
func (a Agent) rank() int {
	switch a {
	case AgentNone:
		return 0
	case AgentValidation:
		return 1
	case AgentResearch:
		return 2
	case AgentStructure:
		return 3
	default:
		return 4
	}
}

// Outcome summarises a finished run for callers and metrics.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// State is the record threaded through the pipeline for one request. Stages
// take a State by value and hand back a new one; slices are copied on every
// step so a returned State never aliases its input.
type State struct {
	Query             string
	IsValid           bool
	ValidationMessage string
	// ResearchData only ever grows; see AppendResearch.
	ResearchData     []models.ResearchData
	RoadmapStructure *models.RoadmapStructure
	Nodes            []models.RoadmapNode
	CurrentAgent     Agent
	// FailedStage names the stage that set Error. CurrentAgent is left on
	// the last stage that completed.
	FailedStage Agent
	Error       string
	ErrorKind   ErrorKind
}

// NewState returns the initial state for query.
func NewState(query string) State {
	return State{Query: query}
}

// Clone deep-copies the mutable parts of s.
func (s State) Clone() State {
	out := s
	if s.ResearchData != nil {
		out.ResearchData = make([]models.ResearchData, len(s.ResearchData))
		for i, rd := range s.ResearchData {
			out.ResearchData[i] = cloneResearch(rd)
		}
	}
	if s.RoadmapStructure != nil {
		rs := *s.RoadmapStructure
		rs.Nodes = slices.Clone(rs.Nodes)
		out.RoadmapStructure = &rs
	}
	if s.Nodes != nil {
		out.Nodes = make([]models.RoadmapNode, len(s.Nodes))
		for i, n := range s.Nodes {
			out.Nodes[i] = cloneNode(n)
		}
	}
	return out
}

// AppendResearch is the merge policy for research results: passes are added
// after the existing ones, never replacing them.
func (s State) AppendResearch(rd models.ResearchData) State {
	out := s.Clone()
	out.ResearchData = append(out.ResearchData, cloneResearch(rd))
	return out
}

// advance records that stage completed. It never moves CurrentAgent backwards.
func (s State) advance(stage Agent) State {
	if stage.rank() > s.CurrentAgent.rank() {
		s.CurrentAgent = stage
	}
	return s
}

// Fail records err as the terminal failure of the run.
func (s State) Fail(err *StageError) State {
	out := s.Clone()
	out.FailedStage = err.Stage
	out.Error = err.Message()
	out.ErrorKind = err.Kind
	return out
}

// Failed reports whether an error has been recorded.
func (s State) Failed() bool { return s.Error != "" }

// Outcome classifies a terminal state.
func (s State) Outcome() Outcome {
	switch {
	case s.Failed():
		return OutcomeFailed
	case !s.IsValid:
		return OutcomeRejected
	case len(s.Nodes) == 0:
		return OutcomeFailed
	default:
		return OutcomeCompleted
	}
}

// Roadmap builds the client-facing document from a completed state.
func (s State) Roadmap(generatedAt time.Time) models.Roadmap {
	var title, description, total string
	if s.RoadmapStructure != nil {
		title = s.RoadmapStructure.Title
		description = s.RoadmapStructure.Description
		total = s.RoadmapStructure.TotalTime
	}
	return models.NewRoadmap(s.Query, title, description, total, s.Clone().Nodes, generatedAt)
}

func cloneResearch(rd models.ResearchData) models.ResearchData {
	out := models.ResearchData{Topics: make([]models.ResearchTopic, len(rd.Topics))}
	for i, t := range rd.Topics {
		t.SearchKeywords = slices.Clone(t.SearchKeywords)
		t.Resources = slices.Clone(t.Resources)
		subs := make([]models.ResearchSubtopic, len(t.Subtopics))
		for j, st := range t.Subtopics {
			st.SearchKeywords = slices.Clone(st.SearchKeywords)
			st.Units = slices.Clone(st.Units)
			st.Resources = slices.Clone(st.Resources)
			subs[j] = st
		}
		if t.Subtopics == nil {
			subs = nil
		}
		t.Subtopics = subs
		out.Topics[i] = t
	}
	return out
}

func cloneNode(n models.RoadmapNode) models.RoadmapNode {
	if n.ParentID != nil {
		p := *n.ParentID
		n.ParentID = &p
	}
	n.Resources = slices.Clone(n.Resources)
	n.Prerequisites = slices.Clone(n.Prerequisites)
	return n
}
