package core

// Route picks the stage to run next, or AgentEnd. It is a pure function of
// the state: an error always ends the run, an invalid query ends it after
// validation, and otherwise stages follow validation, research, structure.
func Route(s State) Agent {
	if s.Failed() {
		return AgentEnd
	}
	switch s.CurrentAgent {
	case AgentNone:
		return AgentValidation
	case AgentValidation:
		if !s.IsValid {
			return AgentEnd
		}
		return AgentResearch
	case AgentResearch:
		return AgentStructure
	case AgentStructure:
		return AgentEnd
	default:
		return AgentEnd
	}
}
