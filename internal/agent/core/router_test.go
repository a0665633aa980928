package core

import "testing"

func TestRoute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		state State
		want  Agent
	}{
		{"fresh state validates", State{}, AgentValidation},
		{"valid query researches", State{CurrentAgent: AgentValidation, IsValid: true}, AgentResearch},
		{"invalid query ends", State{CurrentAgent: AgentValidation}, AgentEnd},
		{"research structures", State{CurrentAgent: AgentResearch, IsValid: true}, AgentStructure},
		{"structure ends", State{CurrentAgent: AgentStructure, IsValid: true}, AgentEnd},
		{"error before anything ends", State{Error: "boom"}, AgentEnd},
		{"error after validation ends", State{CurrentAgent: AgentValidation, IsValid: true, Error: "boom"}, AgentEnd},
		{"error after research ends", State{CurrentAgent: AgentResearch, IsValid: true, Error: "boom"}, AgentEnd},
		{"end stays end", State{CurrentAgent: AgentEnd}, AgentEnd},
		{"unknown agent ends", State{CurrentAgent: Agent("planner")}, AgentEnd},
	}
	for _, tt := range tests {
		if got := Route(tt.state); got != tt.want {
			t.Fatalf("%s: Route() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// Drives the router with stages that succeed or fail arbitrarily and checks
// it always terminates within three stage executions.
func TestRouteAlwaysTerminates(t *testing.T) {
	t.Parallel()
	for mask := 0; mask < 1<<6; mask++ {
		s := NewState("q")
		steps := 0
		for {
			next := Route(s)
			if next == AgentEnd {
				if again := Route(s); again != AgentEnd {
					t.Fatalf("mask %b: router left end state for %q", mask, again)
				}
				break
			}
			steps++
			if steps > maxSteps {
				t.Fatalf("mask %b: more than %d stages executed", mask, maxSteps)
			}
			bit := (steps - 1) * 2
			s = s.advance(next)
			if next == AgentValidation {
				s.IsValid = mask&(1<<bit) != 0
			}
			if mask&(1<<(bit+1)) != 0 {
				s.Error = "stage failed"
			}
		}
	}
}
