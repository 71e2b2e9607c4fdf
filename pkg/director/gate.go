package director

import "strings"

// Gate is an ordered informational sub-question inside PLAN that must be
// answered before model-backed processing resumes. At most one gate is open
// at a time; gates open in a fixed order and never re-open once passed within
// a forward sweep. A fresh PLAN entry always restarts at BUDGET.
type Gate string

const (
	// GateBudget asks whether a budget number or range exists.
	GateBudget Gate = "BUDGET"
	// GateScope asks for day count and production complexity.
	GateScope Gate = "SCOPE"
	// GateLocations asks whether locations are known and what environment.
	GateLocations Gate = "LOCATIONS"
	// GateTalent asks whether people appear on camera.
	GateTalent Gate = "TALENT"
	// GateNone means no gate is open.
	GateNone Gate = ""
)

// gateOrder fixes the sweep BUDGET -> SCOPE -> LOCATIONS -> TALENT.
var gateOrder = [...]Gate{GateBudget, GateScope, GateLocations, GateTalent}

// CurrentGate inspects only the most recent assistant turn for a gate marker
// heading. Gate state is carried in the assistant's own prompt text rather
// than out of band, so the transcript stays the single source of truth.
// First marker match wins in gate order; no match means no gate is open.
func CurrentGate(transcript Transcript) Gate {
	last, ok := lastAssistantText(transcript)
	if !ok {
		return GateNone
	}
	for _, g := range gateOrder {
		if strings.Contains(last, gateMarker(g)) {
			return g
		}
	}
	return GateNone
}

// NextGate returns the gate that follows g in the fixed order, or GateNone
// after TALENT.
func NextGate(g Gate) Gate {
	for i, cur := range gateOrder {
		if cur == g {
			if i+1 < len(gateOrder) {
				return gateOrder[i+1]
			}
			return GateNone
		}
	}
	return GateNone
}

// AdvanceResult is the sequencer's verdict for one gate test.
type AdvanceResult struct {
	// Next is the gate that should be open after this turn. Equal to the
	// tested gate when the answer did not satisfy it.
	Next Gate
	// Satisfied reports whether the tested gate's predicate passed.
	Satisfied bool
}

// Advance tests the currently open gate's predicate against the user's text.
// An unanswered gate repeats itself: it never advances and never regresses.
// Only the open gate is tested; text that would satisfy later gates has no
// effect here.
func Advance(gate Gate, userText string) AdvanceResult {
	if gate == GateNone {
		return AdvanceResult{Next: GateNone}
	}
	if !GateAnswered(gate, userText) {
		return AdvanceResult{Next: gate}
	}
	return AdvanceResult{Next: NextGate(gate), Satisfied: true}
}
