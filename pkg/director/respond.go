package director

import (
	"fmt"
	"strings"
)

// Deterministic responders. Each produces fixed, complete text for a control
// state without calling the model. The marker headings below must appear
// verbatim in the matching response body: the next turn's sequencer and
// resolver recognize control state by scanning the last assistant message for
// them, so changing a marker is a wire-format change.
const (
	budgetGateMarker     = "Budget Check"
	scopeGateMarker      = "Scope & Complexity Check"
	locationsGateMarker  = "Locations Check"
	talentGateMarker     = "Talent Check"
	phaseJumpOfferMarker = "Before we skip ahead"
)

// gateMarker returns the literal heading the sequencer scans for.
func gateMarker(g Gate) string {
	switch g {
	case GateBudget:
		return budgetGateMarker
	case GateScope:
		return scopeGateMarker
	case GateLocations:
		return locationsGateMarker
	case GateTalent:
		return talentGateMarker
	}
	return ""
}

const budgetGatePrompt = `## Budget Check

First money question: do you have a number yet?

- If the budget is set, give me the amount ("$15,000" or "15k" both work).
- If it's still open, say "unknown budget" and give me a rough ceiling or a
  range like "10-20k".

Either answer works. I just need to know which world we're planning in.`

const scopeGatePrompt = `## Scope & Complexity Check

How big is this shoot?

Give me the day count ("1 day", "2 days", "3+ days") and whether the
production is simple, standard, or complex.`

const locationsGatePrompt = `## Locations Check

Do you know where you're shooting yet?

Say "known" or "unknown", plus the environment: studio, interior, exterior,
or mixed.`

const talentGatePrompt = `## Talent Check

Will there be people on camera? Answer yes or no.

If yes, tell me what kind of talent: model, customer, spokesperson, or other.`

// GatePrompt returns the canned question for a gate. The output is stable
// across calls and always embeds the gate's marker heading.
func GatePrompt(g Gate) string {
	switch g {
	case GateBudget:
		return budgetGatePrompt
	case GateScope:
		return scopeGatePrompt
	case GateLocations:
		return locationsGatePrompt
	case GateTalent:
		return talentGatePrompt
	}
	return ""
}

// PhaseJumpOffer builds the two-option confirmation shown when the user
// steers toward a later phase while the creative concept is still unfinished.
// Option wording is fixed: the resolver treats a literal "2" / "option 2"
// reply as acceptance and anything else as declining.
func PhaseJumpOffer(target Phase) string {
	return fmt.Sprintf(`%s: it sounds like you want to move to %s, but the
creative concept isn't locked yet. A thin concept makes every later phase
slower, so here are two ways to go:

1) Stay in CONCEPT and finish the creative brief first
2) Start the workflow at %s now and backfill the concept later

Reply 1 or 2.`, phaseJumpOfferMarker, target, target)
}

// offerTarget recovers the offered phase from a phase-jump offer's text.
func offerTarget(offerText string) (Phase, bool) {
	for _, p := range []Phase{PhasePlan, PhaseExecute, PhaseWrap, PhaseConcept} {
		if strings.Contains(offerText, "move to "+string(p)) {
			return p, true
		}
	}
	return "", false
}
