package director

import "strings"

// Phase is one of the four top-level workflow stages a conversation can be
// in. A phase is never stored: it is recomputed from the transcript on every
// turn, which keeps the controller stateless at the cost of re-deriving
// control state from text each call.
type Phase string

const (
	// PhaseConcept is the universal default: creative brief development.
	PhaseConcept Phase = "CONCEPT"
	// PhasePlan covers budgeting, scheduling, and logistics.
	PhasePlan Phase = "PLAN"
	// PhaseExecute covers shoot-day operations.
	PhaseExecute Phase = "EXECUTE"
	// PhaseWrap covers delivery, licensing, and archival.
	PhaseWrap Phase = "WRAP"
)

// ResolvePhase computes the active phase for this turn. An explicit phase
// request in the latest text is authoritative and bypasses every other
// signal. Otherwise a previously accepted phase-jump offer steers the
// conversation to the offered phase. Otherwise CONCEPT.
func ResolvePhase(transcript Transcript, latestUserText string) Phase {
	if p, ok := ExplicitPhaseRequest(latestUserText); ok {
		return p
	}
	if p, ok := acceptedJumpTarget(transcript); ok {
		return p
	}
	return PhaseConcept
}

// acceptedJumpTarget reports whether the most recent phase-jump offer in the
// transcript was accepted, and which phase it offered. Acceptance is a strict
// literal match on the reply that follows the offer: "2" or "option 2",
// nothing fuzzier. Any other first reply settles the offer as declined.
func acceptedJumpTarget(transcript Transcript) (Phase, bool) {
	offerIdx := -1
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == RoleAssistant && strings.Contains(transcript[i].Text, phaseJumpOfferMarker) {
			offerIdx = i
			break
		}
	}
	if offerIdx < 0 {
		return "", false
	}
	target, ok := offerTarget(transcript[offerIdx].Text)
	if !ok {
		return "", false
	}
	for i := offerIdx + 1; i < len(transcript); i++ {
		if transcript[i].Role != RoleUser {
			continue
		}
		if isOfferAcceptance(transcript[i].Text) {
			return target, true
		}
		return "", false
	}
	return "", false
}

// isOfferAcceptance matches the exact replies that accept a phase-jump offer.
func isOfferAcceptance(text string) bool {
	reply := strings.ToLower(strings.TrimSpace(text))
	return reply == "2" || reply == "option 2"
}

// justAcceptedJump reports whether the current turn itself is the acceptance:
// the last assistant turn is a phase-jump offer and the new user text picks
// option 2.
func justAcceptedJump(transcript Transcript, newUserText string) (Phase, bool) {
	last, ok := lastAssistantText(transcript)
	if !ok || !strings.Contains(last, phaseJumpOfferMarker) {
		return "", false
	}
	if !isOfferAcceptance(newUserText) {
		return "", false
	}
	return offerTarget(last)
}
