package director

import (
	"regexp"
	"strings"
)

// Intent classifiers. Each is a pure, total function of its input: unmatched
// text yields a "no signal" result, never an error. These heuristics stand in
// for a real dialogue schema, so each one is named and independently testable
// rather than inlined in the controller.

// explicitPhaseRe matches a navigation verb followed immediately by a phase
// name ("switch to plan", "enter wrap").
var explicitPhaseRe = regexp.MustCompile(`(?i)\b(?:go to|switch to|move to|advance to|enter)\s+(concept|plan|execute|wrap)\b`)

// ExplicitPhaseRequest detects deliberate phase navigation in the latest user
// text: a movement verb directly before a phase name, or one of the fixed
// "ready to plan/execute/wrap" idioms. Case-insensitive.
func ExplicitPhaseRequest(text string) (Phase, bool) {
	if m := explicitPhaseRe.FindStringSubmatch(text); m != nil {
		return Phase(strings.ToUpper(m[1])), true
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "ready to plan"):
		return PhasePlan, true
	case strings.Contains(lower, "ready to execute"):
		return PhaseExecute, true
	case strings.Contains(lower, "ready to wrap"):
		return PhaseWrap, true
	}
	return "", false
}

// Keyword vocabularies for the implicit jump heuristic. Matched as plain
// substrings of the lowercased text; misfires ("rate" inside "operate") are an
// accepted risk of text-heuristic control.
var (
	planVocabulary = []string{
		"budget", "estimate", "pricing", "rate", "timeline", "schedule",
		"crew", "location", "permit", "casting", "deliverable",
	}
	executeVocabulary = []string{
		"call sheet", "shoot day", "on set", "set notes", "production notes",
		"client selects",
	}
	wrapVocabulary = []string{
		"license", "usage rights", "deliverables", "archive", "handoff",
		"final delivery",
	}
)

// ImplicitPhaseJump associates topic vocabulary in the latest user text with a
// workflow phase. Categories are tested PLAN, then EXECUTE, then WRAP; the
// first hit wins.
func ImplicitPhaseJump(text string) (Phase, bool) {
	lower := strings.ToLower(text)
	for _, kw := range planVocabulary {
		if strings.Contains(lower, kw) {
			return PhasePlan, true
		}
	}
	for _, kw := range executeVocabulary {
		if strings.Contains(lower, kw) {
			return PhaseExecute, true
		}
	}
	for _, kw := range wrapVocabulary {
		if strings.Contains(lower, kw) {
			return PhaseWrap, true
		}
	}
	return "", false
}

// Evidence lists for concept completeness. All three groups must be present
// across the user's turns; this is a conjunctive gate, not a majority vote.
var (
	formatTerms = []string{"photo", "photography", "video", "film", "hybrid"}
	intentTerms = []string{"personal", "commercial", "editorial"}
	goalTerms   = []string{
		"to promote", "to launch", "to sell", "to announce",
		"goal", "objective", "message", "story", "campaign", "awareness",
	}
)

// ConceptComplete reports whether the user turns in the transcript contain
// evidence of a format, an intent, and an objective for the production.
func ConceptComplete(transcript Transcript) bool {
	all := userText(transcript)
	return containsAny(all, formatTerms) &&
		containsAny(all, intentTerms) &&
		containsAny(all, goalTerms)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Gate answer predicates. One rule per gate, applied to the latest user text
// only.
var (
	// "$ 15,000", "$15k" and friends.
	currencyRe = regexp.MustCompile(`\$\s*\d`)
	// "15k", "15 grand".
	thousandsRe = regexp.MustCompile(`(?i)\b\d+\s*(?:k\b|grand\b)`)
	// "10-20" style numeric ranges.
	numericRangeRe = regexp.MustCompile(`\b\d+\s*-\s*\d+\b`)
	// "known budget", "budget unknown", "budget is known".
	budgetKnownRe = regexp.MustCompile(`(?i)\b(?:un)?known\s+budget\b|\bbudget\s+(?:is\s+)?(?:un)?known\b`)
	// "2 days", "3+ days", "one day", "two days".
	dayCountRe = regexp.MustCompile(`(?i)\b\d+\s*\+?\s*days?\b|\bone day\b|\btwo days\b`)
	knownRe    = regexp.MustCompile(`(?i)\b(?:un)?known\b`)
	yesRe      = regexp.MustCompile(`(?i)\byes\b`)
	noRe       = regexp.MustCompile(`(?i)\bno\b`)
)

var (
	complexityTerms  = []string{"simple", "standard", "complex"}
	environmentTerms = []string{"studio", "interior", "exterior", "mixed"}
	talentTypeTerms  = []string{"model", "customer", "spokesperson", "other"}
)

// GateAnswered reports whether text answers the given gate's question.
func GateAnswered(gate Gate, text string) bool {
	lower := strings.ToLower(text)
	switch gate {
	case GateBudget:
		return budgetKnownRe.MatchString(text) ||
			currencyRe.MatchString(text) ||
			thousandsRe.MatchString(text) ||
			numericRangeRe.MatchString(text)
	case GateScope:
		// Day count and complexity are both required.
		return dayCountRe.MatchString(text) && containsAny(lower, complexityTerms)
	case GateLocations:
		// Known/unknown signal and environment are both required.
		return knownRe.MatchString(text) && containsAny(lower, environmentTerms)
	case GateTalent:
		if yesRe.MatchString(text) {
			return containsAny(lower, talentTypeTerms)
		}
		return noRe.MatchString(text)
	}
	return false
}
