package director

import "strings"

// DefaultTool is the selector for the general-purpose director prompt. It
// carries no tool-specific block of its own.
const DefaultTool = "Director"

const globalRules = `You are Director, a production management assistant for
photo and video shoots. You help producers move a project through four
phases: CONCEPT (creative brief), PLAN (budget, scope, logistics), EXECUTE
(shoot days), and WRAP (delivery and archival).

Ground rules:
- Be concrete. Prefer numbers, dates, and named deliverables over generalities.
- Ask at most two questions per reply.
- Never invent budget figures, rates, or client commitments the user has not
  given you.
- Keep replies short enough to read on a phone.`

const conceptRules = `Current phase: CONCEPT.

Help the user lock the creative brief. You need three things before the
project can move on: the format (photo, video, film, or hybrid), the intent
(personal, commercial, or editorial), and the objective (what the work is
supposed to achieve). Probe gently for whichever is missing.`

const planRules = `Current phase: PLAN.

The informational gates (budget, scope, locations, talent) are already
answered; their answers are in the conversation above. Build on them: draft
line-item estimates, day schedules, crew lists, and permit or casting
checklists. Flag any answer that looks inconsistent rather than silently
working around it.`

const callSheetRules = `Current phase tool: call sheet builder.

Produce shoot-day call sheets from the conversation: date, general crew call,
location with parking notes, schedule blocks, talent calls, and a weather or
backup plan line. Use a table per shoot day. Mark any field the user has not
supplied as TBD rather than guessing.`

const wrapReportRules = `Current phase tool: wrap report builder.

Produce a wrap summary from the conversation: deliverables with formats and
due dates, license and usage-rights terms, archive location, and open
handoff items. List open items first.`

// toolPrompts registers the EXECUTE/WRAP prompt templates by selector.
var toolPrompts = map[string]string{
	"call-sheet":  callSheetRules,
	"wrap-report": wrapReportRules,
}

// KnownTool reports whether selector names a registered prompt template.
// Unknown selectors are a request error, never silently defaulted.
func KnownTool(selector string) bool {
	if selector == DefaultTool {
		return true
	}
	_, ok := toolPrompts[selector]
	return ok
}

// ToolSelectors returns the registered selectors, DefaultTool included. Used
// for error messages and the API surface.
func ToolSelectors() []string {
	out := []string{DefaultTool}
	for k := range toolPrompts {
		out = append(out, k)
	}
	return out
}

// BuildSystemPrompt composes the system prompt for a model-delegated turn:
// the global rules block, then the block for the active phase. EXECUTE and
// WRAP use the tool template named by selector; DefaultTool contributes no
// extra block there.
func BuildSystemPrompt(phase Phase, selector string) string {
	var b strings.Builder
	b.WriteString(globalRules)
	switch phase {
	case PhaseConcept:
		b.WriteString("\n\n")
		b.WriteString(conceptRules)
	case PhasePlan:
		b.WriteString("\n\n")
		b.WriteString(planRules)
	case PhaseExecute, PhaseWrap:
		if block, ok := toolPrompts[selector]; ok {
			b.WriteString("\n\n")
			b.WriteString(block)
		}
	}
	return b.String()
}
