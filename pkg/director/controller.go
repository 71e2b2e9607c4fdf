package director

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"director/pkg/logx"
)

// Contract errors, rejected before any classifier or state-machine logic.
var (
	// ErrUnknownTool means the tool selector names no registered template.
	ErrUnknownTool = errors.New("unknown tool selector")
	// ErrBadTranscript means the transcript failed validation.
	ErrBadTranscript = errors.New("malformed transcript")
)

// ProviderNone in a response signals a deterministic branch fired and no
// model call occurred.
const ProviderNone = "none"

// Request is one conversation turn.
type Request struct {
	Transcript Transcript `json:"transcript"`
	UserText   string     `json:"message"`
	Tool       string     `json:"tool"`
	Provider   string     `json:"provider,omitempty"`
}

// Response is the controller's answer for one turn. Usage is nil and
// Provider is "none" on deterministic branches.
type Response struct {
	Message  string `json:"message"`
	Usage    *Usage `json:"usage"`
	Provider string `json:"provider"`
}

// budgetFirstPhrases are the literal utterances that qualify a turn as
// entering PLAN directly, bypassing the phase-jump offer.
var budgetFirstPhrases = []string{
	"start with budget",
	"start with the budget",
	"budget first",
	"i want to start with budget",
}

// Controller composes the classifiers, resolver, sequencer, and responders
// into the per-turn decision. It holds no per-conversation state and
// performs no I/O other than the delegated model call.
type Controller struct {
	invoker ModelInvoker
	logger  *logx.Logger
}

// NewController creates a controller over the given model-invocation
// boundary.
func NewController(invoker ModelInvoker) *Controller {
	return &Controller{
		invoker: invoker,
		logger:  logx.NewLogger("director"),
	}
}

// HandleTurn runs the per-turn state machine in strict priority order:
// active gate enforcement, phase-jump offer, PLAN-entry fast path, model
// delegation.
func (c *Controller) HandleTurn(ctx context.Context, req *Request) (*Response, error) {
	// Contract checks come first; a bad request must never be coerced into a
	// default and must never reach a classifier.
	if !KnownTool(req.Tool) {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownTool, req.Tool, strings.Join(ToolSelectors(), ", "))
	}
	if err := req.Transcript.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadTranscript, err)
	}

	// 1. Active gate enforcement. A gate opened on a previous turn is tested
	// against this message and never silently dropped. One gate per turn
	// here; only the PLAN-entry sweep below may clear several at once.
	if gate := CurrentGate(req.Transcript); gate != GateNone {
		res := Advance(gate, req.UserText)
		if !res.Satisfied {
			c.logger.Debug("gate %s unanswered, repeating prompt", gate)
			return deterministic(GatePrompt(gate)), nil
		}
		if res.Next != GateNone {
			c.logger.Debug("gate %s satisfied, opening %s", gate, res.Next)
			return deterministic(GatePrompt(res.Next)), nil
		}
		c.logger.Debug("gate %s satisfied, all gates cleared", gate)
		// Gates only open inside PLAN; clearing the last one resumes normal
		// PLAN processing regardless of what the transcript text resolves to.
		return c.delegate(ctx, req, PhasePlan)
	}

	fastPath := c.enteringPlan(req)

	// 2. Phase-jump offer. Steering toward a later phase with an unfinished
	// concept needs explicit confirmation, unless this turn is already
	// entering PLAN or a prior offer was accepted.
	if !fastPath {
		if target, ok := jumpTarget(req.UserText); ok && target != PhaseConcept {
			if !ConceptComplete(req.Transcript.WithUser(req.UserText)) {
				if _, accepted := acceptedJumpTarget(req.Transcript); !accepted {
					c.logger.Debug("offering phase jump to %s", target)
					return deterministic(PhaseJumpOffer(target)), nil
				}
			}
		}
	}

	// 3. PLAN entry fast path. On first entry a power user may pre-answer
	// several gates in one utterance, so sweep the sequencer from BUDGET
	// until a predicate fails. This is deliberately asymmetric with step 1's
	// one-gate-per-turn rule; do not unify the two paths, the observable
	// behavior differs.
	if fastPath {
		for g := GateBudget; g != GateNone; {
			res := Advance(g, req.UserText)
			if !res.Satisfied {
				c.logger.Debug("entering PLAN, opening gate %s", g)
				return deterministic(GatePrompt(g)), nil
			}
			g = res.Next
		}
		c.logger.Debug("entering PLAN with all gates pre-answered")
	}

	// 4. Model delegation. A fast-path turn is in PLAN even when the
	// transcript carries no accepted offer for the resolver to find.
	phase := ResolvePhase(req.Transcript, req.UserText)
	if fastPath {
		phase = PhasePlan
	}
	return c.delegate(ctx, req, phase)
}

// enteringPlan reports whether this turn qualifies as first entry into PLAN:
// an explicit PLAN request, a literal budget-first phrase, a just-accepted
// jump offer targeting PLAN, or a message that already answers the BUDGET
// gate.
func (c *Controller) enteringPlan(req *Request) bool {
	if p, ok := ExplicitPhaseRequest(req.UserText); ok && p == PhasePlan {
		return true
	}
	lower := strings.ToLower(req.UserText)
	for _, phrase := range budgetFirstPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if target, ok := justAcceptedJump(req.Transcript, req.UserText); ok && target == PhasePlan {
		return true
	}
	return GateAnswered(GateBudget, req.UserText)
}

// jumpTarget combines the explicit and implicit phase signals, explicit
// first.
func jumpTarget(text string) (Phase, bool) {
	if p, ok := ExplicitPhaseRequest(text); ok {
		return p, true
	}
	return ImplicitPhaseJump(text)
}

// delegate builds the system prompt for the given phase and calls the
// model-invocation boundary. Boundary failures surface as-is: reinterpreting
// one as an unanswered gate would corrupt the conversation's apparent
// progress.
func (c *Controller) delegate(ctx context.Context, req *Request, phase Phase) (*Response, error) {
	systemPrompt := BuildSystemPrompt(phase, req.Tool)
	c.logger.Debug("delegating to model: phase=%s tool=%s provider=%q", phase, req.Tool, req.Provider)

	reply, err := c.invoker.Invoke(ctx, req.Transcript, req.UserText, systemPrompt, req.Provider)
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}
	return &Response{
		Message:  reply.Text,
		Usage:    reply.Usage,
		Provider: reply.Provider,
	}, nil
}

func deterministic(message string) *Response {
	return &Response{Message: message, Provider: ProviderNone}
}
