package director

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingInvoker captures the last boundary call and returns a canned
// reply.
type recordingInvoker struct {
	reply ModelReply
	err   error

	calls        int
	lastText     string
	lastSystem   string
	lastProvider string
}

func (r *recordingInvoker) Invoke(_ context.Context, _ Transcript, newUserText, systemPrompt, provider string) (ModelReply, error) {
	r.calls++
	r.lastText = newUserText
	r.lastSystem = systemPrompt
	r.lastProvider = provider
	return r.reply, r.err
}

func newTestController(invoker *recordingInvoker) *Controller {
	if invoker.reply.Text == "" {
		invoker.reply = ModelReply{
			Text:     "model reply",
			Usage:    &Usage{PromptTokens: 10, CompletionTokens: 5},
			Provider: "anthropic",
		}
	}
	return NewController(invoker)
}

func TestHandleTurnUnknownTool(t *testing.T) {
	c := newTestController(&recordingInvoker{})
	_, err := c.HandleTurn(context.Background(), &Request{
		UserText: "hello",
		Tool:     "storyboard",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestHandleTurnBadTranscript(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)
	_, err := c.HandleTurn(context.Background(), &Request{
		Transcript: Transcript{{Role: "system", Text: "nope"}},
		UserText:   "hello",
		Tool:       DefaultTool,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadTranscript)
	assert.Zero(t, invoker.calls)
}

// A first message with no control signal delegates to the model in CONCEPT.
func TestHandleTurnDelegatesInConcept(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	resp, err := c.HandleTurn(context.Background(), &Request{
		UserText: "I want a moody night look for the brand film",
		Tool:     DefaultTool,
		Provider: "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, "model reply", resp.Message)
	assert.Equal(t, "anthropic", resp.Provider)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 10, resp.Usage.PromptTokens)

	assert.Equal(t, 1, invoker.calls)
	assert.Equal(t, "openai", invoker.lastProvider)
	assert.Contains(t, invoker.lastSystem, "Current phase: CONCEPT")
}

// Steering toward PLAN topics with an unfinished concept gets the two-option
// offer, deterministically.
func TestHandleTurnOffersPhaseJump(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	resp, err := c.HandleTurn(context.Background(), &Request{
		UserText: "what usage rights should the license cover",
		Tool:     DefaultTool,
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Message, "Before we skip ahead")
	assert.Contains(t, resp.Message, "move to WRAP")
	assert.Equal(t, ProviderNone, resp.Provider)
	assert.Nil(t, resp.Usage)
	assert.Zero(t, invoker.calls)
}

// A complete concept suppresses the offer and goes straight to the model.
func TestHandleTurnNoOfferWhenConceptComplete(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	transcript := Transcript{
		{Role: RoleUser, Text: "a commercial video campaign to promote our espresso machine"},
		{Role: RoleAssistant, Text: "Great, the concept is taking shape."},
	}
	resp, err := c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "what license terms do we need",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoker.calls)
	assert.NotContains(t, resp.Message, "Before we skip ahead")
}

// Accepting the offer with "2" when it targeted PLAN opens the BUDGET gate.
func TestHandleTurnAcceptedOfferOpensBudget(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	transcript := Transcript{
		{Role: RoleUser, Text: "how much will this cost"},
		{Role: RoleAssistant, Text: PhaseJumpOffer(PhasePlan)},
	}
	resp, err := c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "2",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Message, "Budget Check")
	assert.Equal(t, ProviderNone, resp.Provider)
	assert.Zero(t, invoker.calls)
}

// Declining the offer returns the conversation to normal CONCEPT flow.
func TestHandleTurnDeclinedOfferStaysInConcept(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	transcript := Transcript{
		{Role: RoleUser, Text: "how much will this cost"},
		{Role: RoleAssistant, Text: PhaseJumpOffer(PhasePlan)},
		{Role: RoleUser, Text: "1"},
		{Role: RoleAssistant, Text: "Good call. Let's finish the brief."},
	}
	_, err := c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "the mood should feel warm and handmade",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoker.calls)
	assert.Contains(t, invoker.lastSystem, "Current phase: CONCEPT")
}

// An open gate is enforced before anything else: unanswered repeats the same
// prompt, answered opens exactly the next gate.
func TestHandleTurnGateEnforcement(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	transcript := Transcript{
		{Role: RoleUser, Text: "budget first"},
		{Role: RoleAssistant, Text: GatePrompt(GateBudget)},
	}

	// Unanswered: repeat.
	resp, err := c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "I'd rather talk about the shot list",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, GatePrompt(GateBudget), resp.Message)
	assert.Zero(t, invoker.calls)

	// Answered: the next gate opens, one per turn even if the message also
	// answers later gates.
	resp, err = c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "$15k, and locations are known, studio",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "Scope & Complexity Check")
	assert.Zero(t, invoker.calls)
}

// Passing the final gate hands the turn to the model with the PLAN rules,
// not the CONCEPT default the bare transcript would resolve to.
func TestHandleTurnFinalGateDelegates(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	transcript := Transcript{
		{Role: RoleUser, Text: "known, exterior"},
		{Role: RoleAssistant, Text: GatePrompt(GateTalent)},
	}
	resp, err := c.HandleTurn(context.Background(), &Request{
		Transcript: transcript,
		UserText:   "yes, a customer testimonial",
		Tool:       DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoker.calls)
	assert.Equal(t, "model reply", resp.Message)
	assert.Contains(t, invoker.lastSystem, "Current phase: PLAN")
}

// Entering PLAN with several gates pre-answered sweeps forward and opens the
// first unanswered one.
func TestHandleTurnPlanEntrySweep(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	resp, err := c.HandleTurn(context.Background(), &Request{
		UserText: "switch to plan: budget is $20k, 2 days, standard production",
		Tool:     DefaultTool,
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Message, "Locations Check")
	assert.Equal(t, ProviderNone, resp.Provider)
	assert.Zero(t, invoker.calls)
}

// A PLAN entry that pre-answers every gate goes straight to the model, and
// the model sees the PLAN rules even though no offer was ever accepted.
func TestHandleTurnPlanEntryAllGatesAnswered(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	_, err := c.HandleTurn(context.Background(), &Request{
		UserText: "budget first: $20k, 2 days standard, locations known studio, no talent",
		Tool:     DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoker.calls)
	assert.Contains(t, invoker.lastSystem, "Current phase: PLAN")
	assert.NotContains(t, invoker.lastSystem, "Current phase: CONCEPT")
}

// Same again from an empty transcript with a single all-answers message.
func TestHandleTurnSingleMessagePlanEntryUsesPlanPrompt(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	_, err := c.HandleTurn(context.Background(), &Request{
		UserText: "unknown budget, ceiling $20k, 2 days standard, studio known, no talent",
		Tool:     DefaultTool,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invoker.calls)
	assert.Contains(t, invoker.lastSystem, "Current phase: PLAN")
}

// Boundary failures surface as-is, wrapped but never reinterpreted.
func TestHandleTurnBoundaryError(t *testing.T) {
	boundaryErr := errors.New("backend down")
	invoker := &recordingInvoker{err: boundaryErr, reply: ModelReply{Text: "unused"}}
	c := NewController(invoker)

	_, err := c.HandleTurn(context.Background(), &Request{
		UserText: "tell me about the look",
		Tool:     DefaultTool,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boundaryErr)
	assert.Contains(t, err.Error(), "model invocation failed")
}

// The explicit-jump offer also fires for explicit phase requests when the
// concept is unfinished, except when the target is PLAN entry itself.
func TestHandleTurnExplicitJumpToWrapOffers(t *testing.T) {
	invoker := &recordingInvoker{}
	c := newTestController(invoker)

	resp, err := c.HandleTurn(context.Background(), &Request{
		UserText: "switch to wrap",
		Tool:     DefaultTool,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "move to WRAP")
	assert.Zero(t, invoker.calls)
}
