package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusManualIntervention, StatusFormSubmitted, StatusEmailSent, StatusFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}

	nonTerminal := []Status{StatusInitialized, StatusNavigated, StatusRemovalPathFound, StatusFormFound, StatusEmailFound}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.CanTransitionTo(StatusFailed), s)
	}

	assert.False(t, Status("bogus").Valid())
	assert.False(t, Status("bogus").IsTerminal())
}

func TestWorkflowState_FormPath(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example", BrokerID: 7, BrokerName: "Broker"})
	assert.Equal(t, StatusInitialized, state.Status())
	assert.Nil(t, state.Form())
	assert.Empty(t, state.Email())

	require.NoError(t, state.MarkNavigated(&PageSnapshot{HTML: "<html></html>"}))
	require.NoError(t, state.MarkRemovalPathFound())
	require.NoError(t, state.MarkFormFound(&DiscoveredForm{Selector: "form"}))
	assert.NotNil(t, state.Form())
	assert.Empty(t, state.Email())
	assert.Empty(t, state.Result())

	require.NoError(t, state.Finish(StatusFormSubmitted, "Form submitted"))
	assert.True(t, state.IsTerminal())
	assert.Nil(t, state.Form())
	assert.Equal(t, "Form submitted", state.Result())
	assert.False(t, state.Failed())
}

func TestWorkflowState_RejectsSkippedSteps(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})

	err := state.MarkFormFound(&DiscoveredForm{})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StatusInitialized, state.Status())

	err = state.Finish(StatusEmailSent, "sent")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, state.Result())
}

func TestWorkflowState_FinishRequiresTerminal(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})
	err := state.Finish(StatusNavigated, "nope")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestWorkflowState_TerminalIsFinal(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})
	require.NoError(t, state.MarkNavigated(nil))
	require.NoError(t, state.Finish(StatusManualIntervention, "Could not find removal path."))

	assert.ErrorIs(t, state.MarkRemovalPathFound(), ErrInvalidTransition)
	assert.ErrorIs(t, state.Fail(errors.New("late")), ErrInvalidTransition)
	assert.Equal(t, "Could not find removal path.", state.Result())
}

func TestWorkflowState_Fail(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})
	require.NoError(t, state.MarkNavigated(nil))
	require.NoError(t, state.MarkRemovalPathFound())
	require.NoError(t, state.MarkEmailFound("privacy@broker.example"))

	cause := errors.New("smtp down")
	require.NoError(t, state.Fail(cause))
	assert.True(t, state.Failed())
	assert.Equal(t, cause, state.Err())
	assert.Equal(t, "smtp down", state.Result())
	assert.Empty(t, state.Email())
}

func TestWorkflowState_EmailSentClearsDiscovery(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})
	require.NoError(t, state.MarkNavigated(nil))
	require.NoError(t, state.MarkRemovalPathFound())
	require.NoError(t, state.MarkEmailFound("privacy@broker.example"))
	assert.Equal(t, "privacy@broker.example", state.Email())

	require.NoError(t, state.Finish(StatusEmailSent, "Email sent to privacy@broker.example"))
	assert.Empty(t, state.Email())
	assert.Nil(t, state.Form())
}

func TestWorkflowState_HistoryIsCopied(t *testing.T) {
	state := NewWorkflowState(Target{URL: "https://broker.example"})
	state.Record("first")
	state.Record("second 2")
	state.AddScreenshot("")
	state.AddScreenshot("screenshots/a.png")

	history := state.History()
	history[0] = "mutated"

	assert.Equal(t, []string{"first", "second 2"}, state.History())
	assert.Equal(t, []string{"screenshots/a.png"}, state.Screenshots())
}

func TestProfile_Value(t *testing.T) {
	p := DefaultProfile()
	p.Name = "Jane"
	assert.Equal(t, "Jane", p.Value(FieldName))
	assert.Equal(t, "Remove my info", p.Value(FieldSubject))
	assert.Equal(t, "", p.Value(ProfileField("unknown")))
}

func TestRemovalState_Pending(t *testing.T) {
	assert.True(t, RemovalNotSubmitted.Pending())
	assert.True(t, RemovalNotRequested.Pending())
	assert.False(t, RemovalRequested.Pending())
	assert.False(t, RemovalRemoved.Pending())
}
