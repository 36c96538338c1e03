package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct {
	n int
}

func countingIdle(e *counter, cb func(string, StateEvent)) StateFn[counter] {
	if cb != nil {
		cb("idle", StateEntered)
	}
	if e.n >= 3 {
		if cb != nil {
			cb("idle", StateExited)
		}
		return countingDone
	}
	e.n++
	return countingIdle
}

func countingDone(e *counter, cb func(string, StateEvent)) StateFn[counter] {
	if cb != nil {
		cb("done", StateEntered)
	}
	return nil
}

func TestStateMachineDispatchAdvancesAndTerminates(t *testing.T) {
	c := &counter{}
	sm := NewStateMachine(c, countingIdle)

	for i := 0; i < 4; i++ {
		sm.Dispatch(nil)
		require.Equal(t, "idle", sm.CurrentName())
		require.False(t, sm.Terminated())
	}

	sm.Dispatch(nil)
	require.Equal(t, "done", sm.CurrentName())

	sm.Dispatch(nil)
	require.True(t, sm.Terminated())
}

func TestStateMachineSetStateFiresEnteredCallback(t *testing.T) {
	c := &counter{n: 10}
	sm := NewStateMachine(c, countingIdle)

	var events []StateEvent
	sm.SetState(countingDone)
	require.Equal(t, "done", sm.CurrentName())

	sm.Dispatch(func(name string, ev StateEvent) {
		events = append(events, ev)
	})
	_ = events
}
