package presenter

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext_TransitionTable(t *testing.T) {
	tests := []struct {
		from    Status
		trigger Trigger
		want    Status
		ok      bool
	}{
		{StatusIdle, TriggerStart, StatusPreparing, true},
		{StatusPreparing, TriggerReady, StatusListening, true},
		{StatusPreparing, TriggerStartFailure, StatusIdle, true},
		{StatusListening, TriggerAsk, StatusThinking, true},
		{StatusThinking, TriggerAnswered, StatusSpeaking, true},
		{StatusSpeaking, TriggerSpeechComplete, StatusListening, true},
		{StatusIdle, TriggerAsk, "", false},
		{StatusIdle, TriggerReady, "", false},
		{StatusListening, TriggerStart, "", false},
		{StatusThinking, TriggerAsk, "", false},
		{StatusSpeaking, TriggerAnswered, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trigger), func(t *testing.T) {
			got, ok := Next(tt.from, tt.trigger)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNext_StopFromAnyState(t *testing.T) {
	for _, s := range []Status{StatusIdle, StatusPreparing, StatusListening, StatusThinking, StatusSpeaking} {
		got, ok := Next(s, TriggerStop)
		assert.True(t, ok, s)
		assert.Equal(t, StatusIdle, got, s)
	}
}

func TestMachine_ApplyInapplicableLeavesStatus(t *testing.T) {
	m := NewMachine()

	assert.False(t, m.Can(TriggerAsk))
	got, ok := m.Apply(TriggerAsk)
	assert.False(t, ok)
	assert.Equal(t, StatusIdle, got)
	assert.Equal(t, StatusIdle, m.Current())
}

func TestMachine_NeverThinksWithoutStartAndReady(t *testing.T) {
	triggers := []Trigger{
		TriggerStart, TriggerReady, TriggerStartFailure, TriggerAsk,
		TriggerAnswered, TriggerSpeechComplete, TriggerStop,
	}
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		m := NewMachine()
		started, ready := false, false
		for step := 0; step < 50; step++ {
			trig := triggers[rng.IntN(len(triggers))]
			to, ok := m.Apply(trig)
			if !ok {
				continue
			}
			switch {
			case to == StatusIdle:
				started, ready = false, false
			case trig == TriggerStart:
				started = true
			case trig == TriggerReady:
				ready = true
			case to == StatusThinking:
				assert.True(t, started && ready, "reached thinking without start and ready")
			}
		}
	}
}
