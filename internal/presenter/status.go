// ABOUTME: Presenter status values and the pure transition table between them
// ABOUTME: The machine reports inapplicable triggers instead of failing; callers decide policy

package presenter

// Status is the presenter's observable state.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPreparing Status = "preparing"
	StatusListening Status = "listening"
	StatusThinking  Status = "thinking"
	StatusSpeaking  Status = "speaking"
)

// Trigger drives a status transition.
type Trigger string

const (
	TriggerStart          Trigger = "start"
	TriggerReady          Trigger = "ready"
	TriggerStartFailure   Trigger = "startFailure"
	TriggerAsk            Trigger = "ask"
	TriggerAnswered       Trigger = "answered"
	TriggerSpeechComplete Trigger = "speechComplete"
	TriggerStop           Trigger = "stop"
)

type edge struct {
	from    Status
	trigger Trigger
}

var transitions = map[edge]Status{
	{StatusIdle, TriggerStart}:              StatusPreparing,
	{StatusPreparing, TriggerReady}:         StatusListening,
	{StatusPreparing, TriggerStartFailure}:  StatusIdle,
	{StatusListening, TriggerAsk}:           StatusThinking,
	{StatusThinking, TriggerAnswered}:       StatusSpeaking,
	{StatusSpeaking, TriggerSpeechComplete}: StatusListening,
}

// Next returns the status reached by applying trigger in from.
// ok is false when the trigger does not apply; stop applies everywhere.
func Next(from Status, trigger Trigger) (Status, bool) {
	if trigger == TriggerStop {
		return StatusIdle, true
	}
	to, ok := transitions[edge{from, trigger}]
	return to, ok
}

// Machine holds a current status. It is not safe for concurrent use;
// the Orchestrator guards it with its own lock.
type Machine struct {
	current Status
}

// NewMachine returns a machine in the idle state.
func NewMachine() *Machine {
	return &Machine{current: StatusIdle}
}

// Current returns the current status.
func (m *Machine) Current() Status {
	return m.current
}

// Can reports whether trigger applies in the current status.
func (m *Machine) Can(trigger Trigger) bool {
	_, ok := Next(m.current, trigger)
	return ok
}

// Apply moves to the next status if trigger applies. On false the status is unchanged.
func (m *Machine) Apply(trigger Trigger) (Status, bool) {
	to, ok := Next(m.current, trigger)
	if !ok {
		return m.current, false
	}
	m.current = to
	return to, true
}
