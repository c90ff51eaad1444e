// ABOUTME: Session events published by the orchestrator to its subscribers
// ABOUTME: Event is a closed set; only the three variants in this file implement it

package presenter

import "slices"

// Kind discriminates event variants on the wire.
type Kind string

const (
	KindStatus   Kind = "status"
	KindResponse Kind = "response"
	KindError    Kind = "error"
)

// Event is one of StatusEvent, ResponseEvent or ErrorEvent.
type Event interface {
	Kind() Kind
	sealed()
}

// StatusEvent announces a presenter status change.
type StatusEvent struct {
	Status Status `json:"status"`
}

// ResponseEvent carries the presenter's answer and follow-up suggestions.
type ResponseEvent struct {
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

// ErrorEvent carries a one-line human-readable failure message.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (StatusEvent) Kind() Kind   { return KindStatus }
func (ResponseEvent) Kind() Kind { return KindResponse }
func (ErrorEvent) Kind() Kind    { return KindError }

func (StatusEvent) sealed()   {}
func (ResponseEvent) sealed() {}
func (ErrorEvent) sealed()    {}

func newResponseEvent(text string, suggestions []string) ResponseEvent {
	s := slices.Clone(suggestions)
	if s == nil {
		s = []string{}
	}
	return ResponseEvent{Text: text, Suggestions: s}
}

// Envelope is the JSON shape of an event: {"kind": ..., <variant fields>}.
type Envelope struct {
	Kind        Kind     `json:"kind"`
	Status      Status   `json:"status,omitempty"`
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// Wrap converts an event to its wire envelope.
func Wrap(e Event) Envelope {
	env := Envelope{Kind: e.Kind()}
	switch ev := e.(type) {
	case StatusEvent:
		env.Status = ev.Status
	case ResponseEvent:
		env.Text = ev.Text
		env.Suggestions = ev.Suggestions
	case ErrorEvent:
		env.Message = ev.Message
	}
	return env
}
