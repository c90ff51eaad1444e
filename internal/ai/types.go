// ABOUTME: Request modes and the uniform response shape for AI requests
// ABOUTME: Response.Text is never empty; RelatedQuestions never carries duplicates

package ai

// Mode selects which kind of AI request is issued.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeImage  Mode = "image"
	ModeSpeech Mode = "speech"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeChat, ModeImage, ModeSpeech:
		return true
	}
	return false
}

// Source records where a Response came from. It is not part of the wire format.
type Source string

const (
	SourceBackend  Source = "backend"
	SourceFallback Source = "fallback"
)

// Request is a single AI request. Payload is message text or an image reference.
type Request struct {
	Mode    Mode
	Payload string
}

// Response is the uniform AI response returned for every mode.
type Response struct {
	Text             string   `json:"text"`
	RelatedQuestions []string `json:"relatedQuestions,omitempty"`
	Analysis         string   `json:"analysis,omitempty"`

	Source Source `json:"-"`
}

// Fallback reports whether the response was produced locally.
func (r Response) Fallback() bool {
	return r.Source == SourceFallback
}

// uniqueQuestions drops blank and repeated entries, keeping first occurrences in order.
func uniqueQuestions(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
