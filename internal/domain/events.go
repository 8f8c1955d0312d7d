package domain

// EventType tags a StreamEvent.
type EventType string

const (
	EventContentDelta EventType = "content_delta"
	EventSources      EventType = "sources"
	EventDone         EventType = "done"
	EventError        EventType = "error"
)

// SourceRef attributes part of an answer to a stored document.
type SourceRef struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// ErrorPayload is the body of a terminal error event.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// StreamEvent reports orchestration progress. Only the fields relevant to
// Type are set.
type StreamEvent struct {
	Type     EventType     `json:"type"`
	Delta    string        `json:"delta,omitempty"`
	Sources  []SourceRef   `json:"sources,omitempty"`
	Grounded bool          `json:"grounded"`
	Error    *ErrorPayload `json:"error,omitempty"`
}

// Terminal reports whether no event may follow e.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// ErrorEvent builds a terminal error event from err.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{
		Type:  EventError,
		Error: &ErrorPayload{Kind: KindOf(err), Message: err.Error()},
	}
}
