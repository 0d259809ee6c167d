package ports

// EventType enumerates everything the engine reports to its consumer.
type EventType string

const (
	EventStatus             EventType = "status"
	EventText               EventType = "text"
	EventThinking           EventType = "thinking"
	EventToolCall           EventType = "tool_call"
	EventToolResult         EventType = "tool_result"
	EventError              EventType = "error"
	EventStartAssistant     EventType = "startAssistant"
	EventEndAssistant       EventType = "endAssistant"
	EventDone               EventType = "done"
	EventClear              EventType = "clear"
	EventAddUserMessage     EventType = "addUserMessage"
	EventThinkModeChanged   EventType = "thinkModeChanged"
	EventAttachmentsUpdated EventType = "attachmentsUpdated"
)

// Event is one message from the engine to the UI.
type Event struct {
	Type    EventType      `json:"type"`
	Content string         `json:"content,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventListener consumes engine events. Implementations must tolerate being
// called from multiple goroutines; the engine does not serialize emission
// across parallel specialists.
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to the EventListener interface.
type EventListenerFunc func(event Event)

// OnEvent implements EventListener.
func (f EventListenerFunc) OnEvent(event Event) { f(event) }

type nopListener struct{}

func (nopListener) OnEvent(Event) {}

// NopListener returns a listener that discards all events.
func NopListener() EventListener { return nopListener{} }

// OrNop returns listener when non-nil, otherwise a no-op listener.
func OrNop(listener EventListener) EventListener {
	if listener == nil {
		return nopListener{}
	}
	return listener
}

// Emit is a convenience helper for listeners that may be nil.
func Emit(listener EventListener, eventType EventType, content string) {
	if listener == nil {
		return
	}
	listener.OnEvent(Event{Type: eventType, Content: content})
}
