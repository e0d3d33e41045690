package monitor

import (
	"sync"
	"time"
)

// EventKind is the closed set of event types the monitor emits.
type EventKind string

const (
	EventNewLine        EventKind = "new_line"
	EventFileCreated    EventKind = "file_created"
	EventFileDeleted    EventKind = "file_deleted"
	EventSessionStarted EventKind = "session_started"
	EventSessionEnded   EventKind = "session_ended"
	EventError          EventKind = "error"
)

// Event is one observation delivered to subscribers. Content and LineNumber
// are set only for EventNewLine; Message only for EventError.
type Event struct {
	Kind        EventKind
	Timestamp   time.Time
	ProjectPath string
	SessionID   string
	FilePath    string
	Content     string
	LineNumber  int
	Message     string
}

// Handler receives events. Handlers run on the monitor's dispatch goroutine
// and must not block.
type Handler func(Event)

type subscribers struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]Handler
}

func newSubscribers() *subscribers {
	return &subscribers{handlers: make(map[int]Handler)}
}

// add registers a handler and returns its removal func.
func (s *subscribers) add(handler Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers, id)
	}
}

func (s *subscribers) publish(event Event) {
	s.mu.Lock()
	handlers := make([]Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}
