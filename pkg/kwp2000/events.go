package kwp2000

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType int

const (
	EventStarted EventType = iota
	EventEnded
	EventTerminated
	EventDTCsRead
	EventDTCsCleared
)

func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventTerminated:
		return "terminated"
	case EventDTCsRead:
		return "dtcs read"
	case EventDTCsCleared:
		return "dtcs cleared"
	}
	return fmt.Sprintf("EventType(%d)", int(e))
}

type Event struct {
	Type    EventType
	Session uuid.UUID
	Time    time.Time
	Err     error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Session, e.Type, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Session, e.Type)
}

func (s *Session) publish(t EventType, err error) {
	select {
	case s.events <- Event{Type: t, Session: s.id, Time: time.Now(), Err: err}:
	default:
	}
}

// Events delivers session lifecycle notifications. Events are dropped when
// the receiver falls behind.
func (s *Session) Events() <-chan Event {
	return s.events
}
