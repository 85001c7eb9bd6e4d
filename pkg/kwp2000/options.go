package kwp2000

import (
	"time"

	"github.com/google/uuid"
)

type Option func(*Session)

// WithSessionType selects the StartDiagnosticSession sub function,
// EXTENDED_DIAGNOSTIC_SESSION by default.
func WithSessionType(t byte) Option {
	return func(s *Session) {
		s.sessionType = t
	}
}

func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.keepAliveInterval = d
		}
	}
}

// WithMaxMissedKeepAlives sets how many consecutive unanswered
// TesterPresent requests end the session.
func WithMaxMissedKeepAlives(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxMissed = n
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.events = make(chan Event, n)
		}
	}
}

func WithID(id uuid.UUID) Option {
	return func(s *Session) {
		s.id = id
	}
}
