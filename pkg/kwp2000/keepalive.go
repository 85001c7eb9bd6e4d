package kwp2000

import (
	"fmt"
	"time"

	"github.com/roffe/passdiag"
)

// keepAlive sends TesterPresent every keepAliveInterval while the session is
// Active. Ticks that find a request in flight are skipped. maxMissed
// consecutive unanswered requests, or any driver I/O failure, terminate the
// session.
func (s *Session) keepAlive(ch passdiag.ChannelID, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(s.keepAliveInterval)
	defer t.Stop()

	missed := 0
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		if !s.busy.TryLock() {
			continue
		}
		select {
		case <-stop:
			s.busy.Unlock()
			return
		default:
		}
		_, err := s.request(ch, TESTER_PRESENT, []byte{RESPONSE_REQUIRED}, KeepAliveTimeout)
		s.busy.Unlock()

		switch {
		case err == nil:
			missed = 0
		case passdiag.IsIOError(err):
			s.terminate(fmt.Errorf("tester present: %w", err))
			return
		default:
			missed++
			if missed >= s.maxMissed {
				s.terminate(fmt.Errorf("no answer to tester present %d times in a row: %w", missed, err))
				return
			}
		}
	}
}

// haltKeepAlive signals the keep-alive goroutine to exit and returns the
// channel closed when it has. The caller holds mu.
func (s *Session) haltKeepAlive() <-chan struct{} {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return s.done
}
