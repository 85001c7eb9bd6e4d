// Package kwp2000 implements a KWP2000 diagnostic session over an ISO15765
// channel provided by a passdiag.CommServer.
package kwp2000

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/dtc"
	"github.com/roffe/passdiag/pkg/passthru"
)

const (
	StartSessionTimeout    = 2500 * time.Millisecond
	CommandTimeout         = 1000 * time.Millisecond
	WriteTimeout           = 100 * time.Millisecond
	KeepAliveTimeout       = 200 * time.Millisecond
	StopSessionTimeout     = 500 * time.Millisecond
	ResponsePendingTimeout = 5000 * time.Millisecond

	DefaultKeepAliveInterval   = 250 * time.Millisecond
	DefaultMaxMissedKeepAlives = 2
)

type State int

const (
	Closed State = iota
	Connecting
	Active
	Terminating
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Terminating:
		return "terminating"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is a diagnostic session with one ECU. It owns the channel it
// opens and releases it exactly once, whichever way the session ends.
type Session struct {
	server            passdiag.CommServer
	cfg               passdiag.TransportConfig
	id                uuid.UUID
	sessionType       byte
	keepAliveInterval time.Duration
	maxMissed         int
	events            chan Event

	// busy is held for the duration of every request on the channel
	busy sync.Mutex

	mu         sync.Mutex
	state      State
	channel    passdiag.ChannelID
	hasChannel bool
	lastErr    string
	dtcs       []dtc.DTC
	dtcsValid  bool
	stop       chan struct{}
	done       chan struct{}
}

func New(server passdiag.CommServer, cfg passdiag.TransportConfig, opts ...Option) *Session {
	s := &Session{
		server:            server,
		cfg:               cfg,
		id:                uuid.New(),
		sessionType:       EXTENDED_DIAGNOSTIC_SESSION,
		keepAliveInterval: DefaultKeepAliveInterval,
		maxMissed:         DefaultMaxMissedKeepAlives,
		events:            make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the channel and enters the diagnostic session. On failure the
// session is back in Closed, holds no channel and the error is a
// *SessionStartError. ctx is checked between the steps of the sequence.
func (s *Session) Start(ctx context.Context) error {
	s.busy.Lock()
	defer s.busy.Unlock()

	s.mu.Lock()
	if s.state != Closed {
		s.mu.Unlock()
		return &SessionStartError{Err: ErrStarted}
	}
	s.state = Connecting
	s.lastErr = ""
	s.dtcs, s.dtcsValid = nil, false
	s.mu.Unlock()

	if err := s.connect(ctx); err != nil {
		s.release()
		s.mu.Lock()
		s.state = Closed
		s.lastErr = err.Error()
		s.mu.Unlock()
		return &SessionStartError{Err: err}
	}

	s.mu.Lock()
	s.state = Active
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.keepAlive(s.channel, s.stop, s.done)
	s.mu.Unlock()

	log.Printf("session %s: active on %s", s.id, s.cfg)
	s.publish(EventStarted, nil)
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	ch, err := s.server.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.channel = ch
	s.hasChannel = true
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = s.request(ch, START_DIAGNOSTIC_SESSION, []byte{s.sessionType}, StartSessionTimeout)
	return err
}

// RunCommand sends sid and payload and returns the positive response,
// service id byte included. Only one request can be in flight, a concurrent
// caller gets ErrBusy. A negative response is returned as *ProtocolError and
// is never retried.
func (s *Session) RunCommand(sid byte, payload []byte) ([]byte, error) {
	if !s.busy.TryLock() {
		return nil, ErrBusy
	}
	defer s.busy.Unlock()

	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return nil, ErrNotActive
	}
	ch := s.channel
	s.mu.Unlock()

	resp, err := s.request(ch, sid, payload, CommandTimeout)
	if err != nil && passdiag.IsIOError(err) {
		s.terminate(err)
	}
	return resp, err
}

// request performs one exchange on ch. The caller holds busy.
func (s *Session) request(ch passdiag.ChannelID, sid byte, payload []byte, timeout time.Duration) ([]byte, error) {
	data := make([]byte, 0, 1+len(payload))
	data = append(data, sid)
	data = append(data, payload...)
	if s.cfg.Addressing == passdiag.Functional && len(data) > s.cfg.MaxFunctionalPayload() {
		return nil, fmt.Errorf("%s: %d bytes, functional limit %d: %w", ServiceName(sid), len(data), s.cfg.MaxFunctionalPayload(), ErrFunctionalTooLong)
	}
	// drop answers to earlier requests that arrived after their timeout
	s.server.Ioctl(uint32(ch), passthru.CLEAR_RX_BUFFER, nil, nil)

	msg := &passdiag.Message{
		Identifier: s.cfg.SourceAddress,
		Extended:   s.cfg.IDFormat == passdiag.ExtendedID,
		Data:       data,
		Direction:  passdiag.Outgoing,
	}
	if err := s.server.WriteFrame(ch, msg, WriteTimeout); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &passdiag.TimeoutError{Op: ServiceName(sid), Timeout: timeout}
		}
		resp, err := s.server.ReadFrame(ch, remaining)
		if err != nil {
			if passdiag.IsTimeout(err) {
				return nil, &passdiag.TimeoutError{Op: ServiceName(sid), Timeout: timeout, Err: err}
			}
			return nil, err
		}
		if resp.Identifier != 0 && resp.Identifier != s.cfg.TargetAddress {
			continue
		}
		if len(resp.Data) == 0 {
			return nil, malformed(sid, "empty response")
		}
		switch rsid := resp.Data[0]; {
		case rsid == sid+POSITIVE_RESPONSE_OFFSET:
			return resp.Data, nil
		case rsid == NEGATIVE_RESPONSE:
			if len(resp.Data) < 3 {
				return nil, malformed(sid, "short negative response % X", resp.Data)
			}
			if resp.Data[1] != sid {
				// answer to an earlier request
				continue
			}
			if resp.Data[2] == REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING {
				deadline = time.Now().Add(ResponsePendingTimeout)
				continue
			}
			return nil, &ProtocolError{Service: sid, Code: resp.Data[2]}
		case isPositiveResponse(rsid):
			// late answer to an earlier request
			continue
		default:
			return nil, malformed(sid, "unexpected response % X", resp.Data)
		}
	}
}

func isPositiveResponse(rsid byte) bool {
	return rsid >= START_DIAGNOSTIC_SESSION+POSITIVE_RESPONSE_OFFSET && rsid != NEGATIVE_RESPONSE
}

// terminate ends an Active session after a fault. The channel is released
// without StopDiagnosticSession.
func (s *Session) terminate(cause error) {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return
	}
	s.state = Terminating
	s.lastErr = cause.Error()
	s.haltKeepAlive()
	s.mu.Unlock()

	s.release()

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	log.Printf("session %s: terminated: %v", s.id, cause)
	s.publish(EventTerminated, cause)
}

// release disconnects the channel if the session still holds one.
func (s *Session) release() {
	s.mu.Lock()
	if !s.hasChannel {
		s.mu.Unlock()
		return
	}
	s.hasChannel = false
	ch := s.channel
	s.mu.Unlock()
	if err := s.server.Disconnect(ch); err != nil {
		log.Printf("session %s: disconnect channel %d: %v", s.id, ch, err)
	}
}

// End leaves the diagnostic session and releases the channel. It waits for
// an in-flight request to finish and is safe to call any number of times.
func (s *Session) End() error {
	s.shutdown(true)
	return nil
}

// Close releases the channel without leaving the diagnostic session first.
// It is meant for deferred cleanup and is safe to call after End.
func (s *Session) Close() error {
	s.shutdown(false)
	return nil
}

func (s *Session) shutdown(graceful bool) {
	s.busy.Lock()
	defer s.busy.Unlock()

	s.mu.Lock()
	done := s.haltKeepAlive()
	s.mu.Unlock()
	if done != nil {
		<-done
	}

	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	active := s.state == Active
	s.state = Terminating
	ch := s.channel
	s.mu.Unlock()

	if active && graceful {
		if _, err := s.request(ch, STOP_DIAGNOSTIC_SESSION, nil, StopSessionTimeout); err != nil {
			log.Printf("session %s: stop diagnostic session: %v", s.id, err)
		}
	}
	s.release()

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	s.publish(EventEnded, nil)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError describes the fault that ended the last session, "" if none.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Config() passdiag.TransportConfig {
	return s.cfg
}

func (s *Session) SessionType() byte {
	return s.sessionType
}

// Channel returns the channel held by the session.
func (s *Session) Channel() (passdiag.ChannelID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel, s.hasChannel
}
