package kwp2000_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/kwp2000"
	"github.com/roffe/passdiag/pkg/simulator"
)

var testConfig = passdiag.TransportConfig{
	Name:              "ezs",
	SourceAddress:     0x7E0,
	TargetAddress:     0x7E8,
	BaudRate:          500000,
	BlockSize:         8,
	SeparationTimeMin: 20,
}

func startSession(t *testing.T, ecu *simulator.ECU, opts ...kwp2000.Option) *kwp2000.Session {
	t.Helper()
	s := kwp2000.New(ecu, testConfig, opts...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitState(t *testing.T, s *kwp2000.Session, want kwp2000.State, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s after %s", s.State(), want, within)
}

func count(reqs [][]byte, sid byte) int {
	n := 0
	for _, r := range reqs {
		if r[0] == sid {
			n++
		}
	}
	return n
}

func TestStart(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu)
	if s.State() != kwp2000.Active {
		t.Fatalf("state = %s", s.State())
	}
	if _, ok := s.Channel(); !ok {
		t.Error("active session holds no channel")
	}
	reqs := ecu.Requests()
	if passdiag.HexString(reqs[0]) != "10 92" {
		t.Errorf("first request % X", reqs[0])
	}
	select {
	case ev := <-s.Events():
		if ev.Type != kwp2000.EventStarted || ev.Session != s.ID() {
			t.Errorf("event %s", ev)
		}
	default:
		t.Error("no started event")
	}
	if err := s.Start(context.Background()); !errors.Is(err, kwp2000.ErrStarted) {
		t.Errorf("second start: %v", err)
	}
}

func TestStartFailures(t *testing.T) {
	tests := []struct {
		name            string
		cfg             passdiag.TransportConfig
		setup           func(*simulator.ECU)
		wantDisconnects int
		check           func(*testing.T, error)
	}{
		{
			name: "invalid config",
			cfg:  passdiag.TransportConfig{SourceAddress: 0x7E0, TargetAddress: 0x7E0, BaudRate: 500000},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, passdiag.ErrInvalidAddress) {
					t.Errorf("got %v", err)
				}
			},
		},
		{
			name:  "connect rejected",
			cfg:   testConfig,
			setup: func(e *simulator.ECU) { e.FailConnect(errors.New("bus off")) },
			check: func(t *testing.T, err error) {
				var ce *passdiag.ChannelError
				if !errors.As(err, &ce) {
					t.Errorf("got %v", err)
				}
			},
		},
		{
			name:            "negative response",
			cfg:             testConfig,
			setup:           func(e *simulator.ECU) { e.RejectStart(kwp2000.CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR) },
			wantDisconnects: 1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, kwp2000.ErrConditionsNotCorrect) {
					t.Errorf("got %v", err)
				}
			},
		},
		{
			name:            "no answer",
			cfg:             testConfig,
			setup:           func(e *simulator.ECU) { e.SetResponse([]byte{0x10, 0x92}) },
			wantDisconnects: 1,
			check: func(t *testing.T, err error) {
				if !passdiag.IsTimeout(err) {
					t.Errorf("got %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ecu := simulator.New()
			if tt.setup != nil {
				tt.setup(ecu)
			}
			s := kwp2000.New(ecu, tt.cfg)
			err := s.Start(context.Background())
			var se *kwp2000.SessionStartError
			if !errors.As(err, &se) {
				t.Fatalf("got %v, want SessionStartError", err)
			}
			tt.check(t, err)
			if s.State() != kwp2000.Closed {
				t.Errorf("state = %s", s.State())
			}
			if _, ok := s.Channel(); ok {
				t.Error("closed session still holds a channel")
			}
			if ecu.OpenChannels() != 0 || ecu.Disconnects() != tt.wantDisconnects {
				t.Errorf("open %d disconnects %d", ecu.OpenChannels(), ecu.Disconnects())
			}
			if s.LastError() == "" {
				t.Error("empty last error")
			}
		})
	}
}

func TestStartCancelled(t *testing.T) {
	ecu := simulator.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := kwp2000.New(ecu, testConfig).Start(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
	if ecu.Connects() != 0 {
		t.Error("connected with cancelled context")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu)
	for i := 0; i < 2; i++ {
		if err := s.End(); err != nil {
			t.Fatal(err)
		}
		if s.State() != kwp2000.Closed {
			t.Fatalf("end #%d: state = %s", i+1, s.State())
		}
	}
	s.Close()
	if ecu.Disconnects() != 1 {
		t.Errorf("disconnects = %d, want 1", ecu.Disconnects())
	}
	if n := count(ecu.Requests(), kwp2000.STOP_DIAGNOSTIC_SESSION); n != 1 {
		t.Errorf("stop requests = %d, want 1", n)
	}
	if _, err := s.RunCommand(0x1A, []byte{0x86}); !errors.Is(err, kwp2000.ErrNotActive) {
		t.Errorf("command after end: %v", err)
	}
}

func TestCloseReleasesOnce(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu)
	s.Close()
	s.Close()
	s.End()
	if ecu.Disconnects() != 1 || ecu.OpenChannels() != 0 {
		t.Errorf("disconnects %d open %d", ecu.Disconnects(), ecu.OpenChannels())
	}
	if n := count(ecu.Requests(), kwp2000.STOP_DIAGNOSTIC_SESSION); n != 0 {
		t.Errorf("abort sent %d stop requests", n)
	}
}

func TestRunCommand(t *testing.T) {
	ecu := simulator.New()
	ecu.SetResponse([]byte{0x22, 0xF1, 0x90}, []byte{0x62, 0xF1, 0x90, 0xAA, 0xBB})
	s := startSession(t, ecu)

	resp, err := s.RunCommand(0x22, []byte{0xF1, 0x90})
	if err != nil {
		t.Fatal(err)
	}
	if got := passdiag.HexString(resp); got != "62 F1 90 AA BB" {
		t.Errorf("got %s", got)
	}

	_, err = s.RunCommand(0x31, []byte{0x01})
	var pe *kwp2000.ProtocolError
	if !errors.As(err, &pe) || pe.Code != kwp2000.SERVICE_NOT_SUPPORTED || pe.Service != 0x31 {
		t.Errorf("got %v", err)
	}
	if s.State() != kwp2000.Active {
		t.Errorf("negative response changed state to %s", s.State())
	}
}

func TestRunCommandResponsePending(t *testing.T) {
	ecu := simulator.New()
	ecu.SetResponse([]byte{0x31, 0x02}, []byte{0x7F, 0x31, 0x78}, []byte{0x7F, 0x31, 0x78}, []byte{0x71, 0x02})
	s := startSession(t, ecu)
	resp, err := s.RunCommand(0x31, []byte{0x02})
	if err != nil {
		t.Fatal(err)
	}
	if passdiag.HexString(resp) != "71 02" {
		t.Errorf("got % X", resp)
	}
}

func TestRunCommandMalformed(t *testing.T) {
	ecu := simulator.New()
	ecu.SetResponse([]byte{0x1A, 0x86}, []byte{0x33})
	s := startSession(t, ecu)
	_, err := s.RunCommand(0x1A, []byte{0x86})
	var pe *kwp2000.ProtocolError
	if !errors.As(err, &pe) || pe.Code != 0 {
		t.Errorf("got %v", err)
	}
}

func TestRunCommandLateAnswer(t *testing.T) {
	ecu := simulator.New()
	ecu.SetResponse([]byte{0x1A, 0x86}, []byte{0x5A, 0x86, 0x01})
	ecu.SetResponse([]byte{0x22, 0xF1, 0x90}, []byte{0x62, 0xF1, 0x90, 0xAA})
	ecu.SetResponse([]byte{0x22, 0xF1, 0x91}, []byte{0x62, 0xF1, 0x91, 0xBB})
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(time.Hour))

	tests := []struct {
		name      string
		late      []byte
		settle    time.Duration
		nextDelay time.Duration
		next      []byte
		want      string
	}{
		// the late answer arrives while the next request waits
		{"other service", []byte{0x1A, 0x86}, 0, 300 * time.Millisecond, []byte{0x22, 0xF1, 0x90}, "62 F1 90 AA"},
		// the late answer is already queued when the next request is sent
		{"same service", []byte{0x22, 0xF1, 0x90}, 200 * time.Millisecond, 0, []byte{0x22, 0xF1, 0x91}, "62 F1 91 BB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ecu.SetResponseDelay(kwp2000.CommandTimeout + 100*time.Millisecond)
			if _, err := s.RunCommand(tt.late[0], tt.late[1:]); !passdiag.IsTimeout(err) {
				t.Fatalf("got %v, want timeout", err)
			}
			time.Sleep(tt.settle)
			ecu.SetResponseDelay(tt.nextDelay)
			resp, err := s.RunCommand(tt.next[0], tt.next[1:])
			if err != nil {
				t.Fatal(err)
			}
			if got := passdiag.HexString(resp); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if s.State() != kwp2000.Active {
				t.Errorf("state = %s", s.State())
			}
			time.Sleep(200 * time.Millisecond)
		})
	}
}

func TestRunCommandFunctional(t *testing.T) {
	ecu := simulator.New()
	ecu.SetResponse([]byte{0x1A, 0x86}, []byte{0x5A, 0x86, 0x01})
	cfg := testConfig
	cfg.SourceAddress = 0x7DF
	cfg.FlowControlAddress = 0x7E0
	cfg.Addressing = passdiag.Functional
	s := kwp2000.New(ecu, cfg, kwp2000.WithKeepAliveInterval(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.RunCommand(0x1A, []byte{0x86}); err != nil {
		t.Fatalf("single frame request: %v", err)
	}
	long := make([]byte, 20)
	if _, err := s.RunCommand(0x3B, long); !errors.Is(err, kwp2000.ErrFunctionalTooLong) {
		t.Fatalf("got %v, want ErrFunctionalTooLong", err)
	}
	if s.State() != kwp2000.Active {
		t.Errorf("state = %s", s.State())
	}
	for _, r := range ecu.Requests() {
		if len(r) > cfg.MaxFunctionalPayload() {
			t.Errorf("ECU received %d byte functional request", len(r))
		}
	}
}

func TestRunCommandBusy(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(time.Hour))
	ecu.SetResponseDelay(300 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.RunCommand(0x3E, []byte{0x01})
	}()
	time.Sleep(50 * time.Millisecond)
	if _, err := s.RunCommand(0x3E, []byte{0x01}); !errors.Is(err, kwp2000.ErrBusy) {
		t.Errorf("concurrent command: got %v, want ErrBusy", err)
	}
	wg.Wait()
	if firstErr != nil {
		t.Errorf("first command: %v", firstErr)
	}
}

func TestRunCommandIOErrorTerminates(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(time.Hour))
	ecu.FailReads(errors.New("usb unplugged"))
	if _, err := s.RunCommand(0x1A, []byte{0x86}); !passdiag.IsIOError(err) {
		t.Fatalf("got %v", err)
	}
	if s.State() != kwp2000.Closed || s.LastError() == "" {
		t.Errorf("state %s last error %q", s.State(), s.LastError())
	}
	if ecu.Disconnects() != 1 {
		t.Errorf("disconnects = %d", ecu.Disconnects())
	}
}

func TestReadDTCs(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu)

	codes, err := s.ReadDTCs()
	if err != nil {
		t.Fatal(err)
	}
	if codes == nil || len(codes) != 0 {
		t.Fatalf("got %#v, want empty slice", codes)
	}

	ecu.SetDTCs(simulator.DTC{Code: 0x0105, Status: 0x08}, simulator.DTC{Code: 0x1234, Status: 0x01})
	codes, err = s.ReadDTCs()
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 2 || codes[0].Code != "0105" || codes[1].Description != "Unknown DTC 0x1234" {
		t.Errorf("got %v", codes)
	}
	cached, ok := s.CachedDTCs()
	if !ok || len(cached) != 2 {
		t.Errorf("cache %v %v", cached, ok)
	}
}

func TestClearDTCs(t *testing.T) {
	ecu := simulator.New()
	ecu.SetDTCs(simulator.DTC{Code: 0x0300, Status: 0x09})
	s := startSession(t, ecu)

	if _, err := s.ReadDTCs(); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearDTCs(); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.CachedDTCs(); ok {
		t.Error("cache still valid after clear")
	}
	codes, err := s.ReadDTCs()
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 0 {
		t.Errorf("got %v after clear", codes)
	}
}

func TestClearDTCsFailureKeepsCache(t *testing.T) {
	ecu := simulator.New()
	ecu.SetDTCs(simulator.DTC{Code: 0x0300, Status: 0x09})
	ecu.SetResponse([]byte{0x14, 0xFF, 0x00}, []byte{0x7F, 0x14, 0x22})
	s := startSession(t, ecu)

	if _, err := s.ReadDTCs(); err != nil {
		t.Fatal(err)
	}
	err := s.ClearDTCs()
	var ce *kwp2000.ClearError
	if !errors.As(err, &ce) || !errors.Is(err, kwp2000.ErrConditionsNotCorrect) {
		t.Fatalf("got %v", err)
	}
	if cached, ok := s.CachedDTCs(); !ok || len(cached) != 1 {
		t.Errorf("cache %v %v", cached, ok)
	}
}

func TestKeepAlive(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(20*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	if n := count(ecu.Requests(), kwp2000.TESTER_PRESENT); n < 2 {
		t.Errorf("tester present sent %d times", n)
	}
	if s.State() != kwp2000.Active {
		t.Errorf("state = %s", s.State())
	}
}

func TestKeepAliveReadFailure(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(20*time.Millisecond))
	ecu.FailReads(errors.New("device not connected"))

	waitState(t, s, kwp2000.Closed, time.Second)
	if s.LastError() == "" {
		t.Error("empty last error")
	}
	if ecu.Disconnects() != 1 {
		t.Errorf("disconnects = %d", ecu.Disconnects())
	}
	if err := s.End(); err != nil || ecu.Disconnects() != 1 {
		t.Errorf("end after termination: %v, disconnects %d", err, ecu.Disconnects())
	}

	if ev := waitEvent(t, s, kwp2000.EventTerminated); ev.Err == nil {
		t.Error("terminated event without cause")
	}
}

func TestKeepAliveMisses(t *testing.T) {
	ecu := simulator.New()
	s := startSession(t, ecu, kwp2000.WithKeepAliveInterval(20*time.Millisecond), kwp2000.WithMaxMissedKeepAlives(2))
	ecu.SilenceTesterPresent(true)

	waitState(t, s, kwp2000.Closed, 2*time.Second)
	if s.LastError() == "" {
		t.Error("empty last error")
	}
	if ecu.OpenChannels() != 0 {
		t.Error("channel not released")
	}
}

func waitEvent(t *testing.T, s *kwp2000.Session, want kwp2000.EventType) kwp2000.Event {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case ev := <-s.Events():
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("no %s event", want)
		}
	}
}
