// Package simulator provides an in-memory ECU that answers KWP2000 requests
// the way a real control unit behind a passthru device would.
package simulator

import (
	"encoding/hex"
	"sync"
	"time"
	"unsafe"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/passthru"
)

// DTC is a stored trouble code.
type DTC struct {
	Code   uint16
	Status byte
}

type channel struct {
	cfg passdiag.TransportConfig
	rx  chan *passdiag.Message
}

// ECU implements passdiag.CommServer.
type ECU struct {
	mu       sync.Mutex
	channels map[passdiag.ChannelID]*channel
	nextID   passdiag.ChannelID

	dtcs      []DTC
	responses map[string][][]byte
	delay     time.Duration
	vbatt     uint32

	connectErr   error
	readErr      error
	startNRC     byte
	silentTester bool

	requests    [][]byte
	connects    int
	disconnects int
}

var _ passdiag.CommServer = (*ECU)(nil)

func New() *ECU {
	return &ECU{
		channels:  make(map[passdiag.ChannelID]*channel),
		nextID:    1,
		responses: make(map[string][][]byte),
		vbatt:     12600,
	}
}

// SetDTCs replaces the stored trouble codes.
func (e *ECU) SetDTCs(codes ...DTC) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dtcs = append([]DTC(nil), codes...)
}

func (e *ECU) DTCs() []DTC {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DTC(nil), e.dtcs...)
}

// SetResponse answers request with the given frames, in order. It takes
// precedence over the built in services.
func (e *ECU) SetResponse(request []byte, frames ...[]byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[hex.EncodeToString(request)] = frames
}

// SetResponseDelay delays every answer by d.
func (e *ECU) SetResponseDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delay = d
}

func (e *ECU) SetBatteryVoltage(mv uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vbatt = mv
}

// FailConnect makes Connect return err, nil restores normal operation.
func (e *ECU) FailConnect(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectErr = err
}

// FailReads makes every ReadFrame fail with an I/O error wrapping err.
func (e *ECU) FailReads(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readErr = err
}

// RejectStart answers StartDiagnosticSession with negative response nrc,
// 0 restores the positive answer.
func (e *ECU) RejectStart(nrc byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startNRC = nrc
}

// SilenceTesterPresent stops the ECU from answering TesterPresent.
func (e *ECU) SilenceTesterPresent(silent bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.silentTester = silent
}

func (e *ECU) Connects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects
}

// Disconnects counts every Disconnect call, known channel or not.
func (e *ECU) Disconnects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disconnects
}

// OpenChannels is the number of channels not yet disconnected.
func (e *ECU) OpenChannels() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}

// Requests returns every request received, in order.
func (e *ECU) Requests() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.requests))
	for i, r := range e.requests {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

func (e *ECU) Connect(cfg passdiag.TransportConfig) (passdiag.ChannelID, error) {
	if err := cfg.Validate(); err != nil {
		return 0, &passdiag.ChannelError{Op: "validate", Err: err}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.connectErr != nil {
		return 0, &passdiag.ChannelError{Op: "connect", Err: e.connectErr}
	}
	e.connects++
	id := e.nextID
	e.nextID++
	e.channels[id] = &channel{cfg: cfg, rx: make(chan *passdiag.Message, 32)}
	return id, nil
}

func (e *ECU) Disconnect(ch passdiag.ChannelID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disconnects++
	delete(e.channels, ch)
	return nil
}

func (e *ECU) channel(ch passdiag.ChannelID) (*channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.channels[ch]
	if !ok {
		return nil, passdiag.ErrUnknownChannel
	}
	return c, nil
}

func (e *ECU) ReadFrame(ch passdiag.ChannelID, timeout time.Duration) (*passdiag.Message, error) {
	if timeout <= 0 {
		return nil, passdiag.ErrTimeoutRequired
	}
	c, err := e.channel(ch)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	readErr := e.readErr
	e.mu.Unlock()
	if readErr != nil {
		return nil, &passdiag.IOError{Op: "read", Err: readErr}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case msg := <-c.rx:
		return msg, nil
	case <-t.C:
		return nil, &passdiag.TimeoutError{Op: "read", Timeout: timeout}
	}
}

func (e *ECU) WriteFrame(ch passdiag.ChannelID, msg *passdiag.Message, timeout time.Duration) error {
	if timeout <= 0 {
		return passdiag.ErrTimeoutRequired
	}
	c, err := e.channel(ch)
	if err != nil {
		return err
	}
	if len(msg.Data) == 0 {
		return nil
	}

	e.mu.Lock()
	e.requests = append(e.requests, append([]byte(nil), msg.Data...))
	frames := e.handle(msg.Data)
	delay := e.delay
	e.mu.Unlock()

	deliver := func() {
		for _, f := range frames {
			resp := &passdiag.Message{
				Identifier: c.cfg.TargetAddress,
				Extended:   c.cfg.IDFormat == passdiag.ExtendedID,
				Data:       f,
				Direction:  passdiag.Incoming,
			}
			select {
			case c.rx <- resp:
			default:
			}
		}
	}
	if delay > 0 {
		time.AfterFunc(delay, deliver)
	} else {
		deliver()
	}
	return nil
}

// Ioctl answers READ_VBATT, empties the receive queue on CLEAR_RX_BUFFER
// and accepts the other channel setup ioctls.
func (e *ECU) Ioctl(handle uint32, id uint32, input, output unsafe.Pointer) uint32 {
	switch id {
	case passthru.READ_VBATT:
		if output == nil {
			return passthru.ERR_NULL_PARAMETER
		}
		e.mu.Lock()
		*(*uint32)(output) = e.vbatt
		e.mu.Unlock()
		return passthru.STATUS_NOERROR
	case passthru.CLEAR_RX_BUFFER:
		c, err := e.channel(passdiag.ChannelID(handle))
		if err != nil {
			return passthru.ERR_INVALID_CHANNEL_ID
		}
		for {
			select {
			case <-c.rx:
			default:
				return passthru.STATUS_NOERROR
			}
		}
	case passthru.SET_CONFIG, passthru.GET_CONFIG, passthru.CLEAR_TX_BUFFER:
		return passthru.STATUS_NOERROR
	}
	return passthru.ERR_INVALID_IOCTL_ID
}

// ReadBatteryVoltage mirrors driver.Device.
func (e *ECU) ReadBatteryVoltage() (uint32, error) {
	var mv uint32
	if err := passthru.CheckError(e.Ioctl(0, passthru.READ_VBATT, nil, unsafe.Pointer(&mv))); err != nil {
		return 0, err
	}
	return mv, nil
}

// Close drops every open channel.
func (e *ECU) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.channels = make(map[passdiag.ChannelID]*channel)
	return nil
}
