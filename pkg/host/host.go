// Package host is the upward API: it owns the loaded driver, the open device
// and the diagnostic session, and is the only place they are created.
package host

import (
	"context"
	"log"
	"sync"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/driver"
	"github.com/roffe/passdiag/pkg/dtc"
	"github.com/roffe/passdiag/pkg/kwp2000"
	"github.com/roffe/passdiag/pkg/simulator"
)

// Device is what the host needs from an open device.
type Device interface {
	passdiag.CommServer
	ReadBatteryVoltage() (uint32, error)
	Close() error
}

const simulatorPath = "simulator"

type Option func(*Host)

// WithSimulator serves every connection from ecu instead of a passthru driver.
func WithSimulator(ecu *simulator.ECU) Option {
	return func(h *Host) {
		h.ecu = ecu
	}
}

// WithDevice lists desc in addition to the discovered drivers.
func WithDevice(desc passdiag.DeviceDescriptor) Option {
	return func(h *Host) {
		h.extra = append(h.extra, desc)
	}
}

func WithSessionOptions(opts ...kwp2000.Option) Option {
	return func(h *Host) {
		h.sessionOpts = append(h.sessionOpts, opts...)
	}
}

type Host struct {
	ecu         *simulator.ECU
	extra       []passdiag.DeviceDescriptor
	sessionOpts []kwp2000.Option

	mu      sync.Mutex
	drv     *driver.Driver
	dev     Device
	devID   passdiag.DeviceID
	session *kwp2000.Session
}

func New(opts ...Option) *Host {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListDevices returns the installed passthru drivers. An empty list is valid.
func (h *Host) ListDevices() ([]passdiag.DeviceDescriptor, error) {
	var out []passdiag.DeviceDescriptor
	if h.ecu != nil {
		out = []passdiag.DeviceDescriptor{{ID: 0, Name: "Simulated ECU", DriverPath: simulatorPath}}
	} else {
		out = driver.ListDevices()
	}
	for _, d := range h.extra {
		d.ID = len(out)
		out = append(out, d)
	}
	return out, nil
}

// Connect loads the driver of desc and opens its device. Only one device can
// be connected, a second Connect fails with passdiag.ErrDriverInUse.
func (h *Host) Connect(desc passdiag.DeviceDescriptor) (passdiag.DeviceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dev != nil {
		return 0, passdiag.ErrDriverInUse
	}
	if h.ecu != nil && desc.DriverPath == simulatorPath {
		h.dev = h.ecu
		h.devID = 1
		return h.devID, nil
	}

	drv, err := driver.Load(desc.DriverPath)
	if err != nil {
		return 0, err
	}
	dev, err := drv.Open(desc)
	if err != nil {
		if errc := drv.Close(); errc != nil {
			log.Printf("host: unload driver: %v", errc)
		}
		return 0, err
	}
	h.drv = drv
	h.dev = dev
	h.devID = dev.ID()
	return h.devID, nil
}

// OpenChannel starts a diagnostic session on a new channel described by cfg.
func (h *Host) OpenChannel(ctx context.Context, cfg passdiag.TransportConfig) (passdiag.ChannelID, error) {
	h.mu.Lock()
	if h.dev == nil {
		h.mu.Unlock()
		return 0, passdiag.ErrNoDriver
	}
	if h.session != nil && h.session.State() != kwp2000.Closed {
		h.mu.Unlock()
		return 0, &kwp2000.SessionStartError{Err: kwp2000.ErrStarted}
	}
	s := kwp2000.New(h.dev, cfg, h.sessionOpts...)
	h.session = s
	h.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		return 0, err
	}
	ch, _ := s.Channel()
	return ch, nil
}

// Session is the current or last diagnostic session, nil before the first
// OpenChannel.
func (h *Host) Session() *kwp2000.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

func (h *Host) active() (*kwp2000.Session, error) {
	s := h.Session()
	if s == nil {
		return nil, kwp2000.ErrNotActive
	}
	return s, nil
}

func (h *Host) RunCommand(sid byte, payload []byte) ([]byte, error) {
	s, err := h.active()
	if err != nil {
		return nil, err
	}
	return s.RunCommand(sid, payload)
}

// SendHex parses user entered hex and sends it, the first byte being the
// service id.
func (h *Host) SendHex(payload string) ([]byte, error) {
	b, err := kwp2000.ParseHexPayload(payload)
	if err != nil {
		return nil, err
	}
	return h.RunCommand(b[0], b[1:])
}

func (h *Host) ReadDTCs() ([]dtc.DTC, error) {
	s, err := h.active()
	if err != nil {
		return nil, err
	}
	return s.ReadDTCs()
}

func (h *Host) ClearDTCs() error {
	s, err := h.active()
	if err != nil {
		return err
	}
	return s.ClearDTCs()
}

// EndSession leaves the diagnostic session. The session stays queryable.
func (h *Host) EndSession() error {
	s := h.Session()
	if s == nil {
		return nil
	}
	return s.End()
}

// BatteryVoltage reads the vehicle supply voltage in millivolts.
func (h *Host) BatteryVoltage() (uint32, error) {
	h.mu.Lock()
	dev := h.dev
	h.mu.Unlock()
	if dev == nil {
		return 0, passdiag.ErrNoDriver
	}
	return dev.ReadBatteryVoltage()
}

func (h *Host) DeviceID() (passdiag.DeviceID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.devID, h.dev != nil
}

// Close ends the session, closes the device and unloads the driver. The
// host can be connected again afterwards.
func (h *Host) Close() error {
	h.mu.Lock()
	s, dev, drv := h.session, h.dev, h.drv
	h.dev, h.drv = nil, nil
	h.mu.Unlock()

	if s != nil {
		s.End()
	}
	if dev != nil {
		if err := dev.Close(); err != nil {
			log.Printf("host: close device: %v", err)
		}
	}
	if drv != nil {
		return drv.Close()
	}
	return nil
}
