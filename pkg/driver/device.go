package driver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unsafe"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/passthru"
)

// Device is an open passthru device. It implements passdiag.CommServer.
type Device struct {
	drv  *Driver
	api  API
	desc passdiag.DeviceDescriptor
	id   uint32

	mu       sync.Mutex
	closed   bool
	channels map[passdiag.ChannelID]*channel
}

type channel struct {
	cfg      passdiag.TransportConfig
	txFlags  uint32
	filterID uint32
}

var _ passdiag.CommServer = (*Device)(nil)

func newDevice(drv *Driver, desc passdiag.DeviceDescriptor, id uint32) *Device {
	return &Device{
		drv:      drv,
		api:      drv.api,
		desc:     desc,
		id:       id,
		channels: make(map[passdiag.ChannelID]*channel),
	}
}

func (d *Device) ID() passdiag.DeviceID {
	return passdiag.DeviceID(d.id)
}

func (d *Device) Descriptor() passdiag.DeviceDescriptor {
	return d.desc
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func connectFlags(cfg passdiag.TransportConfig) uint32 {
	var flags uint32
	if cfg.IDFormat == passdiag.ExtendedID {
		flags |= passthru.CAN_29BIT_ID
	}
	if cfg.ExtendedAddressing {
		flags |= passthru.ISO15765_ADDR_TYPE
	}
	return flags
}

// Connect opens an ISO15765 channel, applies block size and STmin, clears
// the receive buffer and installs the flow control filter pairing
// TargetAddress with the physical request identifier.
func (d *Device) Connect(cfg passdiag.TransportConfig) (passdiag.ChannelID, error) {
	if err := cfg.Validate(); err != nil {
		return 0, &passdiag.ChannelError{Op: "validate", Err: err}
	}
	if d.isClosed() {
		return 0, passdiag.ErrDeviceClosed
	}

	flags := connectFlags(cfg)
	var channelID uint32
	if err := d.api.PassThruConnect(d.id, passthru.ISO15765, flags, cfg.BaudRate, &channelID); err != nil {
		return 0, &passdiag.ChannelError{Op: "connect", Err: d.describe(err)}
	}

	fail := func(op string, err error) (passdiag.ChannelID, error) {
		if errd := d.api.PassThruDisconnect(channelID); errd != nil {
			log.Printf("driver: disconnect channel %d after failed %s: %v", channelID, op, errd)
		}
		return 0, &passdiag.ChannelError{Op: op, Err: err}
	}

	params := []passthru.SCONFIG{
		{Parameter: passthru.ISO15765_BS, Value: uint32(cfg.BlockSize)},
		{Parameter: passthru.ISO15765_STMIN, Value: uint32(cfg.SeparationTimeMin)},
	}
	list := passthru.SCONFIG_LIST{NumOfParams: uint32(len(params)), ConfigPtr: &params[0]}
	if err := passthru.CheckError(d.api.PassThruIoctl(channelID, passthru.SET_CONFIG, unsafe.Pointer(&list), nil)); err != nil {
		return fail("set config", err)
	}

	if err := passthru.CheckError(d.api.PassThruIoctl(channelID, passthru.CLEAR_RX_BUFFER, nil, nil)); err != nil {
		return fail("clear rx buffer", err)
	}

	mask, pattern, flowControl := flowControlFilter(cfg, flags)
	var filterID uint32
	if err := d.api.PassThruStartMsgFilter(channelID, passthru.FLOW_CONTROL_FILTER, mask, pattern, flowControl, &filterID); err != nil {
		return fail("flow control filter", err)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fail("connect", passdiag.ErrDeviceClosed)
	}
	d.channels[passdiag.ChannelID(channelID)] = &channel{
		cfg:      cfg,
		txFlags:  flags | passthru.ISO15765_FRAME_PAD,
		filterID: filterID,
	}
	d.mu.Unlock()
	return passdiag.ChannelID(channelID), nil
}

func flowControlFilter(cfg passdiag.TransportConfig, flags uint32) (mask, pattern, flowControl *passthru.PassThruMsg) {
	size := 4
	if cfg.ExtendedAddressing {
		size = 5
	}
	build := func(id uint32) *passthru.PassThruMsg {
		msg := &passthru.PassThruMsg{ProtocolID: passthru.ISO15765, TxFlags: flags}
		buf := make([]byte, size)
		binary.BigEndian.PutUint32(buf, id)
		if cfg.ExtendedAddressing {
			buf[4] = byte(cfg.ExtAddress)
		}
		msg.SetPayload(buf)
		return msg
	}
	mask = build(cfg.IDFormat.MaxIdentifier())
	if cfg.ExtendedAddressing {
		mask.Data[4] = 0xFF
	}
	return mask, build(cfg.TargetAddress), build(cfg.FlowControlID())
}

func (d *Device) channel(ch passdiag.ChannelID) (*channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, passdiag.ErrDeviceClosed
	}
	c, ok := d.channels[ch]
	if !ok {
		return nil, passdiag.ErrUnknownChannel
	}
	return c, nil
}

// Disconnect releases ch. Releasing an unknown or already released channel
// is not an error.
func (d *Device) Disconnect(ch passdiag.ChannelID) error {
	d.mu.Lock()
	c, ok := d.channels[ch]
	delete(d.channels, ch)
	d.mu.Unlock()
	if !ok {
		return nil
	}
	if err := d.api.PassThruStopMsgFilter(uint32(ch), c.filterID); err != nil {
		log.Printf("driver: stop filter on channel %d: %v", ch, err)
	}
	if err := d.api.PassThruDisconnect(uint32(ch)); err != nil {
		return &passdiag.ChannelError{Op: "disconnect", Err: err}
	}
	return nil
}

const rxSkip = passthru.TX_MSG_TYPE | passthru.START_OF_MESSAGE | passthru.TX_INDICATION

// ReadFrame returns the next complete message received on ch. Transmit
// echoes and first frame indications are skipped.
func (d *Device) ReadFrame(ch passdiag.ChannelID, timeout time.Duration) (*passdiag.Message, error) {
	if timeout <= 0 {
		return nil, passdiag.ErrTimeoutRequired
	}
	c, err := d.channel(ch)
	if err != nil {
		return nil, err
	}
	header := 4
	if c.cfg.ExtendedAddressing {
		header = 5
	}
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &passdiag.TimeoutError{Op: "read", Timeout: timeout}
		}
		msg := &passthru.PassThruMsg{ProtocolID: passthru.ISO15765}
		n, err := d.api.PassThruReadMsg(uint32(ch), msg, uint32(remaining.Milliseconds()))
		if err != nil {
			if errors.Is(err, passthru.ErrTimeout) || errors.Is(err, passthru.ErrBufferEmpty) {
				return nil, &passdiag.TimeoutError{Op: "read", Timeout: timeout, Err: err}
			}
			return nil, &passdiag.IOError{Op: "read", Err: err}
		}
		if n == 0 {
			continue
		}
		if msg.RxStatus&rxSkip != 0 {
			continue
		}
		payload := msg.Payload()
		if len(payload) < header {
			return nil, &passdiag.IOError{Op: "read", Err: fmt.Errorf("short message of %d bytes", len(payload))}
		}
		data := make([]byte, len(payload)-header)
		copy(data, payload[header:])
		return &passdiag.Message{
			Identifier: binary.BigEndian.Uint32(payload),
			Extended:   msg.RxStatus&passthru.CAN_29BIT_ID != 0,
			Data:       data,
			Direction:  passdiag.Incoming,
		}, nil
	}
}

// WriteFrame transmits msg on ch. A zero Identifier sends on the channel's
// SourceAddress.
func (d *Device) WriteFrame(ch passdiag.ChannelID, msg *passdiag.Message, timeout time.Duration) error {
	if timeout <= 0 {
		return passdiag.ErrTimeoutRequired
	}
	c, err := d.channel(ch)
	if err != nil {
		return err
	}
	id := msg.Identifier
	if id == 0 {
		id = c.cfg.SourceAddress
	}
	buf := make([]byte, 4, 5+len(msg.Data))
	binary.BigEndian.PutUint32(buf, id)
	if c.cfg.ExtendedAddressing {
		buf = append(buf, byte(c.cfg.ExtAddress))
	}
	buf = append(buf, msg.Data...)

	out := &passthru.PassThruMsg{ProtocolID: passthru.ISO15765, TxFlags: c.txFlags}
	out.SetPayload(buf)
	numMsgs := uint32(1)
	if err := d.api.PassThruWriteMsgs(uint32(ch), out, &numMsgs, uint32(timeout.Milliseconds())); err != nil {
		if errors.Is(err, passthru.ErrTimeout) || errors.Is(err, passthru.ErrBufferFull) {
			return &passdiag.TimeoutError{Op: "write", Timeout: timeout, Err: err}
		}
		return &passdiag.IOError{Op: "write", Err: err}
	}
	return nil
}

// Ioctl passes the call straight to the driver and returns its status code.
func (d *Device) Ioctl(handle uint32, id uint32, input, output unsafe.Pointer) uint32 {
	if d.isClosed() {
		return passthru.ERR_INVALID_DEVICE_ID
	}
	return d.api.PassThruIoctl(handle, id, input, output)
}

// ReadBatteryVoltage returns the voltage on the vehicle connector in millivolts.
func (d *Device) ReadBatteryVoltage() (uint32, error) {
	var mv uint32
	if err := passthru.CheckError(d.Ioctl(d.id, passthru.READ_VBATT, nil, unsafe.Pointer(&mv))); err != nil {
		return 0, fmt.Errorf("read vbatt: %w", d.describe(err))
	}
	return mv, nil
}

type Version struct {
	Firmware string
	DLL      string
	API      string
}

func (v Version) String() string {
	return fmt.Sprintf("firmware %s, dll %s, api %s", v.Firmware, v.DLL, v.API)
}

func (d *Device) ReadVersion() (Version, error) {
	if d.isClosed() {
		return Version{}, passdiag.ErrDeviceClosed
	}
	fw, dll, api, err := d.api.PassThruReadVersion(d.id)
	if err != nil {
		return Version{}, fmt.Errorf("read version: %w", err)
	}
	return Version{Firmware: fw, DLL: dll, API: api}, nil
}

// describe attaches the vendor error text to ErrFailed.
func (d *Device) describe(err error) error {
	if !errors.Is(err, passthru.ErrFailed) {
		return err
	}
	if str, err2 := d.api.PassThruGetLastError(); err2 == nil && str != "" {
		return fmt.Errorf("%s: %w", str, err)
	}
	return err
}

// Close disconnects every channel still open and closes the device. It is
// safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	channels := d.channels
	d.channels = make(map[passdiag.ChannelID]*channel)
	d.mu.Unlock()

	for ch := range channels {
		if err := d.api.PassThruDisconnect(uint32(ch)); err != nil {
			log.Printf("driver: disconnect channel %d: %v", ch, err)
		}
	}
	err := d.api.PassThruClose(d.id)
	if err != nil {
		log.Printf("driver: close device %d: %v", d.id, err)
	}
	d.drv.release(d)
	return err
}
