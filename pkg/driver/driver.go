// Package driver owns the loaded J2534 passthru library and the device and
// channels opened through it.
package driver

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/passthru"
)

// API is the J2534 function table. *passthru.PassThru implements it.
type API interface {
	PassThruOpen(deviceName string, pDeviceID *uint32) error
	PassThruClose(deviceID uint32) error
	PassThruConnect(deviceID, protocolID, flags, baudRate uint32, pChannelID *uint32) error
	PassThruDisconnect(channelID uint32) error
	PassThruReadMsg(channelID uint32, pMsg *passthru.PassThruMsg, timeout uint32) (uint32, error)
	PassThruWriteMsgs(channelID uint32, pMsg *passthru.PassThruMsg, pNumMsgs *uint32, timeout uint32) error
	PassThruStartMsgFilter(channelID, filterType uint32, pMaskMsg, pPatternMsg, pFlowControlMsg *passthru.PassThruMsg, pMsgID *uint32) error
	PassThruStopMsgFilter(channelID, msgID uint32) error
	PassThruIoctl(handleID, ioctlID uint32, input, output unsafe.Pointer) uint32
	PassThruReadVersion(deviceID uint32) (string, string, string, error)
	PassThruGetLastError() (string, error)
	Close() error
}

var _ API = (*passthru.PassThru)(nil)

// loaded is held for as long as a driver library is bound in the process.
var loaded sync.Mutex

type opener func(path string) (API, error)

func openPassThru(path string) (API, error) {
	return passthru.New(path)
}

// Driver is the single loaded passthru library.
type Driver struct {
	path string
	api  API

	mu     sync.Mutex
	dev    *Device
	closed bool
}

// Load binds the J2534 library at path. Only one driver can be loaded per
// process, a second Load fails with passdiag.ErrDriverInUse until the first
// is closed.
func Load(path string) (*Driver, error) {
	return load(path, openPassThru)
}

func load(path string, open opener) (*Driver, error) {
	if !loaded.TryLock() {
		return nil, passdiag.ErrDriverInUse
	}
	api, err := open(path)
	if err != nil {
		loaded.Unlock()
		return nil, &passdiag.DriverLoadError{Path: path, Err: err}
	}
	return &Driver{path: path, api: api}, nil
}

func (d *Driver) Path() string {
	return d.path
}

// Open opens the passthru device served by the driver. A driver serves one
// open device at a time.
func (d *Driver) Open(desc passdiag.DeviceDescriptor) (*Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, passdiag.ErrNoDriver
	}
	if d.dev != nil {
		return nil, &passdiag.DeviceOpenError{Device: desc.Name, Err: passthru.ErrDeviceInUse}
	}
	var deviceID uint32
	if err := d.api.PassThruOpen("", &deviceID); err != nil {
		if str, err2 := d.api.PassThruGetLastError(); err2 == nil && str != "" {
			err = fmt.Errorf("%s: %w", str, err)
		}
		return nil, &passdiag.DeviceOpenError{Device: desc.Name, Err: err}
	}
	d.dev = newDevice(d, desc, deviceID)
	return d.dev, nil
}

func (d *Driver) release(dev *Device) {
	d.mu.Lock()
	if d.dev == dev {
		d.dev = nil
	}
	d.mu.Unlock()
}

// Close closes any open device, unloads the library and releases the
// process-wide driver lock. Calling Close more than once is a no-op.
func (d *Driver) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	dev := d.dev
	d.mu.Unlock()

	if dev != nil {
		if err := dev.Close(); err != nil {
			log.Printf("driver: close device: %v", err)
		}
	}
	err := d.api.Close()
	if err != nil {
		log.Printf("driver: unload %s: %v", d.path, err)
	}
	loaded.Unlock()
	return err
}

// ListDevices enumerates the passthru drivers installed on the system. An
// empty list is not an error.
func ListDevices() []passdiag.DeviceDescriptor {
	return descriptors(passthru.FindDLLs())
}

func descriptors(prefix string, dlls []passthru.J2534DLL) []passdiag.DeviceDescriptor {
	out := make([]passdiag.DeviceDescriptor, 0, len(dlls))
	for i, dll := range dlls {
		out = append(out, passdiag.DeviceDescriptor{
			ID:         i,
			Name:       prefix + dll.Name,
			DriverPath: dll.FunctionLibrary,
		})
	}
	return out
}
