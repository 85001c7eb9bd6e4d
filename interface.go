package passdiag

import (
	"time"
	"unsafe"
)

// DeviceID is the opaque device handle returned by PassThruOpen.
type DeviceID uint32

// ChannelID is the opaque logical channel handle returned by PassThruConnect.
type ChannelID uint32

// CommServer is the narrow capability the diagnostic protocol code depends on.
// The J2534 driver implements it, and so does the simulator used in tests.
type CommServer interface {
	// Connect opens a logical channel described by cfg.
	Connect(cfg TransportConfig) (ChannelID, error)
	// Disconnect releases a channel. Releasing an unknown channel is not an error.
	Disconnect(ch ChannelID) error
	// ReadFrame returns the next diagnostic message on ch. timeout is mandatory.
	ReadFrame(ch ChannelID, timeout time.Duration) (*Message, error)
	// WriteFrame transmits one diagnostic message on ch. timeout is mandatory.
	WriteFrame(ch ChannelID, msg *Message, timeout time.Duration) error
	// Ioctl is a raw pass-through, the returned status code is for the caller to interpret.
	Ioctl(handle uint32, id uint32, input, output unsafe.Pointer) uint32
}
