package passdiag

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDriverInUse     = errors.New("a passthru driver is already loaded")
	ErrNoDriver        = errors.New("no passthru driver loaded")
	ErrDeviceClosed    = errors.New("device is closed")
	ErrUnknownChannel  = errors.New("unknown channel")
	ErrTimeoutRequired = errors.New("a positive timeout is required")
)

type DriverLoadError struct {
	Path string
	Err  error
}

func (e *DriverLoadError) Error() string {
	return fmt.Sprintf("failed to load driver %q: %v", e.Path, e.Err)
}

func (e *DriverLoadError) Unwrap() error {
	return e.Err
}

type DeviceOpenError struct {
	Device string
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("failed to open device %q: %v", e.Device, e.Err)
}

func (e *DeviceOpenError) Unwrap() error {
	return e.Err
}

// ChannelError is returned when the driver rejects channel parameters.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%dms)", e.Op, e.Timeout.Milliseconds())
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IOError is any driver read or write failure that is not a timeout.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsIOError reports whether err is or wraps an *IOError.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}
