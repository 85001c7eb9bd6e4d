package passthru

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported        = errors.New("device cannot support requested functionality mandated in J2534")
	ErrInvalidChannelID    = errors.New("invalid ChannelID value")
	ErrInvalidProtocolID   = errors.New("invalid or unsupported ProtocolID, or there is a resource conflict")
	ErrNullParameter       = errors.New("NULL pointer supplied where a valid pointer is required")
	ErrInvalidIoctlValue   = errors.New("invalid value for Ioctl parameter")
	ErrInvalidFlags        = errors.New("invalid flag values")
	ErrFailed              = errors.New("undefined error, use PassThruGetLastError() for text description")
	ErrDeviceNotConnected  = errors.New("unable to communicate with device")
	ErrTimeout             = errors.New("read or write timeout")
	ErrInvalidMsg          = errors.New("invalid message structure pointed to by pMsg")
	ErrInvalidTimeInterval = errors.New("invalid TimeInterval value")
	ErrExceededLimit       = errors.New("exceeded maximum number of message IDs or allocated space")
	ErrInvalidMsgID        = errors.New("invalid MsgID value")
	ErrDeviceInUse         = errors.New("device is currently open")
	ErrInvalidIoctlID      = errors.New("invalid IoctlID value")
	ErrBufferEmpty         = errors.New("protocol message buffer empty, no messages available to read")
	ErrBufferFull          = errors.New("protocol message buffer full, all the messages specified may not have been transmitted")
	ErrBufferOverflow      = errors.New("indicates a buffer overflow occurred and messages were lost")
	ErrPinInvalid          = errors.New("invalid pin number, pin number already in use, or voltage already applied to a different pin")
	ErrChannelInUse        = errors.New("channel number is currently connected")
	ErrMsgProtocolID       = errors.New("protocol type in the message does not match the protocol associated with the Channel ID")
	ErrInvalidFilterID     = errors.New("invalid Filter ID value")
	ErrNoFlowControl       = errors.New("no flow control filter set or matched")
	ErrNotUnique           = errors.New("a CAN ID in pPatternMsg or pFlowControlMsg matches either ID in an existing FLOW_CONTROL_FILTER")
	ErrInvalidBaudrate     = errors.New("the desired baud rate cannot be achieved within the tolerance specified in SAE J2534-1 Section 6.5")
	ErrInvalidDeviceID     = errors.New("device ID invalid")
)

var statusErrors = map[uint32]error{
	ERR_NOT_SUPPORTED:         ErrNotSupported,
	ERR_INVALID_CHANNEL_ID:    ErrInvalidChannelID,
	ERR_INVALID_PROTOCOL_ID:   ErrInvalidProtocolID,
	ERR_NULL_PARAMETER:        ErrNullParameter,
	ERR_INVALID_IOCTL_VALUE:   ErrInvalidIoctlValue,
	ERR_INVALID_FLAGS:         ErrInvalidFlags,
	ERR_FAILED:                ErrFailed,
	ERR_DEVICE_NOT_CONNECTED:  ErrDeviceNotConnected,
	ERR_TIMEOUT:               ErrTimeout,
	ERR_INVALID_MSG:           ErrInvalidMsg,
	ERR_INVALID_TIME_INTERVAL: ErrInvalidTimeInterval,
	ERR_EXCEEDED_LIMIT:        ErrExceededLimit,
	ERR_INVALID_MSG_ID:        ErrInvalidMsgID,
	ERR_DEVICE_IN_USE:         ErrDeviceInUse,
	ERR_INVALID_IOCTL_ID:      ErrInvalidIoctlID,
	ERR_BUFFER_EMPTY:          ErrBufferEmpty,
	ERR_BUFFER_FULL:           ErrBufferFull,
	ERR_BUFFER_OVERFLOW:       ErrBufferOverflow,
	ERR_PIN_INVALID:           ErrPinInvalid,
	ERR_CHANNEL_IN_USE:        ErrChannelInUse,
	ERR_MSG_PROTOCOL_ID:       ErrMsgProtocolID,
	ERR_INVALID_FILTER_ID:     ErrInvalidFilterID,
	ERR_NO_FLOW_CONTROL:       ErrNoFlowControl,
	ERR_NOT_UNIQUE:            ErrNotUnique,
	ERR_INVALID_BAUDRATE:      ErrInvalidBaudrate,
	ERR_INVALID_DEVICE_ID:     ErrInvalidDeviceID,
}

// CheckError maps a J2534 return value to an error, nil for STATUS_NOERROR.
func CheckError(ret uint32) error {
	if ret == STATUS_NOERROR {
		return nil
	}
	if err, ok := statusErrors[ret]; ok {
		return err
	}
	return fmt.Errorf("unknown error: %d", ret)
}

// MissingSymbolError is returned by New when the library lacks a required entry point.
type MissingSymbolError struct {
	Symbol string
	Err    error
}

func (e *MissingSymbolError) Error() string {
	return fmt.Sprintf("missing symbol %s: %v", e.Symbol, e.Err)
}

func (e *MissingSymbolError) Unwrap() error {
	return e.Err
}
