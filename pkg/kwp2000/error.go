package kwp2000

import (
	"errors"
	"fmt"
)

const (
	GENERAL_REJECT                                     = 0x10
	SERVICE_NOT_SUPPORTED                              = 0x11
	SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT        = 0x12
	BUSY_REPEAT_REQUEST                                = 0x21
	CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR   = 0x22
	ROUTINE_NOT_COMPLETE_OR_SERVICE_IN_PROGRESS        = 0x23
	REQUEST_OUT_OF_RANGE                               = 0x31
	SECURITY_ACCESS_DENIED                             = 0x33
	INVALID_KEY                                        = 0x35
	EXCEED_NUMBER_OF_ATTEMPTS                          = 0x36
	REQUIRED_TIME_DELAY_NOT_EXPIRED                    = 0x37
	REQUEST_CORRECTLY_RECEIVED_RESPONSE_PENDING        = 0x78
	SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION = 0x80
)

var (
	ErrBusy      = errors.New("a request is already in flight")
	ErrNotActive = errors.New("diagnostic session is not active")
	ErrStarted   = errors.New("diagnostic session already started")
	// ErrFunctionalTooLong is returned for functionally addressed requests
	// that do not fit a single frame.
	ErrFunctionalTooLong = errors.New("request does not fit a single frame")
)

var (
	ErrGeneralReject         = &ProtocolError{Code: GENERAL_REJECT}
	ErrServiceNotSupported   = &ProtocolError{Code: SERVICE_NOT_SUPPORTED}
	ErrInvalidFormat         = &ProtocolError{Code: SUBFUNCTION_NOT_SUPPORTED_OR_INVALID_FORMAT}
	ErrBusyRepeatRequest     = &ProtocolError{Code: BUSY_REPEAT_REQUEST}
	ErrConditionsNotCorrect  = &ProtocolError{Code: CONDITIONS_NOT_CORRECT_OR_REQUEST_SEQUENCE_ERROR}
	ErrRequestOutOfRange     = &ProtocolError{Code: REQUEST_OUT_OF_RANGE}
	ErrSecurityAccessDenied  = &ProtocolError{Code: SECURITY_ACCESS_DENIED}
	ErrNotSupportedInSession = &ProtocolError{Code: SERVICE_NOT_SUPPORTED_IN_ACTIVE_DIAGNOSTIC_SESSION}
)

// ProtocolError is a negative response from the ECU, or a response that
// could not be parsed, in which case Code is 0.
type ProtocolError struct {
	Service byte
	Code    byte
	Msg     string
}

func (e *ProtocolError) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: %s", ServiceName(e.Service), e.Msg)
	}
	return fmt.Sprintf("%s: negative response 0x%02X: %s", ServiceName(e.Service), e.Code, TranslateErrorCode(e.Code))
}

// Is matches on response code, and on service when the target names one.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Service == 0 || t.Service == e.Service)
}

func malformed(sid byte, format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Service: sid, Msg: fmt.Sprintf(format, args...)}
}

// SessionStartError is returned by Start when the session could not be
// brought up. The channel is released before it is returned.
type SessionStartError struct {
	Err error
}

func (e *SessionStartError) Error() string {
	return fmt.Sprintf("failed to start diagnostic session: %v", e.Err)
}

func (e *SessionStartError) Unwrap() error {
	return e.Err
}

type ClearError struct {
	Err error
}

func (e *ClearError) Error() string {
	return fmt.Sprintf("failed to clear DTCs: %v", e.Err)
}

func (e *ClearError) Unwrap() error {
	return e.Err
}

func TranslateErrorCode(p byte) string {
	switch p {
	case 0x00:
		return "Affirmative response"
	case 0x10:
		return "General reject"
	case 0x11:
		return "Service not supported"
	case 0x12:
		return "Sub-function not supported - invalid format"
	case 0x21:
		return "Busy, repeat request"
	case 0x22:
		return "Conditions not correct or request sequence error"
	case 0x23:
		return "Routine not completed or service in progress"
	case 0x31:
		return "Request out of range"
	case 0x33:
		return "Security access denied"
	case 0x35:
		return "Invalid key supplied"
	case 0x36:
		return "Exceeded number of attempts to get security access"
	case 0x37:
		return "Required time delay not expired"
	case 0x40:
		return "Download not accepted"
	case 0x50:
		return "Upload not accepted"
	case 0x71:
		return "Transfer suspended"
	case 0x72:
		return "Transfer aborted"
	case 0x77:
		return "Block transfer data checksum error"
	case 0x78:
		return "Response pending"
	case 0x80:
		return "Service not supported in current diagnostic session"
	default:
		return fmt.Sprintf("Unknown error %X", p)
	}
}
