package passthru

import (
	"bytes"
	"errors"
	"fmt"
	"unsafe"
)

var errNilSymbol = errors.New("symbol resolved to nil")

// library is a loaded native shared library.
type library interface {
	sym(name string) (uintptr, error)
	close() error
}

// PassThru is the function table of a loaded J2534 driver.
type PassThru struct {
	lib library

	passThruOpen           func(unsafe.Pointer, *uint32) uint32
	passThruClose          func(uint32) uint32
	passThruConnect        func(uint32, uint32, uint32, uint32, *uint32) uint32
	passThruDisconnect     func(uint32) uint32
	passThruReadMsgs       func(uint32, *PassThruMsg, *uint32, uint32) uint32
	passThruWriteMsgs      func(uint32, *PassThruMsg, *uint32, uint32) uint32
	passThruStartMsgFilter func(uint32, uint32, *PassThruMsg, *PassThruMsg, *PassThruMsg, *uint32) uint32
	passThruStopMsgFilter  func(uint32, uint32) uint32
	passThruIoctl          func(uint32, uint32, unsafe.Pointer, unsafe.Pointer) uint32
	passThruReadVersion    func(uint32, *byte, *byte, *byte) uint32
	passThruGetLastError   func(*byte) uint32
}

// New loads the driver library at path and binds every J2534 entry point.
func New(path string) (*PassThru, error) {
	lib, err := openLibrary(path)
	if err != nil {
		return nil, err
	}
	j := &PassThru{lib: lib}
	symbols := []struct {
		name string
		fptr interface{}
	}{
		{"PassThruOpen", &j.passThruOpen},
		{"PassThruClose", &j.passThruClose},
		{"PassThruConnect", &j.passThruConnect},
		{"PassThruDisconnect", &j.passThruDisconnect},
		{"PassThruReadMsgs", &j.passThruReadMsgs},
		{"PassThruWriteMsgs", &j.passThruWriteMsgs},
		{"PassThruStartMsgFilter", &j.passThruStartMsgFilter},
		{"PassThruStopMsgFilter", &j.passThruStopMsgFilter},
		{"PassThruIoctl", &j.passThruIoctl},
		{"PassThruReadVersion", &j.passThruReadVersion},
		{"PassThruGetLastError", &j.passThruGetLastError},
	}
	for _, s := range symbols {
		addr, err := lib.sym(s.name)
		if err == nil && addr == 0 {
			err = errNilSymbol
		}
		if err != nil {
			lib.close()
			return nil, &MissingSymbolError{Symbol: s.name, Err: err}
		}
		bindFunc(s.fptr, addr)
	}
	return j, nil
}

// Close unloads the library. Every device opened through it must be closed first.
func (j *PassThru) Close() error {
	return j.lib.close()
}

// PassThruOpen long PassThruOpen(void* pName, unsigned long *pDeviceID);
func (j *PassThru) PassThruOpen(deviceName string, pDeviceID *uint32) error {
	var pName unsafe.Pointer
	if deviceName != "" {
		name := append([]byte(deviceName), 0)
		pName = unsafe.Pointer(&name[0])
	}
	return CheckError(j.passThruOpen(pName, pDeviceID))
}

// PassThruClose long PassThruClose(unsigned long DeviceID);
func (j *PassThru) PassThruClose(deviceID uint32) error {
	return CheckError(j.passThruClose(deviceID))
}

// PassThruConnect long PassThruConnect(unsigned long DeviceID, unsigned long ProtocolID, unsigned long Flags, unsigned long BaudRate, unsigned long *pChannelID);
func (j *PassThru) PassThruConnect(deviceID, protocolID, flags, baudRate uint32, pChannelID *uint32) error {
	return CheckError(j.passThruConnect(deviceID, protocolID, flags, baudRate, pChannelID))
}

// PassThruDisconnect long PassThruDisconnect(unsigned long ChannelID);
func (j *PassThru) PassThruDisconnect(channelID uint32) error {
	return CheckError(j.passThruDisconnect(channelID))
}

// PassThruReadMsg reads at most one message, returning the number of messages read.
func (j *PassThru) PassThruReadMsg(channelID uint32, pMsg *PassThruMsg, timeout uint32) (uint32, error) {
	pNumMsgs := uint32(1)
	// long PassThruReadMsgs(unsigned long ChannelID, PASSTHRU_MSG *pMsg, unsigned long *pNumMsgs, unsigned long Timeout);
	ret := j.passThruReadMsgs(channelID, pMsg, &pNumMsgs, timeout)
	if err := CheckError(ret); err != nil {
		if ret == ERR_FAILED {
			if str, err2 := j.PassThruGetLastError(); err2 == nil && str != "" {
				return 0, fmt.Errorf("%s: %w", str, err)
			}
		}
		return 0, err
	}
	return pNumMsgs, nil
}

// PassThruWriteMsgs long PassThruWriteMsgs(unsigned long ChannelID, PASSTHRU_MSG *pMsg, unsigned long *pNumMsgs, unsigned long Timeout);
func (j *PassThru) PassThruWriteMsgs(channelID uint32, pMsg *PassThruMsg, pNumMsgs *uint32, timeout uint32) error {
	ret := j.passThruWriteMsgs(channelID, pMsg, pNumMsgs, timeout)
	if err := CheckError(ret); err != nil {
		if ret == ERR_FAILED {
			if str, err2 := j.PassThruGetLastError(); err2 == nil && str != "" {
				return fmt.Errorf("%s: %w", str, err)
			}
		}
		return err
	}
	return nil
}

// PassThruStartMsgFilter long PassThruStartMsgFilter(unsigned long ChannelID, unsigned long FilterType, PASSTHRU_MSG *pMaskMsg, PASSTHRU_MSG *pPatternMsg, PASSTHRU_MSG *pFlowControlMsg, unsigned long *pMsgID);
func (j *PassThru) PassThruStartMsgFilter(channelID, filterType uint32, pMaskMsg, pPatternMsg, pFlowControlMsg *PassThruMsg, pMsgID *uint32) error {
	return CheckError(j.passThruStartMsgFilter(channelID, filterType, pMaskMsg, pPatternMsg, pFlowControlMsg, pMsgID))
}

// PassThruStopMsgFilter long PassThruStopMsgFilter(unsigned long ChannelID, unsigned long MsgID);
func (j *PassThru) PassThruStopMsgFilter(channelID, msgID uint32) error {
	return CheckError(j.passThruStopMsgFilter(channelID, msgID))
}

// PassThruIoctl long PassThruIoctl(unsigned long HandleID, unsigned long IoctlID, void *pInput, void *pOutput);
// The raw status code is returned, CheckError turns it into an error.
func (j *PassThru) PassThruIoctl(handleID, ioctlID uint32, input, output unsafe.Pointer) uint32 {
	return j.passThruIoctl(handleID, ioctlID, input, output)
}

// PassThruReadVersion long PassThruReadVersion(unsigned long DeviceID, char *pFirmwareVersion, char *pDllVersion, char *pApiVersion);
func (j *PassThru) PassThruReadVersion(deviceID uint32) (string, string, string, error) {
	var pFirmwareVersion [80]byte
	var pDllVersion [80]byte
	var pApiVersion [80]byte
	ret := j.passThruReadVersion(deviceID, &pFirmwareVersion[0], &pDllVersion[0], &pApiVersion[0])
	if err := CheckError(ret); err != nil {
		return "", "", "", err
	}
	return cString(pFirmwareVersion[:]), cString(pDllVersion[:]), cString(pApiVersion[:]), nil
}

// PassThruGetLastError long PassThruGetLastError(char *pErrorDescription);
func (j *PassThru) PassThruGetLastError() (string, error) {
	var pErrorDescription [80]byte
	ret := j.passThruGetLastError(&pErrorDescription[0])
	return cString(pErrorDescription[:]), CheckError(ret)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
