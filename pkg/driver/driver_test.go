package driver

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/roffe/passdiag"
	"github.com/roffe/passdiag/pkg/passthru"
)

type fakeAPI struct {
	mu sync.Mutex

	openErr    error
	connectErr error
	ioctlRet   map[uint32]uint32
	filterErr  error
	readErr    error
	writeErr   error
	lastError  string
	vbatt      uint32
	rx         []passthru.PassThruMsg
	written    []passthru.PassThruMsg
	params     []passthru.SCONFIG
	filters    [][3][]byte

	opens, closes, connects, disconnects, unloads int
}

func (f *fakeAPI) PassThruOpen(_ string, pDeviceID *uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	*pDeviceID = 1
	return nil
}

func (f *fakeAPI) PassThruClose(uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeAPI) PassThruConnect(_, _, _, _ uint32, pChannelID *uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connects++
	*pChannelID = uint32(f.connects)
	return nil
}

func (f *fakeAPI) PassThruDisconnect(uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeAPI) PassThruReadMsg(_ uint32, pMsg *passthru.PassThruMsg, _ uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.rx) == 0 {
		return 0, passthru.ErrBufferEmpty
	}
	*pMsg = f.rx[0]
	f.rx = f.rx[1:]
	return 1, nil
}

func (f *fakeAPI) PassThruWriteMsgs(_ uint32, pMsg *passthru.PassThruMsg, _ *uint32, _ uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, *pMsg)
	return nil
}

func (f *fakeAPI) PassThruStartMsgFilter(_, _ uint32, mask, pattern, flowControl *passthru.PassThruMsg, pMsgID *uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filterErr != nil {
		return f.filterErr
	}
	f.filters = append(f.filters, [3][]byte{
		append([]byte(nil), mask.Payload()...),
		append([]byte(nil), pattern.Payload()...),
		append([]byte(nil), flowControl.Payload()...),
	})
	*pMsgID = 7
	return nil
}

func (f *fakeAPI) PassThruStopMsgFilter(_, _ uint32) error { return nil }

func (f *fakeAPI) PassThruIoctl(_, ioctlID uint32, input, output unsafe.Pointer) uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ret, ok := f.ioctlRet[ioctlID]; ok {
		return ret
	}
	switch ioctlID {
	case passthru.SET_CONFIG:
		list := (*passthru.SCONFIG_LIST)(input)
		f.params = append(f.params, unsafe.Slice(list.ConfigPtr, list.NumOfParams)...)
	case passthru.READ_VBATT:
		*(*uint32)(output) = f.vbatt
	}
	return passthru.STATUS_NOERROR
}

func (f *fakeAPI) PassThruReadVersion(uint32) (string, string, string, error) {
	return "1.0", "2.0", "04.04", nil
}

func (f *fakeAPI) PassThruGetLastError() (string, error) {
	return f.lastError, nil
}

func (f *fakeAPI) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads++
	return nil
}

func loadFake(t *testing.T, f *fakeAPI) *Driver {
	t.Helper()
	drv, err := load("fake.so", func(string) (API, error) { return f, nil })
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { drv.Close() })
	return drv
}

func openFake(t *testing.T, f *fakeAPI) *Device {
	t.Helper()
	dev, err := loadFake(t, f).Open(passdiag.DeviceDescriptor{Name: "fake"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return dev
}

var testConfig = passdiag.TransportConfig{
	Name:              "ezs",
	SourceAddress:     0x7E0,
	TargetAddress:     0x7E8,
	BaudRate:          500000,
	BlockSize:         8,
	SeparationTimeMin: 20,
}

func rxMsg(status uint32, id uint32, data ...byte) passthru.PassThruMsg {
	msg := passthru.PassThruMsg{ProtocolID: passthru.ISO15765, RxStatus: status}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, id)
	msg.SetPayload(append(buf, data...))
	return msg
}

func TestLoadIsExclusive(t *testing.T) {
	f := &fakeAPI{}
	drv := loadFake(t, f)

	if _, err := load("other.so", func(string) (API, error) { return f, nil }); !errors.Is(err, passdiag.ErrDriverInUse) {
		t.Fatalf("second load: got %v, want ErrDriverInUse", err)
	}

	if err := drv.Close(); err != nil {
		t.Fatal(err)
	}
	if err := drv.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if f.unloads != 1 {
		t.Errorf("unloads = %d, want 1", f.unloads)
	}

	again, err := load("other.so", func(string) (API, error) { return f, nil })
	if err != nil {
		t.Fatalf("load after close: %v", err)
	}
	again.Close()
}

func TestLoadFailureReleasesLock(t *testing.T) {
	wantErr := errors.New("no such file")
	_, err := load("missing.so", func(string) (API, error) { return nil, wantErr })
	var le *passdiag.DriverLoadError
	if !errors.As(err, &le) || !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want DriverLoadError wrapping %v", err, wantErr)
	}
	loadFake(t, &fakeAPI{})
}

func TestOpenError(t *testing.T) {
	f := &fakeAPI{openErr: passthru.ErrFailed, lastError: "no device attached"}
	_, err := loadFake(t, f).Open(passdiag.DeviceDescriptor{Name: "fake"})
	var oe *passdiag.DeviceOpenError
	if !errors.As(err, &oe) {
		t.Fatalf("got %v, want DeviceOpenError", err)
	}
	if !errors.Is(err, passthru.ErrFailed) {
		t.Errorf("error does not wrap ErrFailed: %v", err)
	}
}

func TestConnect(t *testing.T) {
	f := &fakeAPI{}
	dev := openFake(t, f)

	ch, err := dev.Connect(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if ch == 0 {
		t.Fatal("zero channel id")
	}
	want := []passthru.SCONFIG{
		{Parameter: passthru.ISO15765_BS, Value: 8},
		{Parameter: passthru.ISO15765_STMIN, Value: 20},
	}
	if len(f.params) != len(want) || f.params[0] != want[0] || f.params[1] != want[1] {
		t.Errorf("params = %v, want %v", f.params, want)
	}
	if len(f.filters) != 1 {
		t.Fatalf("filters = %d, want 1", len(f.filters))
	}
	flt := f.filters[0]
	if binary.BigEndian.Uint32(flt[0]) != 0x7FF || binary.BigEndian.Uint32(flt[1]) != 0x7E8 || binary.BigEndian.Uint32(flt[2]) != 0x7E0 {
		t.Errorf("filter = % X", flt)
	}
}

func TestConnectFunctional(t *testing.T) {
	f := &fakeAPI{}
	dev := openFake(t, f)

	cfg := testConfig
	cfg.SourceAddress = 0x7DF
	cfg.FlowControlAddress = 0x7E0
	cfg.Addressing = passdiag.Functional
	if _, err := dev.Connect(cfg); err != nil {
		t.Fatal(err)
	}
	if len(f.filters) != 1 {
		t.Fatalf("filters = %d, want 1", len(f.filters))
	}
	flt := f.filters[0]
	if binary.BigEndian.Uint32(flt[1]) != 0x7E8 || binary.BigEndian.Uint32(flt[2]) != 0x7E0 {
		t.Errorf("filter = % X, want pattern 7E8 and flow control 7E0", flt)
	}
}

func TestConnectFailures(t *testing.T) {
	tests := []struct {
		name            string
		api             *fakeAPI
		cfg             passdiag.TransportConfig
		wantDisconnects int
	}{
		{
			name: "invalid config",
			api:  &fakeAPI{},
			cfg:  passdiag.TransportConfig{SourceAddress: 0x800, TargetAddress: 0x7E8, BaudRate: 500000},
		},
		{
			name: "functional without flow control address",
			api:  &fakeAPI{},
			cfg:  passdiag.TransportConfig{SourceAddress: 0x7DF, TargetAddress: 0x7E8, BaudRate: 500000, Addressing: passdiag.Functional},
		},
		{
			name: "connect rejected",
			api:  &fakeAPI{connectErr: passthru.ErrInvalidBaudrate},
			cfg:  testConfig,
		},
		{
			name:            "set config rejected",
			api:             &fakeAPI{ioctlRet: map[uint32]uint32{passthru.SET_CONFIG: passthru.ERR_INVALID_IOCTL_VALUE}},
			cfg:             testConfig,
			wantDisconnects: 1,
		},
		{
			name:            "filter rejected",
			api:             &fakeAPI{filterErr: passthru.ErrNotUnique},
			cfg:             testConfig,
			wantDisconnects: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := openFake(t, tt.api)
			_, err := dev.Connect(tt.cfg)
			var ce *passdiag.ChannelError
			if !errors.As(err, &ce) {
				t.Fatalf("got %v, want ChannelError", err)
			}
			if tt.api.disconnects != tt.wantDisconnects {
				t.Errorf("disconnects = %d, want %d", tt.api.disconnects, tt.wantDisconnects)
			}
		})
	}
}

func TestReadFrame(t *testing.T) {
	f := &fakeAPI{rx: []passthru.PassThruMsg{
		rxMsg(passthru.TX_INDICATION, 0x7E0),
		rxMsg(passthru.START_OF_MESSAGE, 0x7E8),
		rxMsg(0, 0x7E8, 0x62, 0xF1, 0x90, 0xAA, 0xBB),
	}}
	dev := openFake(t, f)
	ch, err := dev.Connect(testConfig)
	if err != nil {
		t.Fatal(err)
	}

	msg, err := dev.ReadFrame(ch, 100*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Identifier != 0x7E8 || passdiag.HexString(msg.Data) != "62 F1 90 AA BB" {
		t.Errorf("got %s", msg)
	}

	if _, err := dev.ReadFrame(ch, 10*time.Millisecond); !passdiag.IsTimeout(err) {
		t.Errorf("empty buffer: got %v, want timeout", err)
	}
	if _, err := dev.ReadFrame(ch, 0); !errors.Is(err, passdiag.ErrTimeoutRequired) {
		t.Errorf("zero timeout: got %v", err)
	}
	if _, err := dev.ReadFrame(ch+100, time.Second); !errors.Is(err, passdiag.ErrUnknownChannel) {
		t.Errorf("unknown channel: got %v", err)
	}

	f.readErr = passthru.ErrDeviceNotConnected
	if _, err := dev.ReadFrame(ch, 10*time.Millisecond); !passdiag.IsIOError(err) {
		t.Errorf("device gone: got %v, want IOError", err)
	}
}

func TestWriteFrame(t *testing.T) {
	f := &fakeAPI{}
	dev := openFake(t, f)
	ch, err := dev.Connect(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.WriteFrame(ch, &passdiag.Message{Data: []byte{0x3E, 0x01}}, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	got := f.written[0].Payload()
	if passdiag.HexString(got) != "00 00 07 E0 3E 01" {
		t.Errorf("written % X", got)
	}
	if f.written[0].TxFlags&passthru.ISO15765_FRAME_PAD == 0 {
		t.Error("frame padding not requested")
	}

	f.writeErr = passthru.ErrTimeout
	if err := dev.WriteFrame(ch, &passdiag.Message{Data: []byte{0x20}}, 100*time.Millisecond); !passdiag.IsTimeout(err) {
		t.Errorf("got %v, want timeout", err)
	}
}

func TestDisconnectOnce(t *testing.T) {
	f := &fakeAPI{}
	dev := openFake(t, f)
	ch, err := dev.Connect(testConfig)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := dev.Disconnect(ch); err != nil {
			t.Fatal(err)
		}
	}
	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}
	if f.disconnects != 1 {
		t.Errorf("disconnects = %d, want 1", f.disconnects)
	}
}

func TestCloseReleasesChannels(t *testing.T) {
	f := &fakeAPI{}
	drv := loadFake(t, f)
	dev, err := drv.Open(passdiag.DeviceDescriptor{Name: "fake"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.Connect(testConfig); err != nil {
		t.Fatal(err)
	}
	if err := drv.Close(); err != nil {
		t.Fatal(err)
	}
	if f.disconnects != 1 || f.closes != 1 || f.unloads != 1 {
		t.Errorf("disconnects %d closes %d unloads %d, want 1 each", f.disconnects, f.closes, f.unloads)
	}
	if _, err := dev.Connect(testConfig); !errors.Is(err, passdiag.ErrDeviceClosed) {
		t.Errorf("connect after close: got %v", err)
	}
}

func TestBatteryVoltageAndVersion(t *testing.T) {
	dev := openFake(t, &fakeAPI{vbatt: 12450})
	mv, err := dev.ReadBatteryVoltage()
	if err != nil {
		t.Fatal(err)
	}
	if mv != 12450 {
		t.Errorf("vbatt = %d", mv)
	}
	v, err := dev.ReadVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v.API != "04.04" {
		t.Errorf("version = %s", v)
	}
}

func TestDescriptors(t *testing.T) {
	got := descriptors("x64 ", []passthru.J2534DLL{
		{Name: "Tactrix Openport 2.0", FunctionLibrary: `C:\op20pt32.dll`},
		{Name: "Mongoose", FunctionLibrary: `C:\mongoose.dll`},
	})
	if len(got) != 2 || got[1].ID != 1 || got[1].Name != "x64 Mongoose" || got[0].DriverPath != `C:\op20pt32.dll` {
		t.Errorf("got %v", got)
	}
	if got := descriptors("", nil); got == nil || len(got) != 0 {
		t.Errorf("empty: got %#v", got)
	}
}
