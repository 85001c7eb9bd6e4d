package passthru

// PassThruMsg mirrors PASSTHRU_MSG from j2534_v0404.h.
type PassThruMsg struct {
	ProtocolID     uint32
	RxStatus       uint32
	TxFlags        uint32
	Timestamp      uint32
	DataSize       uint32
	ExtraDataIndex uint32
	Data           [4128]byte
}

// Payload returns the valid part of Data.
func (m *PassThruMsg) Payload() []byte {
	n := m.DataSize
	if n > uint32(len(m.Data)) {
		n = uint32(len(m.Data))
	}
	return m.Data[:n]
}

// SetPayload copies b into Data and updates the size fields.
func (m *PassThruMsg) SetPayload(b []byte) {
	n := copy(m.Data[:], b)
	m.DataSize = uint32(n)
	m.ExtraDataIndex = uint32(n)
}

type SCONFIG struct {
	Parameter uint32
	Value     uint32
}

type SCONFIG_LIST struct {
	NumOfParams uint32
	ConfigPtr   *SCONFIG
}
