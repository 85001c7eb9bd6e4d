package kwp2000

import (
	"github.com/roffe/passdiag/pkg/dtc"
)

// ReadDTCs reads every stored trouble code and replaces the cache with the
// result. No stored codes gives an empty slice.
func (s *Session) ReadDTCs() ([]dtc.DTC, error) {
	resp, err := s.RunCommand(READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS, []byte{DTC_STATUS_IDENTIFIED, DTC_GROUP_ALL_HI, DTC_GROUP_ALL_LO})
	if err != nil {
		return nil, err
	}
	codes, err := parseDTCs(resp)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dtcs = codes
	s.dtcsValid = true
	s.mu.Unlock()
	s.publish(EventDTCsRead, nil)
	return cloneDTCs(codes), nil
}

// 58 n (hi lo status)*n
func parseDTCs(resp []byte) ([]dtc.DTC, error) {
	if len(resp) < 2 {
		return nil, malformed(READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS, "response too short: % X", resp)
	}
	n := int(resp[1])
	records := resp[2:]
	if len(records) < n*3 {
		return nil, malformed(READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS, "%d codes announced but %d bytes of records", n, len(records))
	}
	codes := make([]dtc.DTC, 0, n)
	for i := 0; i < n; i++ {
		r := records[i*3 : i*3+3]
		codes = append(codes, dtc.New(r[0], r[1], r[2]))
	}
	return codes, nil
}

// ClearDTCs erases all stored codes. On success the cache is invalidated,
// on failure it is left as it was.
func (s *Session) ClearDTCs() error {
	if _, err := s.RunCommand(CLEAR_DIAGNOSTIC_INFORMATION, []byte{DTC_GROUP_ALL_HI, DTC_GROUP_ALL_LO}); err != nil {
		return &ClearError{Err: err}
	}
	s.mu.Lock()
	s.dtcs = nil
	s.dtcsValid = false
	s.mu.Unlock()
	s.publish(EventDTCsCleared, nil)
	return nil
}

// CachedDTCs returns the result of the last successful ReadDTCs, ok is false
// when nothing has been read since the session started or codes were cleared.
func (s *Session) CachedDTCs() (codes []dtc.DTC, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dtcsValid {
		return nil, false
	}
	return cloneDTCs(s.dtcs), true
}

func cloneDTCs(in []dtc.DTC) []dtc.DTC {
	out := make([]dtc.DTC, len(in))
	copy(out, in)
	return out
}
