package simulator

import (
	"encoding/hex"
)

// handle computes the frames answering req. The caller holds mu.
func (e *ECU) handle(req []byte) [][]byte {
	if frames, ok := e.responses[hex.EncodeToString(req)]; ok {
		return frames
	}
	sid := req[0]
	switch sid {
	case 0x10:
		if len(req) != 2 {
			return [][]byte{negative(sid, 0x12)}
		}
		if e.startNRC != 0 {
			return [][]byte{negative(sid, e.startNRC)}
		}
		return [][]byte{{0x50, req[1]}}
	case 0x3E:
		if e.silentTester {
			return nil
		}
		return [][]byte{{0x7E}}
	case 0x18:
		if len(req) != 4 {
			return [][]byte{negative(sid, 0x12)}
		}
		resp := []byte{0x58, byte(len(e.dtcs))}
		for _, d := range e.dtcs {
			resp = append(resp, byte(d.Code>>8), byte(d.Code), d.Status)
		}
		return [][]byte{resp}
	case 0x14:
		if len(req) != 3 {
			return [][]byte{negative(sid, 0x12)}
		}
		e.dtcs = nil
		return [][]byte{{0x54, req[1], req[2]}}
	case 0x20:
		return [][]byte{{0x60}}
	}
	return [][]byte{negative(sid, 0x11)}
}

func negative(sid, nrc byte) []byte {
	return []byte{0x7F, sid, nrc}
}
