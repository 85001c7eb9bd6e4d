package dtc

import (
	"fmt"
	"strings"
)

// DTC is one diagnostic trouble code as reported by ReadDTCByStatus.
type DTC struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Status      byte   `json:"status"`
}

// New builds a DTC from the two code bytes and status byte of a
// ReadDTCByStatus record. The description falls back to "Unknown DTC 0xHHHH"
// when the code is not in the table.
func New(hi, lo, status byte) DTC {
	return DTC{
		Code:        fmt.Sprintf("%02X%02X", hi, lo),
		Description: Describe(hi, lo),
		Status:      status,
	}
}

func (d DTC) String() string {
	return d.Code + " " + d.Description
}

// SAECode renders the code in P/C/B/U notation, "P0105".
func (d DTC) SAECode() string {
	var hi, lo byte
	if _, err := fmt.Sscanf(d.Code, "%02X%02X", &hi, &lo); err != nil {
		return ""
	}
	return DecodeDTC(hi, lo)
}

func (d DTC) StatusString() string {
	return StatusString(d.Status)
}

// Active reports whether the fault was present at the time of the request.
func (d DTC) Active() bool {
	return d.Status&0x01 != 0
}

// Describe looks up the text for a two byte code.
func Describe(hi, lo byte) string {
	if desc, ok := descriptions[DecodeDTC(hi, lo)]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown DTC 0x%02X%02X", hi, lo)
}

// How to read DTC codes
//B0 B1    First DTC character
//-- --    -------------------
// 0  0    P - Powertrain
// 0  1    C - Chassis
// 1  0    B - Body
// 1  1    U - Network
//
//B2 B3    Second DTC character 0-3
//B4-B7    Third character 0-F, then the low byte gives the last two

// DecodeDTC decodes a 2-byte DTC value into a string like "P0122".
// Returns "" if both bytes are zero.
func DecodeDTC(a, b byte) string {
	if a == 0 && b == 0 {
		return ""
	}
	const hexDigits = "0123456789ABCDEF"
	system := [4]byte{'P', 'C', 'B', 'U'}
	return string([]byte{
		system[(a>>6)&0x03],
		'0' + (a>>4)&0x03,
		hexDigits[a&0x0F],
		hexDigits[(b>>4)&0x0F],
		hexDigits[b&0x0F],
	})
}

/*
DTC status byte as returned by KWP2000 ReadDiagnosticTroubleCodesByStatus
bit		state
0		test failed at the time of the request
1		test failed this operation cycle
2		pending
3		confirmed
4		test not completed since last clear
5		test failed since last clear
6		test not completed this operation cycle
7		warning indicator requested
*/
func StatusString(status byte) string {
	var out []string
	if status&0x80 != 0 {
		out = append(out, "warning lamp requested")
	}
	if status&0x40 != 0 {
		out = append(out, "test not completed this operation cycle")
	}
	if status&0x20 != 0 {
		out = append(out, "test failed since last clear")
	}
	if status&0x10 != 0 {
		out = append(out, "test not completed since last clear")
	}
	if status&0x08 != 0 {
		out = append(out, "confirmed")
	}
	if status&0x04 != 0 {
		out = append(out, "pending")
	}
	if status&0x02 != 0 {
		out = append(out, "failed this operation cycle")
	}
	if status&0x01 != 0 {
		out = append(out, "failed at the time of the request")
	}
	if len(out) == 0 {
		return "no status"
	}
	return strings.Join(out, ", ")
}
