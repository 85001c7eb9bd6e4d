package passdiag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

type Direction int

const (
	Incoming Direction = iota
	Outgoing
)

// Message is one complete diagnostic message as seen above the transport
// layer. Segmentation and flow control are handled by the driver.
type Message struct {
	Identifier uint32
	Extended   bool
	Data       []byte
	Direction  Direction
}

func NewMessage(identifier uint32, data []byte, dir Direction) *Message {
	return &Message{
		Identifier: identifier,
		Data:       data,
		Direction:  dir,
	}
}

func (m *Message) Length() int {
	return len(m.Data)
}

var (
	blue  = color.New(color.FgHiBlue).SprintfFunc()
	red   = color.New(color.FgRed).SprintfFunc()
	green = color.New(color.FgGreen).SprintfFunc()
)

func (m *Message) String() string {
	var out strings.Builder
	switch m.Direction {
	case Incoming:
		out.WriteString("<i> || ")
	case Outgoing:
		out.WriteString("<o> || ")
	}
	out.WriteString(m.identifier() + " || ")
	out.WriteString(strconv.Itoa(len(m.Data)) + " || ")
	out.WriteString(HexString(m.Data))
	return out.String()
}

func (m *Message) identifier() string {
	if m.Extended {
		return fmt.Sprintf("0x%08X", m.Identifier)
	}
	return fmt.Sprintf("0x%03X", m.Identifier)
}

func (m *Message) ColorString() string {
	var out strings.Builder
	switch m.Direction {
	case Incoming:
		out.WriteString(green("<i>") + " || ")
	case Outgoing:
		out.WriteString(red("<o>") + " || ")
	}
	out.WriteString(blue("%s", m.identifier()) + " || ")
	out.WriteString(strconv.Itoa(len(m.Data)) + " || ")
	out.WriteString(HexString(m.Data))
	return out.String()
}

// HexString renders b as space separated upper case hex, "62 F1 90".
func HexString(b []byte) string {
	var out strings.Builder
	for i, v := range b {
		out.WriteString(fmt.Sprintf("%02X", v))
		if i != len(b)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}
