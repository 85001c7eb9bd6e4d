package passdiag

import (
	"errors"
	"fmt"
	"strings"
)

type IDFormat int

const (
	StandardID IDFormat = iota // 11 bit
	ExtendedID                 // 29 bit
)

func (f IDFormat) String() string {
	switch f {
	case StandardID:
		return "standard"
	case ExtendedID:
		return "extended"
	}
	return fmt.Sprintf("IDFormat(%d)", int(f))
}

func (f IDFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *IDFormat) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "standard", "11bit", "11":
		*f = StandardID
	case "extended", "29bit", "29":
		*f = ExtendedID
	default:
		return fmt.Errorf("unknown id format %q", string(b))
	}
	return nil
}

// MaxIdentifier is the largest CAN identifier expressible in the format.
func (f IDFormat) MaxIdentifier() uint32 {
	if f == ExtendedID {
		return 0x1FFFFFFF
	}
	return 0x7FF
}

type AddressingMode int

const (
	Physical AddressingMode = iota
	Functional
)

func (a AddressingMode) String() string {
	switch a {
	case Physical:
		return "physical"
	case Functional:
		return "functional"
	}
	return fmt.Sprintf("AddressingMode(%d)", int(a))
}

func (a AddressingMode) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AddressingMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "physical":
		*a = Physical
	case "functional":
		*a = Functional
	default:
		return fmt.Errorf("unknown addressing mode %q", string(b))
	}
	return nil
}

// TransportConfig describes an ISO15765 diagnostic channel.
//
// SourceAddress is the CAN identifier the tester sends requests on and
// TargetAddress the identifier the ECU answers on. With ExtendedAddressing
// the first payload byte of every CAN frame carries ExtAddress.
//
// With Functional addressing SourceAddress is the broadcast identifier and
// FlowControlAddress the physical request identifier of the answering ECU,
// which flow control frames for its multi frame answers are sent on.
type TransportConfig struct {
	Name               string         `json:"name" yaml:"name"`
	SourceAddress      uint32         `json:"source_address" yaml:"source_address"`
	TargetAddress      uint32         `json:"target_address" yaml:"target_address"`
	IDFormat           IDFormat       `json:"id_format" yaml:"id_format"`
	BaudRate           uint32         `json:"baud_rate" yaml:"baud_rate"`
	BlockSize          int            `json:"block_size" yaml:"block_size"`
	SeparationTimeMin  int            `json:"separation_time_min" yaml:"separation_time_min"`
	Addressing         AddressingMode `json:"addressing" yaml:"addressing"`
	ExtendedAddressing bool           `json:"extended_addressing,omitempty" yaml:"extended_addressing,omitempty"`
	ExtAddress         int            `json:"ext_address,omitempty" yaml:"ext_address,omitempty"`
	FlowControlAddress uint32         `json:"flow_control_address,omitempty" yaml:"flow_control_address,omitempty"`
}

var (
	ErrInvalidAddress        = errors.New("address out of range")
	ErrInvalidBlockSize      = errors.New("block size must be within 0-255")
	ErrInvalidSeparationTime = errors.New("separation time must be within 0x00-0x7F or 0xF1-0xF9")
	ErrInvalidBaudRate       = errors.New("baud rate must be greater than zero")
	ErrFlowControlAddress    = errors.New("functional addressing needs a physical flow control address")
)

// Validate checks the invariants of the configuration.
func (c TransportConfig) Validate() error {
	max := c.IDFormat.MaxIdentifier()
	if c.SourceAddress > max {
		return fmt.Errorf("source address 0x%X exceeds %s id range: %w", c.SourceAddress, c.IDFormat, ErrInvalidAddress)
	}
	if c.TargetAddress > max {
		return fmt.Errorf("target address 0x%X exceeds %s id range: %w", c.TargetAddress, c.IDFormat, ErrInvalidAddress)
	}
	if c.SourceAddress == c.TargetAddress {
		return fmt.Errorf("source and target address are both 0x%X: %w", c.SourceAddress, ErrInvalidAddress)
	}
	if c.FlowControlAddress > max {
		return fmt.Errorf("flow control address 0x%X exceeds %s id range: %w", c.FlowControlAddress, c.IDFormat, ErrInvalidAddress)
	}
	if c.Addressing == Functional {
		fc := c.FlowControlAddress
		if fc == 0 || fc == c.SourceAddress || fc == c.TargetAddress {
			return ErrFlowControlAddress
		}
	}
	if c.ExtendedAddressing && (c.ExtAddress < 0x00 || c.ExtAddress > 0xFF) {
		return fmt.Errorf("extended address %d does not fit 0x00-0xFF: %w", c.ExtAddress, ErrInvalidAddress)
	}
	if c.BlockSize < 0 || c.BlockSize > 0xFF {
		return ErrInvalidBlockSize
	}
	st := c.SeparationTimeMin
	if st < 0 || (st > 0x7F && (st < 0xF1 || st > 0xF9)) {
		return ErrInvalidSeparationTime
	}
	if c.BaudRate == 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

// FlowControlID is the identifier flow control frames are sent on, the
// physical request identifier paired with TargetAddress.
func (c TransportConfig) FlowControlID() uint32 {
	if c.Addressing == Functional || c.FlowControlAddress != 0 {
		return c.FlowControlAddress
	}
	return c.SourceAddress
}

// MaxFunctionalPayload is the largest request that can be sent with
// functional addressing, which is restricted to single frames.
func (c TransportConfig) MaxFunctionalPayload() int {
	if c.ExtendedAddressing {
		return 6
	}
	return 7
}

func (c TransportConfig) String() string {
	name := c.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s (0x%03X -> 0x%03X, %s, %d baud, BS %d, STmin %d, %s)",
		name, c.SourceAddress, c.TargetAddress, c.IDFormat, c.BaudRate, c.BlockSize, c.SeparationTimeMin, c.Addressing)
}
