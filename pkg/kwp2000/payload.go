package kwp2000

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrPayloadTooShort = errors.New("payload must hold a service id and at least one data byte")

// ParseHexPayload decodes user entered hex such as "1A86" or "1A 86" into a
// request. At least two bytes are required.
func ParseHexPayload(s string) ([]byte, error) {
	compact := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %w", s, err)
	}
	if len(b) < 2 {
		return nil, ErrPayloadTooShort
	}
	return b, nil
}

func ValidateHexPayload(s string) error {
	_, err := ParseHexPayload(s)
	return err
}
