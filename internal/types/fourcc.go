package types

import (
	"encoding/hex"
	"fmt"
)

// FourCC is a four byte type or property code, compared bytewise
type FourCC string

// ZeroFourCC is the code with all four bytes zero
const ZeroFourCC FourCC = "\x00\x00\x00\x00"

// ParseFourCC validates s as a four character code
func ParseFourCC(s string) (FourCC, error) {
	code := FourCC(s)
	if !code.Valid() {
		return "", fmt.Errorf("%w: four character code %q must be exactly 4 bytes", ErrFormat, s)
	}
	return code, nil
}

// Valid reports whether the code is exactly four bytes
func (c FourCC) Valid() bool { return len(c) == 4 }

// String returns the code, with non-printable bytes hex escaped
func (c FourCC) String() string {
	for i := 0; i < len(c); i++ {
		if c[i] < 0x20 || c[i] > 0x7e {
			return "0x" + hex.EncodeToString([]byte(c))
		}
	}
	return string(c)
}

// Blob is an opaque byte payload
type Blob []byte

// String renders the blob as hex
func (b Blob) String() string { return hex.EncodeToString(b) }
