package iso7816

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCommand turns caller-supplied input into a command.
//
// Accepted inputs are a *CommandAPDU or CommandAPDU (used as is), a []byte
// holding an encoded command, a hex string (spaces allowed, e.g. "00 A4 04 00")
// and a []int byte array whose values fit in a byte. Anything else fails with
// ErrInvalidInput.
func ParseCommand(v any) (*CommandAPDU, error) {
	switch in := v.(type) {
	case *CommandAPDU:
		if in == nil {
			return nil, fmt.Errorf("%w: nil command", ErrInvalidInput)
		}
		return in, nil
	case CommandAPDU:
		return &in, nil
	case []byte:
		return NewRawCommand(in)
	case string:
		raw, err := DecodeHex(in)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return NewRawCommand(raw)
	case []int:
		raw := make([]byte, len(in))
		for i, b := range in {
			if b < 0 || b > 0xFF {
				return nil, fmt.Errorf("%w: element %d (%d) is not a byte", ErrInvalidInput, i, b)
			}
			raw[i] = byte(b)
		}
		return NewRawCommand(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T (want CommandAPDU, []byte, hex string or []int)", ErrInvalidInput, v)
	}
}

// DecodeHex decodes a hex string, ignoring spaces.
func DecodeHex(s string) ([]byte, error) {
	clean := strings.ReplaceAll(s, " ", "")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return data, nil
}

// SetLe returns a copy of an encoded command whose last byte is replaced by le.
//
// le is coerced the way a loosely typed caller would expect: integers are
// truncated to their low byte, floats are truncated toward zero first and
// numeric strings ("16", "0x10") are parsed. Any value that is not
// integer-like becomes 0.
func SetLe(raw []byte, le any) []byte {
	out := append([]byte(nil), raw...)
	if len(out) == 0 {
		return out
	}
	out[len(out)-1] = CoerceLe(le)
	return out
}

// CoerceLe converts a loosely typed length to the byte placed in the Le field.
func CoerceLe(v any) byte {
	switch n := v.(type) {
	case byte:
		return n
	case int:
		return byte(n)
	case int8:
		return byte(n)
	case int16:
		return byte(n)
	case int32:
		return byte(n)
	case int64:
		return byte(n)
	case uint:
		return byte(n)
	case uint16:
		return byte(n)
	case uint32:
		return byte(n)
	case uint64:
		return byte(n)
	case float32:
		return truncFloat(float64(n))
	case float64:
		return truncFloat(n)
	case string:
		return parseLeString(n)
	default:
		return 0
	}
}

func truncFloat(f float64) byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return byte(int64(math.Mod(math.Trunc(f), 256)))
}

func parseLeString(s string) byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") || strings.HasPrefix(lower, "0o") {
		n, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return 0
		}
		return byte(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return truncFloat(f)
}
