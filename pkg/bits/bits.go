// Package bits provides positional bit helpers for byte-sized protocol fields
// and flag-oriented helpers for wider bit-fields.
//
// Positions follow the ISO/IEC 7816 convention: bits are numbered from 1
// (least significant) to 8, so "b8" is the high bit of a byte.
package bits

// Unsigned is the set of types usable as a bit-field.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value from a range of bits (e.g., bits 4 to 3).
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Set returns b with bit n raised.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Has reports whether every bit of mask is raised in v.
// An empty mask is never "had": flag zero carries no information.
func Has[T Unsigned](v, mask T) bool {
	return mask != 0 && v&mask == mask
}

// Lacks reports whether every bit of mask is cleared in v.
func Lacks[T Unsigned](v, mask T) bool {
	return v&mask == 0
}

// Diff returns the bits that differ between a and b.
func Diff[T Unsigned](a, b T) T {
	return a ^ b
}

// Split decomposes v into its individual raised bits, lowest first.
func Split[T Unsigned](v T) []T {
	var out []T
	for b := T(1); b != 0 && b <= v; b <<= 1 {
		if v&b != 0 {
			out = append(out, b)
		}
	}
	return out
}
