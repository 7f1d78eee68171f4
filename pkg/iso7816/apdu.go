package iso7816

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to ISO/IEC 7816-4.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) followed by a Body.
//
// 1. Header:
//   - CLA (Class): Security, Chaining, Logical Channel.
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc + Data: present only when the command carries a data field.
//   - Le: always present, one byte. 0x00 asks the card for "as much as you have".
//
// Only short length encoding is produced:
//
//	CLA INS P1 P2 [Lc Data...] Le
//
// The trailing Le byte is what the 6Cxx wrong-length procedure rewrites, so
// it is always emitted, even for commands that expect nothing back.
//
// RESPONSE APDU (R-APDU):
//   - Body (Data Field): zero or more response bytes.
//   - Trailer (Status Word): SW1 SW2, the last two bytes.

// APDU limits.
const (
	// MaxShortLc is the maximum data length encodable on a single Lc byte.
	MaxShortLc = 255

	// HeaderLen is the length of CLA INS P1 P2.
	HeaderLen = 4
)

// ErrInvalidInput reports a command that cannot be built from what the caller supplied.
var ErrInvalidInput = errors.New("invalid command input")

// CommandAPDU represents a command sent to the card.
//
// A command is either structured (the exported fields) or a raw byte sequence
// supplied by the caller. Raw commands are sent verbatim; only their trailing
// Le byte can be rewritten.
type CommandAPDU struct {
	Class       Class
	Instruction InsCode
	P1, P2      byte
	Data        []byte // nil means "no data field"; an empty non-nil slice encodes Lc=00
	Le          byte

	raw []byte
}

// NewCommandAPDU creates a structured command from already decoded header parts.
func NewCommandAPDU(cla Class, ins InsCode, p1, p2 byte, data []byte, le byte) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Le:          le,
	}
}

// NewCommand builds a structured command from raw header bytes.
// It rejects a reserved CLA (0xFF) and INS values in the 6X/9X ranges.
func NewCommand(cla byte, ins byte, p1, p2 byte, data []byte, le byte) (*CommandAPDU, error) {
	cls, err := NewClass(cla)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	code := InsCode(ins)
	if err := code.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(data) > MaxShortLc {
		return nil, fmt.Errorf("%w: data field of %d bytes exceeds %d", ErrInvalidInput, len(data), MaxShortLc)
	}
	return NewCommandAPDU(cls, code, p1, p2, data, le), nil
}

// NewRawCommand wraps a caller-encoded command. The header fields of the
// returned command are decoded for reporting; the bytes are sent unchanged.
func NewRawCommand(raw []byte) (*CommandAPDU, error) {
	if len(raw) < HeaderLen {
		return nil, fmt.Errorf("%w: raw command of %d bytes is shorter than a header", ErrInvalidInput, len(raw))
	}

	cls, err := NewClass(raw[0])
	if err != nil {
		cls = Class{Raw: raw[0], IsProprietary: true}
	}

	return &CommandAPDU{
		Class:       cls,
		Instruction: InsCode(raw[1]),
		P1:          raw[2],
		P2:          raw[3],
		Le:          raw[len(raw)-1],
		raw:         append([]byte(nil), raw...),
	}, nil
}

// IsRaw reports whether the command carries caller-encoded bytes.
func (c *CommandAPDU) IsRaw() bool {
	return c.raw != nil
}

// Bytes encodes the CommandAPDU into its byte representation (C-APDU).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	if c.raw != nil {
		return append([]byte(nil), c.raw...), nil
	}

	if len(c.Data) > MaxShortLc {
		return nil, fmt.Errorf("%w: data field of %d bytes exceeds %d", ErrInvalidInput, len(c.Data), MaxShortLc)
	}

	buf := make([]byte, 0, HeaderLen+len(c.Data)+2)
	buf = append(buf, c.Class.Encode(), byte(c.Instruction), c.P1, c.P2)

	if c.Data != nil {
		buf = append(buf, byte(len(c.Data)))
		buf = append(buf, c.Data...)
	}

	return append(buf, c.Le), nil
}

// SetLe replaces the expected length. For raw commands the last byte is rewritten.
func (c *CommandAPDU) SetLe(le byte) {
	c.Le = le
	if len(c.raw) > 0 {
		c.raw[len(c.raw)-1] = le
	}
}

// WithLe returns a copy of the command with a different expected length.
// The receiver is left untouched.
func (c *CommandAPDU) WithLe(le byte) *CommandAPDU {
	clone := *c
	if c.raw != nil {
		clone.raw = append([]byte(nil), c.raw...)
	}
	clone.SetLe(le)
	return &clone
}

// String returns the lowercase hex encoding of the command.
func (c *CommandAPDU) String() string {
	raw, err := c.Bytes()
	if err != nil {
		return fmt.Sprintf("CommandAPDU(invalid: %v)", err)
	}
	return hex.EncodeToString(raw)
}

// Describe returns a readable representation of the command meta-data.
func (c *CommandAPDU) Describe() string {
	if c.raw != nil {
		return fmt.Sprintf("%s | P1: %02X, P2: %02X | Raw: %X", c.Instruction.Verbose(), c.P1, c.P2, c.raw)
	}
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Le)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord

	raw []byte
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	own := append([]byte(nil), raw...)
	indexSW1 := len(own) - 2

	return &ResponseAPDU{
		Data:   own[:indexSW1:indexSW1],
		Status: NewStatusWord(own[indexSW1], own[indexSW1+1]),
		raw:    own,
	}, nil
}

// NewResponseAPDU assembles a response from a data field and a status word.
func NewResponseAPDU(data []byte, sw StatusWord) *ResponseAPDU {
	raw := make([]byte, 0, len(data)+2)
	raw = append(raw, data...)
	raw = append(raw, sw.SW1(), sw.SW2())

	return &ResponseAPDU{
		Data:   raw[:len(data):len(data)],
		Status: sw,
		raw:    raw,
	}
}

// Bytes returns a copy of the full response, status word included.
func (r *ResponseAPDU) Bytes() []byte {
	return append([]byte(nil), r.raw...)
}

// DataOnly returns the response without its status word.
func (r *ResponseAPDU) DataOnly() []byte {
	return append([]byte(nil), r.Data...)
}

// StatusCode returns SW1 SW2 as four lowercase hex digits, e.g. "9000".
func (r *ResponseAPDU) StatusCode() string {
	return r.Status.Code()
}

// IsSuccess reports a plain 9000 completion.
func (r *ResponseAPDU) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Meaning classifies the status word. See Meaning.
func (r *ResponseAPDU) Meaning() string {
	return r.Status.Meaning()
}

// HasMoreData reports a 61XX status: XX more bytes wait for a GET RESPONSE.
func (r *ResponseAPDU) HasMoreData() bool {
	return r.Status.SW1() == 0x61
}

// Available returns the number of bytes announced by a 61XX status.
func (r *ResponseAPDU) Available() byte {
	return r.Status.SW2()
}

// IsWrongLength reports a 6CXX status: the command must be re-sent with Le=XX.
func (r *ResponseAPDU) IsWrongLength() bool {
	return r.Status.SW1() == 0x6C
}

// CorrectLength returns the Le suggested by a 6CXX status.
func (r *ResponseAPDU) CorrectLength() byte {
	return r.Status.SW2()
}

// String returns the lowercase hex encoding of the full response.
func (r *ResponseAPDU) String() string {
	return hex.EncodeToString(r.raw)
}

// Describe returns a readable representation of the response.
func (r *ResponseAPDU) Describe() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
