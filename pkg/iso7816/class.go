package iso7816

import (
	"fmt"

	"github.com/gregLibert/cardsession/pkg/bits"
)

// Class Byte (CLA) Structure according to ISO/IEC 7816-4.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 7: Type of Interindustry (0=First, 1=Further).
// Bit 5: Command Chaining (0=Last/Only, 1=More follow).
//
// 1. First Interindustry Class (00xx xxxx):
//    - Bits 4-3: Secure Messaging indication.
//    - Bits 2-1: Logical Channel number (0-3).
//
// 2. Further Interindustry Class (01xx xxxx):
//    - Bit 6: Secure Messaging (1 bit).
//    - Bits 4-1: Logical Channel number minus 4 (channels 4-19).
//
// The session layer never applies secure messaging or opens channels itself;
// the class is decoded so that follow-up commands (GET RESPONSE) can be sent
// on the channel of the command that triggered them.

// SecureMessaging is the SM indication carried by the class byte.
type SecureMessaging int

const (
	SMNone         SecureMessaging = 0
	SMProprietary  SecureMessaging = 1
	SMHeaderNoProc SecureMessaging = 2
	SMHeaderAuth   SecureMessaging = 3
)

// Class represents the parsed CLA byte.
type Class struct {
	Raw             byte
	IsProprietary   bool
	IsChained       bool
	SecureMessaging SecureMessaging
	Channel         uint8 // 0-19
}

// ClassInterindustry is the plain "00" class: channel 0, no SM, no chaining.
var ClassInterindustry = Class{}

// NewClass decodes a raw CLA byte. 0xFF is reserved for PPS and rejected.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return Class{}, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}

	c := Class{Raw: cla}
	if bits.IsSet(cla, 8) {
		c.IsProprietary = true
		return c, nil
	}

	c.IsChained = bits.IsSet(cla, 5)

	if !bits.IsSet(cla, 7) {
		c.SecureMessaging = SecureMessaging(bits.GetRange(cla, 4, 3))
		c.Channel = bits.GetRange(cla, 2, 1)
		return c, nil
	}

	if bits.IsSet(cla, 6) {
		c.SecureMessaging = SMHeaderNoProc
	}
	c.Channel = bits.GetRange(cla, 4, 1) + 4
	return c, nil
}

// OnChannel returns the plain interindustry class for a logical channel.
func OnChannel(channel uint8) (Class, error) {
	if channel > 19 {
		return Class{}, fmt.Errorf("channel %d out of range (max 19)", channel)
	}
	c := Class{Channel: channel}
	c.Raw = c.Encode()
	return c, nil
}

// Encode converts the Class back to its byte representation.
// An unmodified decoded class yields its Raw byte, including the 001x xxxx
// values whose bit 6 has no field of its own.
func (c Class) Encode() byte {
	if c.IsProprietary {
		return c.Raw
	}
	if decoded, err := NewClass(c.Raw); err == nil && decoded == c {
		return c.Raw
	}

	var res byte
	if c.IsChained {
		res = bits.Set(res, 5)
	}

	if c.Channel <= 3 {
		res |= byte(c.SecureMessaging) << 2
		return res | c.Channel
	}

	res = bits.Set(res, 7)
	if c.SecureMessaging != SMNone {
		res = bits.Set(res, 6)
	}
	return res | (c.Channel - 4)
}

// Verbose returns a one-line description of the class byte.
func (c Class) Verbose() string {
	if c.IsProprietary {
		return fmt.Sprintf("CLA: Proprietary (0x%02X)", c.Raw)
	}

	chaining := "last"
	if c.IsChained {
		chaining = "chained"
	}
	return fmt.Sprintf("CLA: 0x%02X | Channel: %d | SM: %d | %s", c.Encode(), c.Channel, c.SecureMessaging, chaining)
}
