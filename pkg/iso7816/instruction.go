package iso7816

import (
	"fmt"

	"github.com/gregLibert/cardsession/pkg/bits"
)

// Instruction Byte (INS) Logic according to ISO/IEC 7816-4.
//
// 1. Data Encoding (Bit 1):
//    With the interindustry class, bit 1 often indicates the format of the data
//    field: 0 for standard, 1 for BER-TLV (READ BINARY B0 vs B1).
//
// 2. Reserved Ranges:
//    INS values whose upper nibble is '6' or '9' are invalid: they collide with
//    SW1 values and transport procedure bytes (ISO/IEC 7816-3).

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Standard Instruction (INS) codes as defined in ISO/IEC 7816-4.
const (
	INS_ERASE_BINARY          InsCode = 0x0E
	INS_VERIFY                InsCode = 0x20
	INS_MANAGE_CHANNEL        InsCode = 0x70
	INS_EXTERNAL_AUTHENTICATE InsCode = 0x82
	INS_GET_CHALLENGE         InsCode = 0x84
	INS_INTERNAL_AUTHENTICATE InsCode = 0x88
	INS_SELECT                InsCode = 0xA4
	INS_READ_BINARY           InsCode = 0xB0
	INS_READ_RECORD           InsCode = 0xB2
	INS_GET_RESPONSE          InsCode = 0xC0
	INS_ENVELOPE              InsCode = 0xC2
	INS_GET_DATA              InsCode = 0xCA
	INS_WRITE_BINARY          InsCode = 0xD0
	INS_WRITE_RECORD          InsCode = 0xD2
	INS_UPDATE_BINARY         InsCode = 0xD6
	INS_PUT_DATA              InsCode = 0xDA
	INS_UPDATE_RECORD         InsCode = 0xDC
	INS_APPEND_RECORD         InsCode = 0xE2
)

var insNames = map[InsCode]string{
	INS_ERASE_BINARY:          "ERASE BINARY",
	INS_VERIFY:                "VERIFY",
	INS_MANAGE_CHANNEL:        "MANAGE CHANNEL",
	INS_EXTERNAL_AUTHENTICATE: "EXTERNAL AUTHENTICATE",
	INS_GET_CHALLENGE:         "GET CHALLENGE",
	INS_INTERNAL_AUTHENTICATE: "INTERNAL AUTHENTICATE",
	INS_SELECT:                "SELECT",
	INS_READ_BINARY:           "READ BINARY",
	INS_READ_RECORD:           "READ RECORD",
	INS_GET_RESPONSE:          "GET RESPONSE",
	INS_ENVELOPE:              "ENVELOPE",
	INS_GET_DATA:              "GET DATA",
	INS_WRITE_BINARY:          "WRITE BINARY",
	INS_WRITE_RECORD:          "WRITE RECORD",
	INS_UPDATE_BINARY:         "UPDATE BINARY",
	INS_PUT_DATA:              "PUT DATA",
	INS_UPDATE_RECORD:         "UPDATE RECORD",
	INS_APPEND_RECORD:         "APPEND RECORD",
}

// Validate rejects '6X' and '9X' values.
func (i InsCode) Validate() error {
	highNibble := byte(i) & 0xF0
	if highNibble == 0x60 || highNibble == 0x90 {
		return fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(i))
	}
	return nil
}

// IsBERTLV reports whether bit 1 requests BER-TLV formatted data.
func (i InsCode) IsBERTLV() bool {
	return bits.IsSet(byte(i), 1)
}

// String returns the command name, or the hex value for unlisted codes.
func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(0x%02X)", byte(i))
}

// Verbose returns a human-readable description of the instruction.
func (i InsCode) Verbose() string {
	format := "Standard"
	if i.IsBERTLV() {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i), i, format)
}
