package iso7816

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestCommandAPDU_Encoding(t *testing.T) {
	cls := ClassInterindustry

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected string
	}{
		{
			name:     "No data: header followed by Le=00",
			cmd:      NewCommandAPDU(cls, INS_SELECT, 0x01, 0x02, nil, 0),
			expected: "00A4010200",
		},
		{
			name:     "Select MF by file ID",
			cmd:      NewCommandAPDU(cls, INS_SELECT, 0x04, 0x00, []byte{0x3F, 0x00}, 0),
			expected: "00A40400023F0000",
		},
		{
			name:     "Data and Le",
			cmd:      NewCommandAPDU(cls, INS_SELECT, 0x00, 0x00, []byte{0x01}, 10),
			expected: "00A4000001010A",
		},
		{
			name:     "Empty non-nil data still carries Lc",
			cmd:      NewCommandAPDU(cls, INS_SELECT, 0x00, 0x00, []byte{}, 0),
			expected: "00A400000000",
		},
		{
			name:     "Proprietary class is kept verbatim",
			cmd:      NewCommandAPDU(Class{Raw: 0x80, IsProprietary: true}, INS_GET_DATA, 0x9F, 0x7F, nil, 0x2D),
			expected: "80CA9F7F2D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Encoding failed: %v", err)
			}
			if want := mustHex(tt.expected); !bytes.Equal(got, want) {
				t.Errorf("Mismatch\nExpected: %X\nGot:      %X", want, got)
			}
		})
	}
}

func TestNewCommand_Layout(t *testing.T) {
	for _, h := range [][4]byte{{0x00, 0xA4, 0x04, 0x00}, {0x80, 0xCA, 0x9F, 0x7F}, {0x0C, 0xB0, 0xFF, 0xFF}, {0x20, 0xA4, 0x04, 0x00}, {0x24, 0xA4, 0x04, 0x00}, {0x3C, 0xA4, 0x04, 0x00}} {
		plain, err := NewCommand(h[0], h[1], h[2], h[3], nil, 0)
		if err != nil {
			t.Fatalf("NewCommand(%X) failed: %v", h, err)
		}
		raw, _ := plain.Bytes()
		if want := append(h[:], 0x00); !bytes.Equal(raw, want) {
			t.Errorf("no data: got %X, want %X", raw, want)
		}

		withData, _ := NewCommand(h[0], h[1], h[2], h[3], []byte{0xAA, 0xBB}, 0x07)
		raw, _ = withData.Bytes()
		if want := append(h[:], 0x02, 0xAA, 0xBB, 0x07); !bytes.Equal(raw, want) {
			t.Errorf("with data: got %X, want %X", raw, want)
		}
	}
}

func TestNewCommand_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cla  byte
		ins  byte
		data []byte
	}{
		{"Reserved CLA", 0xFF, 0xA4, nil},
		{"INS 6X", 0x00, 0x6A, nil},
		{"INS 9X", 0x00, 0x90, nil},
		{"Data too long", 0x00, 0xD6, make([]byte, MaxShortLc+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCommand(tt.cla, tt.ins, 0, 0, tt.data, 0)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCommandAPDU_SetLe(t *testing.T) {
	cmd, _ := NewCommand(0x00, 0xB0, 0x00, 0x00, []byte{0x01, 0x02}, 0x00)
	before, _ := cmd.Bytes()

	copyCmd := cmd.WithLe(0x10)
	after, _ := copyCmd.Bytes()

	if len(before) != len(after) {
		t.Fatalf("length changed: %d -> %d", len(before), len(after))
	}
	if !bytes.Equal(before[:len(before)-1], after[:len(after)-1]) {
		t.Errorf("header/data changed: %X -> %X", before, after)
	}
	if after[len(after)-1] != 0x10 {
		t.Errorf("Le = %02X, want 10", after[len(after)-1])
	}
	if cmd.Le != 0x00 {
		t.Error("WithLe must not mutate the receiver")
	}

	raw, _ := NewRawCommand(mustHex("00 C0 00 00 00"))
	raw.SetLe(0x20)
	if got := raw.String(); got != "00c0000020" {
		t.Errorf("raw SetLe: got %s", got)
	}
}

func TestParseResponseAPDU(t *testing.T) {
	raw := mustHex("010203 9000")
	resp, err := ParseResponseAPDU(raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if !bytes.Equal(resp.DataOnly(), []byte{1, 2, 3}) {
		t.Errorf("DataOnly = %X", resp.DataOnly())
	}
	if resp.Status != SW_NO_ERROR || resp.StatusCode() != "9000" || !resp.IsSuccess() {
		t.Errorf("Wrong status: %s", resp.StatusCode())
	}

	raw[0] = 0xFF
	if resp.Data[0] != 0x01 {
		t.Error("response must not alias the caller's buffer")
	}
}

func TestParseResponseAPDU_TooShort(t *testing.T) {
	if _, err := ParseResponseAPDU([]byte{0x90}); err == nil {
		t.Error("Expected error for short response, got nil")
	}
}

func TestResponseAPDU_RoundTrip(t *testing.T) {
	for _, in := range []string{"9000", "6a82", "0102036105", "deadbeef6c10", "0000"} {
		raw, _ := hex.DecodeString(in)
		resp, err := ParseResponseAPDU(raw)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if resp.String() != in {
			t.Errorf("String() = %s, want %s", resp.String(), in)
		}
	}
}

func TestResponseAPDU_Continuations(t *testing.T) {
	more, _ := ParseResponseAPDU(mustHex("AABB 61 05"))
	if !more.HasMoreData() || more.Available() != 5 || more.IsWrongLength() {
		t.Errorf("61 05 misclassified")
	}

	wrong, _ := ParseResponseAPDU(mustHex("6C 10"))
	if !wrong.IsWrongLength() || wrong.CorrectLength() != 0x10 || wrong.HasMoreData() {
		t.Errorf("6C 10 misclassified")
	}
}

func TestNewResponseAPDU(t *testing.T) {
	resp := NewResponseAPDU([]byte{0xCA, 0xFE}, SW_WARN_EOF_REACHED)
	if resp.String() != "cafe6282" {
		t.Errorf("String() = %s", resp.String())
	}
	if !bytes.Equal(resp.Bytes(), mustHex("CAFE6282")) {
		t.Errorf("Bytes() = %X", resp.Bytes())
	}
}
