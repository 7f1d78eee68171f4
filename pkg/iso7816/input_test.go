package iso7816

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	structured := NewCommandAPDU(ClassInterindustry, INS_SELECT, 0x04, 0x00, []byte{0x3F, 0x00}, 0)

	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{name: "Pointer", input: structured, want: "00a40400023f0000"},
		{name: "Value", input: *structured, want: "00a40400023f0000"},
		{name: "Raw bytes", input: []byte{0x00, 0xB0, 0x00, 0x00, 0x10}, want: "00b0000010"},
		{name: "Hex string with spaces", input: "00 A4 04 00 02 3F 00 00", want: "00a40400023f0000"},
		{name: "Byte array", input: []int{0x00, 0xCA, 0x9F, 0x7F, 0x00}, want: "00ca9f7f00"},
		{name: "Unsupported type", input: 42, wantErr: true},
		{name: "Nil pointer", input: (*CommandAPDU)(nil), wantErr: true},
		{name: "Malformed hex", input: "00 A4 0", wantErr: true},
		{name: "Out of range element", input: []int{0x00, 0x100, 0x00, 0x00}, wantErr: true},
		{name: "Shorter than a header", input: []byte{0x00, 0xA4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand: %v", err)
			}
			if got := cmd.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSetLe(t *testing.T) {
	base := mustHex("00 A4 04 00 02 3F 00 00")

	tests := []struct {
		name string
		le   any
		want byte
	}{
		{"int", 0x10, 0x10},
		{"int truncated", 0x1FF, 0xFF},
		{"negative int", -1, 0xFF},
		{"byte", byte(0x42), 0x42},
		{"uint64", uint64(0x1234), 0x34},
		{"float truncated", 16.9, 16},
		{"negative float", -2.5, 0xFE},
		{"decimal string", "16", 16},
		{"hex string", "0x20", 0x20},
		{"padded string", " 7 ", 7},
		{"non numeric string", "abc", 0},
		{"empty string", "", 0},
		{"bool", true, 0},
		{"nil", nil, 0},
		{"slice", []byte{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SetLe(base, tt.le)
			if len(got) != len(base) {
				t.Fatalf("length changed: %d", len(got))
			}
			if !bytes.Equal(got[:len(got)-1], base[:len(base)-1]) {
				t.Errorf("only the last byte may change: %X", got)
			}
			if got[len(got)-1] != tt.want {
				t.Errorf("Le = %02X, want %02X", got[len(got)-1], tt.want)
			}
		})
	}

	if base[len(base)-1] != 0x00 {
		t.Error("SetLe must not modify its input")
	}
}
