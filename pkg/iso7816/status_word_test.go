package iso7816

import (
	"strings"
	"testing"
)

func TestStatusWord_Triggering(t *testing.T) {
	tests := []struct {
		sw     StatusWord
		isTrig bool
	}{
		{NewStatusWord(0x62, 0x02), true},  // Lower bound
		{NewStatusWord(0x62, 0x80), true},  // Upper bound
		{NewStatusWord(0x64, 0x10), true},  // Error triggering
		{NewStatusWord(0x62, 0x01), false}, // Invalid (< 02)
		{NewStatusWord(0x62, 0x81), false}, // Invalid (> 80)
	}

	for _, tt := range tests {
		if got := tt.sw.IsTriggeringByCard(); got != tt.isTrig {
			t.Errorf("SW %X IsTriggeringByCard = %v, want %v", uint16(tt.sw), got, tt.isTrig)
		}
	}
}

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		sw        StatusWord
		isSuccess bool
		isNormal  bool
		isWarning bool
		isError   bool
	}{
		{SW_NO_ERROR, true, true, false, false},
		{NewStatusWord(0x61, 0x10), false, true, false, false},
		{SW_WARN_EOF_REACHED, false, false, true, false},
		{NewStatusWord(0x63, 0xC2), false, false, true, false},
		{SW_ERR_WRONG_LENGTH, false, false, false, true},
		{SW_ERR_FILE_NOT_FOUND, false, false, false, true},
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.isSuccess {
			t.Errorf("SW %04X IsSuccess = %v, want %v", uint16(tt.sw), got, tt.isSuccess)
		}
		if got := tt.sw.IsNormal(); got != tt.isNormal {
			t.Errorf("SW %04X IsNormal = %v, want %v", uint16(tt.sw), got, tt.isNormal)
		}
		if got := tt.sw.IsWarning(); got != tt.isWarning {
			t.Errorf("SW %04X IsWarning = %v, want %v", uint16(tt.sw), got, tt.isWarning)
		}
		if got := tt.sw.IsError(); got != tt.isError {
			t.Errorf("SW %04X IsError = %v, want %v", uint16(tt.sw), got, tt.isError)
		}
	}
}

func TestStatusWord_Verbose(t *testing.T) {
	tests := []struct {
		sw       StatusWord
		contains string
	}{
		{NewStatusWord(0x62, 0x10), "Card expects query of 16 bytes"},
		{NewStatusWord(0x63, 0xC3), "counter = 3"},
		{NewStatusWord(0x61, 0x20), "32 bytes available"},
		{NewStatusWord(0x6C, 0x05), "correct Le is 5"},
		{SW_ERR_FILE_NOT_FOUND, "[6A82] Checking error: wrong parameters P1-P2"},
		{NewStatusWord(0x12, 0x34), "[1234] Unknown"},
	}

	for _, tt := range tests {
		got := tt.sw.Verbose()
		if !strings.Contains(got, tt.contains) {
			t.Errorf("Verbose(%04X) = %q; want containing %q", uint16(tt.sw), got, tt.contains)
		}
	}
}

func TestStatusWord_Meaning(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want string
	}{
		{SW_NO_ERROR, "Normal processing"},
		{NewStatusWord(0x61, 0x05), "Normal processing, SW2 indicates the number of response bytes still available"},
		{SW_WARN_NO_INFO, "Warning processing: no information given"},
		{SW_WARN_DATA_CORRUPTED, "Warning processing: part of returned data may be corrupted"},
		{SW_WARN_NO_INPUT_FROM_SENSOR, "Warning processing: unsuccessful writing"},
		{NewStatusWord(0x62, 0x87), "Warning processing"},
		{SW_WARN_SUCCESS_AFTER_RETRY, "Warning processing: execution successful after retry"},
		{NewStatusWord(0x63, 0xC2), "Warning processing"},
		{SW_ERR_EXEC_NO_INFO, "Execution error"},
		{SW_ERR_MEMORY_FAILURE, "Execution error: memory failure"},
		{NewStatusWord(0x66, 0x00), "Reserved for future use"},
		{SW_ERR_WRONG_LENGTH, "Wrong length"},
		{NewStatusWord(0x67, 0x01), "Unknown"},
		{SW_ERR_LOGICAL_CHANNEL_NOT_SUPP, "Checking error: logical channel not supported"},
		{NewStatusWord(0x68, 0x84), "Checking error: functions in CLA not supported"},
		{SW_ERR_SECURITY_STATUS_NOT_SAT, "Checking error: command not allowed"},
		{SW_ERR_WRONG_P1P2, "Checking error: wrong parameters"},
		{NewStatusWord(0x6C, 0x10), "Checking error: wrong length, SW2 indicates the correct Le"},
		{SW_ERR_INS_INVALID, "Checking error: wrong instruction"},
		{SW_ERR_CLA_NOT_SUPPORTED, "Checking error: class not supported"},
		{SW_ERR_UNKNOWN, "Checking error: no precise diagnosis"},
		{NewStatusWord(0x90, 0x01), "Unknown"},
		{NewStatusWord(0x00, 0x00), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.sw.Meaning(); got != tt.want {
			t.Errorf("Meaning(%04X) = %q, want %q", uint16(tt.sw), got, tt.want)
		}
	}
}

func TestStatusWord_MeaningIsTotal(t *testing.T) {
	for v := 0; v <= 0xFFFF; v++ {
		if StatusWord(v).Meaning() == "" {
			t.Fatalf("no meaning for %04X", v)
		}
	}
}
