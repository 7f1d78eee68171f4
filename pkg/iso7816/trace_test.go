package iso7816

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func makeTx(sw StatusWord) Transaction {
	return Transaction{
		Command:  GetData(ClassInterindustry, 0x9F, 0x7F),
		Response: NewResponseAPDU(nil, sw),
	}
}

func TestTransaction_IsSuccess(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{
			name: "Successful Transaction (9000)",
			tx:   makeTx(SW_NO_ERROR),
			want: true,
		},
		{
			name: "Response Available (6110)",
			tx:   makeTx(NewStatusWord(0x61, 0x10)),
			want: false, // more data pending, the command is not complete
		},
		{
			name: "Error Transaction (6A82)",
			tx:   makeTx(SW_ERR_FILE_NOT_FOUND),
			want: false,
		},
		{
			name: "Nil Response (Incomplete Transaction)",
			tx:   Transaction{Command: GetResponse(ClassInterindustry, 0), Response: nil},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.IsSuccess(); got != tt.want {
				t.Errorf("Transaction.IsSuccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrace_Logic(t *testing.T) {
	t.Run("Empty Trace", func(t *testing.T) {
		var tr Trace
		if tr.Last() != nil {
			t.Error("Empty trace Last() should be nil")
		}
		if tr.IsSuccess() {
			t.Error("Empty trace IsSuccess() should be false")
		}
	})

	t.Run("Multi-Step Trace (Scenario: 61XX then 9000)", func(t *testing.T) {
		tr := Trace{
			makeTx(NewStatusWord(0x61, 0x10)),
			makeTx(SW_NO_ERROR),
		}

		if tr.Last().Response.Status != SW_NO_ERROR {
			t.Errorf("Last transaction mismatch")
		}
		if !tr.IsSuccess() {
			t.Error("Trace should be successful if the last action succeeded")
		}
	})

	t.Run("Multi-Step Trace (Scenario: Failure at the end)", func(t *testing.T) {
		tr := Trace{
			makeTx(NewStatusWord(0x6C, 0x04)),
			makeTx(SW_ERR_FILE_NOT_FOUND),
		}

		if tr.IsSuccess() {
			t.Error("Trace should fail if the last action failed")
		}
	})
}

func TestTrace_Steps(t *testing.T) {
	tr := Trace{
		makeTx(NewStatusWord(0x6C, 0x04)),
		makeTx(NewStatusWord(0x61, 0x02)),
		makeTx(SW_WARN_EOF_REACHED),
	}

	want := []ProtocolState{StateRetryWrongLength, StateNeedMore, StateDone}
	if diff := cmp.Diff(want, tr.Steps()); diff != "" {
		t.Errorf("Steps mismatch (-want +got):\n%s", diff)
	}
}
