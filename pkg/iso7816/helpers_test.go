package iso7816

import (
	"fmt"
	"strings"
	"testing"
)

// mustHex builds a byte slice from hex fragments such as "00 A4", "04 00".
func mustHex(parts ...string) []byte {
	data, err := DecodeHex(strings.Join(parts, ""))
	if err != nil {
		panic(err)
	}
	return data
}

// scriptedCard answers each transmitted command with the next scripted response.
type scriptedCard struct {
	t         *testing.T
	responses [][]byte
	sent      [][]byte
	err       error
}

func (s *scriptedCard) Transmit(cmd []byte) ([]byte, error) {
	s.sent = append(s.sent, append([]byte(nil), cmd...))
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		s.t.Fatalf("unexpected command %X: script exhausted", cmd)
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

// recordingObserver keeps the order of notifications.
type recordingObserver struct {
	events []string
}

func (r *recordingObserver) CommandIssued(cmd *CommandAPDU) {
	r.events = append(r.events, "issued "+cmd.String())
}

func (r *recordingObserver) ResponseReceived(tx Transaction) {
	r.events = append(r.events, fmt.Sprintf("received %s -> %s", tx.Command.String(), tx.Response.String()))
}
