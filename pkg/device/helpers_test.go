package device

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/gregLibert/cardsession/pkg/reader"
)

type fakeReader struct {
	name string

	mu            sync.Mutex
	protocol      reader.Protocol
	connectErr    error
	disconnectErr error
	responses     []string
	sent          []string
	connects      int
	disconnects   []reader.Disposition
	shareModes    []reader.ShareMode
}

func newFakeReader(name string) *fakeReader {
	return &fakeReader{name: name, protocol: reader.ProtocolT1}
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) Connect(mode reader.ShareMode, _ reader.Protocol) (reader.Protocol, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.shareModes = append(f.shareModes, mode)
	if f.connectErr != nil {
		return 0, f.connectErr
	}
	return f.protocol, nil
}

func (f *fakeReader) Disconnect(d reader.Disposition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, d)
	return f.disconnectErr
}

func (f *fakeReader) Transmit(cmd []byte, _ int, _ reader.Protocol) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, hex.EncodeToString(cmd))
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("card mute")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return hex.DecodeString(next)
}

// eventLog collects event kinds, optionally with a detail.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) HandleEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Kind, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Kind)
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

var testATR = []byte{0x3B, 0x8A, 0x80, 0x01}

func present() reader.Status {
	return reader.Status{State: reader.StatePresent | reader.StateChanged, ATR: testATR}
}

func empty() reader.Status {
	return reader.Status{State: reader.StateEmpty | reader.StateChanged}
}
