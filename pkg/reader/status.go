package reader

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Status is one snapshot reported by a reader. A new snapshot replaces the
// previous one wholesale.
type Status struct {
	State State
	ATR   []byte
}

// ATRHex returns the ATR as lowercase hex.
func (s Status) ATRHex() string {
	return hex.EncodeToString(s.ATR)
}

func (s Status) String() string {
	return fmt.Sprintf("Status(state:%s atr:%s)", s.State, s.ATRHex())
}

// Protocol is the transmission protocol negotiated with a card.
type Protocol uint32

const (
	ProtocolUndefined Protocol = 0
	ProtocolT0        Protocol = 0x1
	ProtocolT1        Protocol = 0x2
	ProtocolAny                = ProtocolT0 | ProtocolT1
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUndefined:
		return "undefined"
	case ProtocolT0:
		return "T=0"
	case ProtocolT1:
		return "T=1"
	case ProtocolAny:
		return "T=0|T=1"
	default:
		return fmt.Sprintf("Protocol(0x%X)", uint32(p))
	}
}

// ParseProtocols folds protocol names ("t0", "t1") into a mask.
// An empty list means any protocol.
func ParseProtocols(names []string) (Protocol, error) {
	if len(names) == 0 {
		return ProtocolAny, nil
	}
	var p Protocol
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "t0", "t=0":
			p |= ProtocolT0
		case "t1", "t=1":
			p |= ProtocolT1
		default:
			return 0, fmt.Errorf("unknown protocol %q", n)
		}
	}
	return p, nil
}

// ShareMode controls whether other applications may use the card.
type ShareMode uint32

const (
	ShareExclusive ShareMode = 0x1
	ShareShared    ShareMode = 0x2
	ShareDirect    ShareMode = 0x3
)

// ParseShareMode maps "exclusive", "shared" and "direct" to their mode.
func ParseShareMode(name string) (ShareMode, error) {
	switch strings.ToLower(name) {
	case "", "shared":
		return ShareShared, nil
	case "exclusive":
		return ShareExclusive, nil
	case "direct":
		return ShareDirect, nil
	}
	return 0, fmt.Errorf("unknown share mode %q", name)
}

// Disposition tells the reader what to do with the card on disconnect.
type Disposition uint32

const (
	LeaveCard   Disposition = 0x0
	ResetCard   Disposition = 0x1
	UnpowerCard Disposition = 0x2
	EjectCard   Disposition = 0x3
)

// ParseDisposition maps "leave", "reset", "unpower" and "eject" to their disposition.
func ParseDisposition(name string) (Disposition, error) {
	switch strings.ToLower(name) {
	case "", "leave":
		return LeaveCard, nil
	case "reset":
		return ResetCard, nil
	case "unpower":
		return UnpowerCard, nil
	case "eject":
		return EjectCard, nil
	}
	return 0, fmt.Errorf("unknown disposition %q", name)
}

// Reader is the byte-level interface of a reader driver.
// Implementations report state changes out of band (see pcsc.Monitor).
type Reader interface {
	Name() string
	Connect(mode ShareMode, preferred Protocol) (Protocol, error)
	Disconnect(d Disposition) error
	Transmit(cmd []byte, maxLen int, p Protocol) ([]byte, error)
}
