// Package pcsc connects the session layer to the PC/SC daemon through
// github.com/ebfe/scard. Reader implements reader.Reader for one named
// reader; Monitor watches the reader list and the reader states and feeds
// a device.Manager.
package pcsc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebfe/scard"

	"github.com/gregLibert/cardsession/pkg/reader"
)

var (
	// ErrNotConnected is returned by Transmit and Disconnect before Connect.
	ErrNotConnected = errors.New("no card connected")
	// ErrAlreadyConnected is returned by Connect while a card handle is held.
	ErrAlreadyConnected = errors.New("card already connected")
)

// Reader is a PC/SC reader. It owns its own scard context so that card
// traffic never shares a context with a blocking GetStatusChange.
type Reader struct {
	name string

	mu   sync.Mutex
	ctx  *scard.Context
	card *scard.Card
}

// NewReader establishes a context for the reader called name.
func NewReader(name string) (*Reader, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish context for %q: %w", name, err)
	}
	return &Reader{name: name, ctx: ctx}, nil
}

func (r *Reader) Name() string {
	return r.name
}

// Connect connects to the card in the reader. The handle of a previous
// Connect must be released with Disconnect first.
func (r *Reader) Connect(mode reader.ShareMode, preferred reader.Protocol) (reader.Protocol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.card != nil {
		return reader.ProtocolUndefined, ErrAlreadyConnected
	}

	card, err := r.ctx.Connect(r.name, scard.ShareMode(mode), scard.Protocol(preferred))
	if err != nil {
		return reader.ProtocolUndefined, err
	}
	r.card = card

	status, err := card.Status()
	if err != nil {
		// the handle is usable, only the negotiated protocol is unknown
		return preferred, nil
	}
	return reader.Protocol(status.ActiveProtocol), nil
}

// Disconnect releases the card.
func (r *Reader) Disconnect(d reader.Disposition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.card == nil {
		return ErrNotConnected
	}
	err := r.card.Disconnect(scard.Disposition(d))
	r.card = nil
	return err
}

// Transmit sends cmd to the connected card. The protocol is the one
// negotiated by Connect; maxLen bounds the accepted answer.
func (r *Reader) Transmit(cmd []byte, maxLen int, _ reader.Protocol) ([]byte, error) {
	r.mu.Lock()
	card := r.card
	r.mu.Unlock()

	if card == nil {
		return nil, ErrNotConnected
	}
	resp, err := card.Transmit(cmd)
	if err != nil {
		return nil, err
	}
	if maxLen > 0 && len(resp) > maxLen {
		return nil, fmt.Errorf("answer of %d bytes exceeds %d", len(resp), maxLen)
	}
	return resp, nil
}

// Close drops any card handle and releases the context.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.card != nil {
		_ = r.card.Disconnect(scard.LeaveCard)
		r.card = nil
	}
	return r.ctx.Release()
}

// ListReaders returns the names of the connected readers. Having none is
// not an error.
func ListReaders(ctx *scard.Context) ([]string, error) {
	names, err := ctx.ListReaders()
	if errors.Is(err, scard.ErrNoReadersAvailable) {
		return nil, nil
	}
	return names, err
}

// ReadStatus returns the current state of one reader without waiting.
func ReadStatus(ctx *scard.Context, name string) (reader.Status, error) {
	rs := []scard.ReaderState{{Reader: name, CurrentState: scard.StateUnaware}}
	if err := ctx.GetStatusChange(rs, 0); err != nil && !errors.Is(err, scard.ErrTimeout) {
		return reader.Status{}, err
	}
	return reader.Status{
		State: reader.State(rs[0].EventState & stateMask),
		ATR:   append([]byte(nil), rs[0].Atr...),
	}, nil
}
