// Package card implements the session with one card inserted in a reader.
//
// A Card is created by a successful connect and lives until it is closed.
// Exchanges are serialized: a command chain (61XX / 6CXX continuations)
// holds the session for its whole duration, so commands issued from several
// goroutines never interleave on the wire, and Close waits for the chain in
// flight.
package card

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardsession/pkg/iso7816"
	"github.com/gregLibert/cardsession/pkg/reader"
)

// MaxResponseLength is the receive buffer size handed to the reader:
// 256 data bytes plus SW1 SW2.
const MaxResponseLength = 0x102

// Transport is the part of a reader a session needs.
type Transport interface {
	Transmit(cmd []byte, maxLen int, p reader.Protocol) ([]byte, error)
}

// Observer receives the notifications of a session. Calls are made
// synchronously, with the session lock held, in exchange order.
type Observer interface {
	CommandIssued(c *Card, cmd *iso7816.CommandAPDU)
	ResponseReceived(c *Card, cmd *iso7816.CommandAPDU, resp *iso7816.ResponseAPDU)
	ApplicationSelected(c *Card, res *iso7816.SelectResult)
}

// Option configures a Card.
type Option func(*Card)

// WithObserver registers the session observer.
func WithObserver(o Observer) Option {
	return func(c *Card) {
		c.observer = o
	}
}

// WithMaxChainLength caps the continuation exchanges of one command.
func WithMaxChainLength(n int) Option {
	return func(c *Card) {
		c.maxChain = n
	}
}

// WithLogger sets the logger used for exchange traces.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Card) {
		c.log = l
	}
}

// Card is an open session with a card.
type Card struct {
	owner    string
	atr      []byte
	protocol reader.Protocol
	link     Transport
	observer Observer
	maxChain int
	log      logrus.FieldLogger

	mu   sync.Mutex
	open bool
}

// Open starts a session on the card whose ATR was read by the owning reader.
func Open(owner string, atr []byte, protocol reader.Protocol, link Transport, opts ...Option) *Card {
	c := &Card{
		owner:    owner,
		atr:      append([]byte(nil), atr...),
		protocol: protocol,
		link:     link,
		maxChain: iso7816.DefaultMaxChainLength,
		log:      logrus.StandardLogger(),
		open:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("reader", owner)
	return c
}

// Owner returns the name of the reader holding the card.
func (c *Card) Owner() string {
	return c.owner
}

// ATR returns the Answer To Reset as lowercase hex.
func (c *Card) ATR() string {
	return hex.EncodeToString(c.atr)
}

// Protocol returns the protocol negotiated at connect time.
func (c *Card) Protocol() reader.Protocol {
	return c.protocol
}

// IsOpen reports whether the session still accepts commands.
func (c *Card) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Card) String() string {
	return fmt.Sprintf("Card(atr:'%s')", c.ATR())
}

// Exchange sends raw bytes and returns the raw answer, without any
// continuation handling or notification.
func (c *Card) Exchange(cmd []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrSessionClosed
	}
	return c.transmit(cmd)
}

// Issue sends a command and runs the 61XX / 6CXX procedures.
// The returned response is the assembled one.
func (c *Card) Issue(cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	resp, _, err := c.run(cmd)
	return resp, err
}

// IssueCommand accepts anything iso7816.ParseCommand does: a command, raw
// bytes, a hex string or a byte array.
func (c *Card) IssueCommand(input any) (*iso7816.ResponseAPDU, error) {
	cmd, err := iso7816.ParseCommand(input)
	if err != nil {
		return nil, err
	}
	return c.Issue(cmd)
}

// Send behaves like Issue and returns every physical exchange.
func (c *Card) Send(cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	_, trace, err := c.run(cmd)
	return trace, err
}

// SelectApplication selects an application by AID. On 9000 the observer is
// told which application is now current.
func (c *Card) SelectApplication(aid []byte) (*iso7816.SelectResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, trace, err := c.exchangeLocked(iso7816.SelectByAID(iso7816.ClassInterindustry, aid))
	if err != nil {
		return nil, err
	}

	res, err := iso7816.NewSelectResult(resp, trace)
	if err != nil {
		return nil, err
	}
	if res.IsSuccess() {
		c.log.WithField("aid", hex.EncodeToString(aid)).Debug("application selected")
		if c.observer != nil {
			c.observer.ApplicationSelected(c, res)
		}
	}
	return res, nil
}

// Close invalidates the session once the chain in flight, if any, is over.
// Closing twice is a no-op.
func (c *Card) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
}

func (c *Card) run(cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, iso7816.Trace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exchangeLocked(cmd)
}

func (c *Card) exchangeLocked(cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, iso7816.Trace, error) {
	if !c.open {
		return nil, nil, ErrSessionClosed
	}

	client := &iso7816.Client{
		Card:           lockedLink{c},
		Observer:       sessionObserver{c},
		MaxChainLength: c.maxChain,
	}
	return client.Exchange(cmd)
}

func (c *Card) transmit(cmd []byte) ([]byte, error) {
	resp, err := c.link.Transmit(cmd, MaxResponseLength, c.protocol)
	if err != nil {
		c.log.WithError(err).WithField("command", hex.EncodeToString(cmd)).Warn("transmit failed")
		return nil, &TransmitError{Reader: c.owner, Err: err}
	}
	c.log.WithFields(logrus.Fields{
		"command":  hex.EncodeToString(cmd),
		"response": hex.EncodeToString(resp),
	}).Debug("exchange")
	return resp, nil
}

// lockedLink is the transmitter handed to the protocol client. The caller
// already holds c.mu.
type lockedLink struct {
	c *Card
}

func (l lockedLink) Transmit(cmd []byte) ([]byte, error) {
	return l.c.transmit(cmd)
}

type sessionObserver struct {
	c *Card
}

func (o sessionObserver) CommandIssued(cmd *iso7816.CommandAPDU) {
	if o.c.observer != nil {
		o.c.observer.CommandIssued(o.c, cmd)
	}
}

func (o sessionObserver) ResponseReceived(tx iso7816.Transaction) {
	if o.c.observer != nil {
		o.c.observer.ResponseReceived(o.c, tx.Command, tx.Response)
	}
}
