// Package device tracks the readers of a system and the card session of each
// of them.
//
// A Device turns the status snapshots of its reader into card-left /
// card-detected events and, unless told otherwise, opens and closes the card
// session on its own. A Manager owns the devices of one application and
// relays all their events.
package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardsession/pkg/card"
	"github.com/gregLibert/cardsession/pkg/iso7816"
	"github.com/gregLibert/cardsession/pkg/reader"
)

var (
	// ErrSessionOpen is returned by Connect when the device already holds a card session.
	ErrSessionOpen = errors.New("card session already open")

	// ErrNoSession is returned when an operation needs a card session and there is none.
	ErrNoSession = errors.New("no card session")
)

// Device is one reader and its (at most one) card session.
type Device struct {
	reader reader.Reader
	opts   Options
	log    logrus.FieldLogger
	events dispatcher

	// connMu serializes Connect and Disconnect.
	connMu sync.Mutex

	mu     sync.Mutex
	status reader.Status
	card   *card.Card
}

// New creates a device for r. Its previous state starts as UNAWARE, so the
// first snapshot showing a card reports it as detected.
func New(r reader.Reader, opts ...Option) *Device {
	return newDevice(r, buildOptions(opts))
}

func newDevice(r reader.Reader, o Options) *Device {
	return &Device{
		reader: r,
		opts:   o,
		log:    o.Logger.WithField("reader", r.Name()),
	}
}

// Name returns the reader name.
func (d *Device) Name() string {
	return d.reader.Name()
}

func (d *Device) String() string {
	return fmt.Sprintf("Device(name:'%s')", d.Name())
}

// Status returns the last snapshot reported by the reader.
func (d *Device) Status() reader.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Card returns the current card session, or nil.
func (d *Device) Card() *card.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.card
}

// Subscribe registers a listener for the events of this device.
// The returned function unsubscribes it.
func (d *Device) Subscribe(l Listener) func() {
	return d.events.subscribe(l)
}

// HandleStatus processes a new snapshot from the reader.
//
// When the state differs from the previous one a status event is emitted,
// followed by card-left or card-detected when the predicates say so.
// Automatic disconnect and connect then run before HandleStatus returns.
func (d *Device) HandleStatus(st reader.Status) {
	d.mu.Lock()
	previous := d.status.State
	d.status = st
	d.mu.Unlock()

	tr := reader.Detect(previous, st.State, d.opts.Predicates)
	if tr.Kind == reader.TransitionNone {
		return
	}

	d.log.WithFields(logrus.Fields{
		"state":   st.State.String(),
		"changed": tr.Changed.String(),
	}).Debug("reader status changed")
	d.emit(Event{Kind: KindStatus, Status: st})

	switch tr.Kind {
	case reader.TransitionCardLeft:
		d.emit(Event{Kind: KindCardLeft, Status: st})
		if d.opts.AutoDisconnect {
			d.cardRemoved()
		}
	case reader.TransitionCardDetected:
		d.emit(Event{Kind: KindCardDetected, Status: st})
		if d.opts.AutoConnect {
			d.cardInserted()
		}
	}
}

func (d *Device) cardInserted() {
	c, err := d.Connect()
	if err != nil {
		d.emitError(err)
		return
	}
	d.emit(Event{Kind: KindCardInserted, Card: c, Protocol: c.Protocol()})
}

func (d *Device) cardRemoved() {
	c, err := d.Disconnect()
	switch {
	case errors.Is(err, ErrNoSession):
		d.log.Debug("card left without a session")
	case err != nil:
		d.emitError(err)
	default:
		d.emit(Event{Kind: KindCardRemoved, Card: c})
	}
}

// Connect opens a card session with the ATR of the last snapshot.
func (d *Device) Connect() (*card.Card, error) {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	d.mu.Lock()
	open := d.card != nil
	atr := d.status.ATR
	d.mu.Unlock()
	if open {
		return nil, fmt.Errorf("connect %s: %w", d.Name(), ErrSessionOpen)
	}

	protocol, err := d.reader.Connect(d.opts.ShareMode, d.opts.Protocols)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", d.Name(), err)
	}

	c := card.Open(d.Name(), atr, protocol, d.reader,
		card.WithObserver(d),
		card.WithMaxChainLength(d.opts.MaxChainLength),
		card.WithLogger(d.opts.Logger),
	)

	d.mu.Lock()
	d.card = c
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{"atr": c.ATR(), "protocol": protocol.String()}).Info("card connected")
	return c, nil
}

// Disconnect closes the card session, waiting for the command in flight,
// then releases the card in the reader. The session is gone even when the
// reader reports an error.
func (d *Device) Disconnect() (*card.Card, error) {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	c := d.Card()
	if c == nil {
		return nil, fmt.Errorf("disconnect %s: %w", d.Name(), ErrNoSession)
	}
	c.Close()

	d.mu.Lock()
	d.card = nil
	d.mu.Unlock()

	if err := d.reader.Disconnect(d.opts.Disposition); err != nil {
		return c, fmt.Errorf("disconnect %s: %w", d.Name(), err)
	}

	d.log.WithField("atr", c.ATR()).Info("card disconnected")
	return c, nil
}

// drop closes the session without talking to the reader, which is gone.
func (d *Device) drop() {
	d.connMu.Lock()
	defer d.connMu.Unlock()

	d.mu.Lock()
	c := d.card
	d.card = nil
	d.mu.Unlock()

	if c != nil {
		c.Close()
	}
}

// Issue sends a command through the current card session.
// Failures are also reported as error events.
func (d *Device) Issue(cmd *iso7816.CommandAPDU) (*iso7816.ResponseAPDU, error) {
	c := d.Card()
	if c == nil {
		return nil, fmt.Errorf("issue on %s: %w", d.Name(), ErrNoSession)
	}

	resp, err := c.Issue(cmd)
	if err != nil {
		d.emitError(err)
		return nil, err
	}
	return resp, nil
}

// IssueCommand is Issue for any input accepted by iso7816.ParseCommand.
func (d *Device) IssueCommand(input any) (*iso7816.ResponseAPDU, error) {
	cmd, err := iso7816.ParseCommand(input)
	if err != nil {
		return nil, err
	}
	return d.Issue(cmd)
}

// Send is Issue returning every physical exchange of the chain. The trace
// is returned up to the failing exchange.
func (d *Device) Send(cmd *iso7816.CommandAPDU) (iso7816.Trace, error) {
	c := d.Card()
	if c == nil {
		return nil, fmt.Errorf("send on %s: %w", d.Name(), ErrNoSession)
	}

	trace, err := c.Send(cmd)
	if err != nil {
		d.emitError(err)
	}
	return trace, err
}

// SelectApplication selects an application on the current card.
func (d *Device) SelectApplication(aid []byte) (*iso7816.SelectResult, error) {
	c := d.Card()
	if c == nil {
		return nil, fmt.Errorf("select on %s: %w", d.Name(), ErrNoSession)
	}

	res, err := c.SelectApplication(aid)
	if err != nil {
		d.emitError(err)
		return nil, err
	}
	return res, nil
}

// CommandIssued implements card.Observer.
func (d *Device) CommandIssued(c *card.Card, cmd *iso7816.CommandAPDU) {
	d.emit(Event{Kind: KindCommandIssued, Card: c, Command: cmd})
}

// ResponseReceived implements card.Observer.
func (d *Device) ResponseReceived(c *card.Card, cmd *iso7816.CommandAPDU, resp *iso7816.ResponseAPDU) {
	d.emit(Event{Kind: KindResponseReceived, Card: c, Command: cmd, Response: resp})
}

// ApplicationSelected implements card.Observer.
func (d *Device) ApplicationSelected(c *card.Card, res *iso7816.SelectResult) {
	d.emit(Event{Kind: KindApplicationSelected, Card: c, Selection: res})
}

func (d *Device) emit(e Event) {
	e.Device = d
	d.events.emit(e)
}

func (d *Device) emitError(err error) {
	d.log.WithError(err).Warn("device error")
	d.emit(Event{Kind: KindError, Err: err})
}
