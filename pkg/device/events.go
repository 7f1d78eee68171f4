package device

import (
	"sync"

	"github.com/gregLibert/cardsession/pkg/card"
	"github.com/gregLibert/cardsession/pkg/iso7816"
	"github.com/gregLibert/cardsession/pkg/reader"
)

// Kind names an event. The values are stable and meant to be matched by
// applications.
type Kind string

const (
	KindStatus              Kind = "status"
	KindCardLeft            Kind = "card-left"
	KindCardDetected        Kind = "card-detected"
	KindCardInserted        Kind = "card-inserted"
	KindCardRemoved         Kind = "card-removed"
	KindError               Kind = "error"
	KindCommandIssued       Kind = "command-issued"
	KindResponseReceived    Kind = "response-received"
	KindApplicationSelected Kind = "application-selected"
	KindDeviceActivated     Kind = "device-activated"
	KindDeviceDeactivated   Kind = "device-deactivated"
)

// Event is delivered to listeners. Only the fields relevant to Kind are set:
//
//	status, card-left, card-detected   Status
//	card-inserted                      Card, Protocol
//	card-removed                       Card
//	command-issued                     Card, Command
//	response-received                  Card, Command, Response
//	application-selected               Card, Selection
//	device-activated/-deactivated      Devices (registry snapshot)
//	error                              Err
//
// Device is set whenever the event concerns a known reader.
type Event struct {
	Kind      Kind
	Device    *Device
	Status    reader.Status
	Card      *card.Card
	Protocol  reader.Protocol
	Command   *iso7816.CommandAPDU
	Response  *iso7816.ResponseAPDU
	Selection *iso7816.SelectResult
	Devices   []*Device
	Err       error
}

// ReaderName returns the name of the reader the event concerns, if any.
func (e Event) ReaderName() string {
	if e.Device == nil {
		return ""
	}
	return e.Device.Name()
}

// Listener receives events.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// dispatcher delivers events synchronously, in subscription order.
type dispatcher struct {
	mu        sync.Mutex
	nextID    int
	listeners []subscription
}

type subscription struct {
	id int
	l  Listener
}

// subscribe registers l and returns the function removing it.
func (d *dispatcher) subscribe(l Listener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, subscription{id: id, l: l})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.listeners {
			if s.id == id {
				d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

func (d *dispatcher) emit(e Event) {
	d.mu.Lock()
	snapshot := d.listeners
	d.mu.Unlock()

	for _, s := range snapshot {
		s.l.HandleEvent(e)
	}
}
