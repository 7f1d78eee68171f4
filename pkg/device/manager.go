package device

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardsession/pkg/reader"
)

// ErrUnknownReader is returned for a reader name that is not registered.
var ErrUnknownReader = errors.New("unknown reader")

// Manager owns the devices of one application. Every device event is
// relayed to the manager's listeners, after the device's own.
type Manager struct {
	opts   Options
	log    logrus.FieldLogger
	events dispatcher

	mu      sync.Mutex
	devices map[string]*Device
	order   []string
}

// NewManager creates an empty registry. The options apply to every device.
func NewManager(opts ...Option) *Manager {
	o := buildOptions(opts)
	return &Manager{
		opts:    o,
		log:     o.Logger,
		devices: make(map[string]*Device),
	}
}

// Subscribe registers a listener for the events of every device and for
// device-activated / device-deactivated. The returned function unsubscribes it.
func (m *Manager) Subscribe(l Listener) func() {
	return m.events.subscribe(l)
}

// AddReader registers a new reader and announces it. Adding a name twice
// returns the device already registered.
func (m *Manager) AddReader(r reader.Reader) *Device {
	m.mu.Lock()
	if d, ok := m.devices[r.Name()]; ok {
		m.mu.Unlock()
		return d
	}

	d := newDevice(r, m.opts)
	d.Subscribe(ListenerFunc(m.events.emit))
	m.devices[r.Name()] = d
	m.order = append(m.order, r.Name())
	snapshot := m.listLocked()
	m.mu.Unlock()

	m.log.WithField("reader", r.Name()).Info("device activated")
	m.events.emit(Event{Kind: KindDeviceActivated, Device: d, Devices: snapshot})
	return d
}

// RemoveReader forgets a reader that went away. Its card session, if any,
// is closed without calling the reader.
func (m *Manager) RemoveReader(name string) error {
	m.mu.Lock()
	d, ok := m.devices[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("remove %q: %w", name, ErrUnknownReader)
	}
	delete(m.devices, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	snapshot := m.listLocked()
	m.mu.Unlock()

	d.drop()

	m.log.WithField("reader", name).Info("device deactivated")
	m.events.emit(Event{Kind: KindDeviceDeactivated, Device: d, Devices: snapshot})
	return nil
}

// ReaderError reports a failure of the reader layer. name may be empty or
// unknown for errors not tied to a registered reader.
func (m *Manager) ReaderError(name string, err error) {
	d, _ := m.Lookup(name)
	m.log.WithError(err).WithField("reader", name).Warn("reader error")
	m.events.emit(Event{Kind: KindError, Device: d, Err: err})
}

// Lookup returns the device of a reader.
func (m *Manager) Lookup(name string) (*Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[name]
	return d, ok
}

// List returns the devices in registration order.
func (m *Manager) List() []*Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked()
}

func (m *Manager) listLocked() []*Device {
	out := make([]*Device, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.devices[n])
	}
	return out
}

// Close disconnects every open card session.
func (m *Manager) Close() error {
	var errs []error
	for _, d := range m.List() {
		if d.Card() == nil {
			continue
		}
		if _, err := d.Disconnect(); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) String() string {
	names := make([]string, 0)
	for _, d := range m.List() {
		names = append(names, d.String())
	}
	return fmt.Sprintf("Devices('%s')", strings.Join(names, ","))
}
