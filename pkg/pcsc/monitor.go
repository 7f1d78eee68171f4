package pcsc

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ebfe/scard"
	"github.com/sirupsen/logrus"

	"github.com/gregLibert/cardsession/pkg/device"
	"github.com/gregLibert/cardsession/pkg/reader"
)

// pnpReader is the pseudo-reader PC/SC uses to signal readers being added
// or removed.
const pnpReader = `\\?PnP?\Notification`

// The upper 16 bits of an event state hold an event counter, not flags.
const stateMask = 0xFFFF

// Monitor feeds a device.Manager from PC/SC.
type Monitor struct {
	Manager *device.Manager
	// Ignore, when set, filters out readers by name.
	Ignore func(name string) bool
	// PollInterval bounds each wait so that readers are rescanned even
	// without PnP notifications.
	PollInterval time.Duration
	Log          logrus.FieldLogger

	readers map[string]*Reader
	states  map[string]scard.StateFlag
	pnp     bool
}

// NewMonitor creates a monitor for m.
func NewMonitor(m *device.Manager) *Monitor {
	return &Monitor{
		Manager:      m,
		PollInterval: time.Second,
		Log:          logrus.StandardLogger(),
	}
}

// Run watches readers until ctx is done. Status changes are handed to the
// devices on this goroutine, so automatic connects and disconnects happen
// here as well.
func (m *Monitor) Run(ctx context.Context) error {
	sctx, err := scard.EstablishContext()
	if err != nil {
		return err
	}
	defer func() {
		if err := sctx.Release(); err != nil {
			m.Log.WithError(err).Warn("release context")
		}
	}()

	m.readers = make(map[string]*Reader)
	m.states = make(map[string]scard.StateFlag)
	m.pnp = true
	defer m.removeAll()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = sctx.Cancel()
		case <-stop:
		}
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.rescan(sctx); err != nil {
			m.Manager.ReaderError("", err)
		}

		rs := m.readerStates()
		err := sctx.GetStatusChange(rs, m.PollInterval)
		switch {
		case errors.Is(err, scard.ErrCancelled):
			return ctx.Err()
		case errors.Is(err, scard.ErrTimeout), errors.Is(err, scard.ErrUnknownReader):
			continue
		case err != nil:
			m.Manager.ReaderError("", err)
			if !sleep(ctx, m.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		m.dispatch(rs)
	}
}

func (m *Monitor) rescan(sctx *scard.Context) error {
	names, err := ListReaders(sctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if m.Ignore != nil && m.Ignore(name) {
			continue
		}
		seen[name] = true
		if _, ok := m.readers[name]; ok {
			continue
		}

		r, err := NewReader(name)
		if err != nil {
			m.Manager.ReaderError(name, err)
			continue
		}
		m.readers[name] = r
		m.states[name] = scard.StateUnaware
		m.Manager.AddReader(r)
	}

	for name := range m.readers {
		if !seen[name] {
			m.remove(name)
		}
	}
	return nil
}

// readerStates lists the known readers in name order, followed by the PnP
// pseudo-reader while notifications are supported.
func (m *Monitor) readerStates() []scard.ReaderState {
	names := make([]string, 0, len(m.readers))
	for name := range m.readers {
		names = append(names, name)
	}
	sort.Strings(names)

	rs := make([]scard.ReaderState, 0, len(names)+1)
	for _, name := range names {
		rs = append(rs, scard.ReaderState{Reader: name, CurrentState: m.states[name]})
	}
	if m.pnp {
		rs = append(rs, scard.ReaderState{
			Reader:       pnpReader,
			CurrentState: scard.StateFlag(len(m.readers) << 16),
		})
	}
	return rs
}

func (m *Monitor) dispatch(rs []scard.ReaderState) {
	for _, s := range rs {
		if s.Reader == pnpReader {
			if s.EventState&scard.StateUnknown != 0 {
				m.Log.Debug("PnP notifications unsupported, polling for readers")
				m.pnp = false
			}
			continue
		}
		st, changed := statusOf(s)
		if !changed {
			continue
		}

		m.states[s.Reader] = s.EventState
		d, ok := m.Manager.Lookup(s.Reader)
		if !ok {
			continue
		}
		d.HandleStatus(st)
	}
}

// statusOf converts a reader state returned by GetStatusChange. It reports
// false when PC/SC did not flag the state as changed.
func statusOf(s scard.ReaderState) (reader.Status, bool) {
	if s.EventState&scard.StateChanged == 0 {
		return reader.Status{}, false
	}
	return reader.Status{
		State: reader.State(s.EventState & stateMask),
		ATR:   append([]byte(nil), s.Atr...),
	}, true
}

func (m *Monitor) remove(name string) {
	r := m.readers[name]
	delete(m.readers, name)
	delete(m.states, name)

	if err := m.Manager.RemoveReader(name); err != nil {
		m.Log.WithError(err).WithField("reader", name).Debug("remove reader")
	}
	if err := r.Close(); err != nil {
		m.Log.WithError(err).WithField("reader", name).Debug("release reader context")
	}
}

func (m *Monitor) removeAll() {
	for name := range m.readers {
		m.remove(name)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
