package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Registry(t *testing.T) {
	m := NewManager(WithAutoConnect(false))
	log := &eventLog{}
	m.Subscribe(log)

	a := m.AddReader(newFakeReader("Reader A"))
	b := m.AddReader(newFakeReader("Reader B"))
	assert.Same(t, a, m.AddReader(newFakeReader("Reader A")), "duplicates are ignored")

	assert.Equal(t, []*Device{a, b}, m.List())
	require.Len(t, log.events, 2)
	assert.Equal(t, KindDeviceActivated, log.events[1].Kind)
	assert.Equal(t, []*Device{a, b}, log.events[1].Devices)
	assert.Equal(t, "Devices('Device(name:'Reader A'),Device(name:'Reader B')')", m.String())

	got, ok := m.Lookup("Reader B")
	assert.True(t, ok)
	assert.Same(t, b, got)

	require.NoError(t, m.RemoveReader("Reader A"))
	assert.Equal(t, KindDeviceDeactivated, log.last().Kind)
	assert.Same(t, a, log.last().Device)
	assert.Equal(t, []*Device{b}, log.last().Devices)

	_, ok = m.Lookup("Reader A")
	assert.False(t, ok)
	assert.ErrorIs(t, m.RemoveReader("Reader A"), ErrUnknownReader)
}

func TestManager_RelaysDeviceEvents(t *testing.T) {
	m := NewManager()
	log := &eventLog{}
	m.Subscribe(log)

	d := m.AddReader(newFakeReader("r"))
	d.HandleStatus(present())

	assert.Equal(t, []Kind{KindDeviceActivated, KindStatus, KindCardDetected, KindCardInserted}, log.kinds())
	assert.Equal(t, "r", log.last().ReaderName())
}

func TestManager_ReaderError(t *testing.T) {
	m := NewManager()
	log := &eventLog{}
	m.Subscribe(log)
	m.AddReader(newFakeReader("r"))

	cause := errors.New("SCARD_E_NO_SERVICE")
	m.ReaderError("r", cause)
	m.ReaderError("", cause)

	require.Len(t, log.events, 3)
	assert.Equal(t, "r", log.events[1].ReaderName())
	assert.Equal(t, "", log.events[2].ReaderName())
	assert.ErrorIs(t, log.events[2].Err, cause)
}

func TestManager_RemoveDropsSession(t *testing.T) {
	r := newFakeReader("r")
	m := NewManager()
	d := m.AddReader(r)
	d.HandleStatus(present())
	c := d.Card()
	require.NotNil(t, c)

	require.NoError(t, m.RemoveReader("r"))
	assert.False(t, c.IsOpen())
	assert.Empty(t, r.disconnects)
}

func TestManager_Close(t *testing.T) {
	ra, rb := newFakeReader("a"), newFakeReader("b")
	rb.disconnectErr = errors.New("boom")
	m := NewManager()
	m.AddReader(ra).HandleStatus(present())
	m.AddReader(rb).HandleStatus(present())
	m.AddReader(newFakeReader("c"))

	err := m.Close()
	assert.ErrorIs(t, err, rb.disconnectErr)
	assert.Len(t, ra.disconnects, 1)
	for _, d := range m.List() {
		assert.Nil(t, d.Card())
	}
}
