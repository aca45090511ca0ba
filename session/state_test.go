package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtomicState_Transitions(t *testing.T) {
	var st AtomicState

	assert.True(t, st.IsClosed())
	assert.Equal(t, "Closed", st.String())

	assert.False(t, st.ToResyncing(), "closed cannot resync")
	assert.True(t, st.ToOpening())
	assert.False(t, st.ToOpening(), "already opening")
	assert.Equal(t, StateOpening, st.Get())

	assert.True(t, st.ToSynchronized())
	assert.True(t, st.ToSynchronized(), "idempotent")
	assert.True(t, st.ToResyncing())
	assert.Equal(t, "Resyncing", st.String())
	assert.True(t, st.ToSynchronized())

	assert.True(t, st.ToClosed())
	assert.False(t, st.ToClosed(), "already closed")
	assert.False(t, st.ToSynchronized(), "closed cannot synchronize")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Opening", StateOpening.String())
	assert.Equal(t, "Synchronized", StateSynchronized.String())
	assert.Equal(t, "Unknown", State(42).String())
}
