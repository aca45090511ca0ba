package session

import "sync/atomic"

// State is the lifecycle state of a session.
type State uint32

const (
	StateClosed State = iota
	StateOpening
	StateSynchronized
	StateResyncing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpening:
		return "Opening"
	case StateSynchronized:
		return "Synchronized"
	case StateResyncing:
		return "Resyncing"
	default:
		return "Unknown"
	}
}

// AtomicState holds a State with compare-and-swap transitions.
type AtomicState struct {
	state atomic.Uint32
}

func (st *AtomicState) String() string {
	return st.Get().String()
}

// Get returns the current state.
func (st *AtomicState) Get() State {
	return State(st.state.Load())
}

// Set sets the state unconditionally.
func (st *AtomicState) Set(state State) {
	st.state.Store(uint32(state))
}

func (st *AtomicState) IsClosed() bool {
	return st.Get() == StateClosed
}

func (st *AtomicState) IsSynchronized() bool {
	return st.Get() == StateSynchronized
}

// ToOpening moves Closed to Opening.
func (st *AtomicState) ToOpening() bool {
	return st.state.CompareAndSwap(uint32(StateClosed), uint32(StateOpening))
}

// ToSynchronized moves Opening or Resyncing to Synchronized.
func (st *AtomicState) ToSynchronized() bool {
	if st.IsSynchronized() {
		return true
	}
	if st.state.CompareAndSwap(uint32(StateOpening), uint32(StateSynchronized)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(StateResyncing), uint32(StateSynchronized))
}

// ToResyncing moves Synchronized to Resyncing.
func (st *AtomicState) ToResyncing() bool {
	return st.state.CompareAndSwap(uint32(StateSynchronized), uint32(StateResyncing))
}

// ToClosed moves any state to Closed and reports whether the state changed.
func (st *AtomicState) ToClosed() bool {
	return State(st.state.Swap(uint32(StateClosed))) != StateClosed
}
