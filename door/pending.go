package door

// ChangeResult reports what happened to a requested policy change.
type ChangeResult uint8

const (
	ChangeRejected ChangeResult = iota
	ChangeApplied
	ChangeQueued
	// ChangeUnchanged is returned when the requested value is already the current one.
	ChangeUnchanged
)

func (r ChangeResult) String() string {
	switch r {
	case ChangeApplied:
		return "applied"
	case ChangeQueued:
		return "queued"
	case ChangeUnchanged:
		return "unchanged"
	}
	return "rejected"
}

// canChange returns whether a change governed by ct may be applied to a door in state s right now.
func canChange(ct ChangeType, s State) bool {
	switch ct {
	case ChangeClosed:
		return s == StateClosed
	case ChangeWait, ChangeImmediate:
		return true
	}
	return false
}

// Pending holds at most one deferred value for a policy field. A newer value overwrites an older one.
type Pending[T comparable] struct {
	value T
	has   bool
}

// Set stores v as the pending value.
func (p *Pending[T]) Set(v T) {
	p.value, p.has = v, true
}

// Get returns the pending value, if any.
func (p *Pending[T]) Get() (T, bool) {
	return p.value, p.has
}

// Clear drops the pending value.
func (p *Pending[T]) Clear() {
	var zero T
	p.value, p.has = zero, false
}

// Take returns the pending value and clears it.
func (p *Pending[T]) Take() (T, bool) {
	v, ok := p.value, p.has
	p.Clear()
	return v, ok
}

// policyField is a mutable door policy with its change type and pending slot.
type policyField[T comparable] struct {
	value   T
	change  ChangeType
	pending Pending[T]
}

// request applies v according to the field's change type given the door's current state.
func (f *policyField[T]) request(v T, s State) ChangeResult {
	switch f.change {
	case ChangeDisabled:
		return ChangeRejected
	case ChangeClosed:
		if s != StateClosed {
			return ChangeRejected
		}
	case ChangeWait:
		if s != StateClosed {
			f.pending.Set(v)
			return ChangeQueued
		}
	}
	f.pending.Clear()
	if f.value == v {
		return ChangeUnchanged
	}
	f.value = v
	return ChangeApplied
}

// flush applies the pending value if the door has settled Closed and the change type still allows it.
// A pending value equal to the current one is dropped without reporting a change. A value the change
// type refuses stays pending until a later flush.
func (f *policyField[T]) flush(s State) bool {
	v, ok := f.pending.Get()
	if !ok || s != StateClosed {
		return false
	}
	if f.value == v {
		f.pending.Clear()
		return false
	}
	if !canChange(f.change, s) {
		return false
	}
	f.pending.Clear()
	f.value = v
	return true
}
