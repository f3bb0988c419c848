package door

import "slices"

// Notify is a tag fired when a moving door passes a progress threshold. Threshold is the fraction of the
// swing completed, in [0, 1], for both opening and closing.
type Notify struct {
	Threshold float32
	Tag       string
}

type notifyKey struct {
	state     State
	direction Direction
}

// NotifyTable holds the notifies of a door, grouped by the motion state and direction they apply to.
type NotifyTable struct {
	entries map[notifyKey][]Notify
}

func NewNotifyTable() *NotifyTable {
	return &NotifyTable{entries: make(map[notifyKey][]Notify)}
}

// Add registers a notify for doors moving in state with direction. Only Opening and Closing have
// notifies, other states are ignored.
func (t *NotifyTable) Add(state State, direction Direction, n Notify) {
	if !state.InMotion() {
		return
	}
	key := notifyKey{state: state, direction: direction}
	list := append(t.entries[key], n)
	slices.SortStableFunc(list, func(a, b Notify) int {
		switch {
		case a.Threshold < b.Threshold:
			return -1
		case a.Threshold > b.Threshold:
			return 1
		}
		return 0
	})
	t.entries[key] = list
}

// Len returns the amount of notifies registered for state and direction.
func (t *NotifyTable) Len(state State, direction Direction) int {
	return len(t.entries[notifyKey{state: state, direction: direction}])
}

// progress converts alpha to the fraction of the current swing completed.
func progress(state State, alpha float32) float32 {
	a := alpha
	if a < 0 {
		a = -a
	}
	if state == StateClosing {
		return 1 - a
	}
	return a
}

// Scan returns the first notify whose threshold was crossed moving alpha from oldAlpha to newAlpha. At
// most one notify is returned per change.
func (t *NotifyTable) Scan(state State, direction Direction, oldAlpha, newAlpha float32) (Notify, bool) {
	if t == nil {
		return Notify{}, false
	}
	from, to := progress(state, oldAlpha), progress(state, newAlpha)
	for _, n := range t.entries[notifyKey{state: state, direction: direction}] {
		if n.Threshold > from && n.Threshold <= to {
			return n, true
		}
	}
	return Notify{}, false
}
