package door

import (
	"strings"

	"github.com/oomph-ac/doors/oerror"
)

// State is the discrete lifecycle state of a door.
type State uint8

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

var stateNames = [...]string{"Closed", "Opening", "Open", "Closing"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Invalid"
}

// InMotion returns true if the door is Opening or Closing.
func (s State) InMotion() bool {
	return s == StateOpening || s == StateClosing
}

// Stationary returns true if the door is fully Open or fully Closed.
func (s State) Stationary() bool {
	return s == StateOpen || s == StateClosed
}

func (s State) OpenOrOpening() bool {
	return s == StateOpen || s == StateOpening
}

func (s State) ClosedOrClosing() bool {
	return s == StateClosed || s == StateClosing
}

// Direction is the direction a door swings when opening. Outward maps to positive alpha.
type Direction uint8

const (
	DirectionOutward Direction = iota
	DirectionInward
)

func (d Direction) String() string {
	switch d {
	case DirectionOutward:
		return "Outward"
	case DirectionInward:
		return "Inward"
	}
	return "Invalid"
}

// Sign returns +1 for outward and -1 for inward.
func (d Direction) Sign() float32 {
	if d == DirectionInward {
		return -1
	}
	return 1
}

// Side is the side of the door an actor stands on, relative to the door's forward axis.
type Side uint8

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	switch s {
	case SideFront:
		return "Front"
	case SideBack:
		return "Back"
	}
	return "Invalid"
}

// Motion is the way an actor moves a door: pushing it away or pulling it towards themselves.
type Motion uint8

const (
	MotionPush Motion = iota
	MotionPull
)

func (m Motion) String() string {
	switch m {
	case MotionPush:
		return "Push"
	case MotionPull:
		return "Pull"
	}
	return "Invalid"
}

// Flip returns the opposite motion.
func (m Motion) Flip() Motion {
	if m == MotionPush {
		return MotionPull
	}
	return MotionPush
}

// Access describes from which side a door may be opened.
type Access uint8

const (
	AccessBidirectional Access = iota
	AccessFront
	AccessBehind
)

func (a Access) String() string {
	switch a {
	case AccessBidirectional:
		return "Bidirectional"
	case AccessFront:
		return "Front"
	case AccessBehind:
		return "Behind"
	}
	return "Invalid"
}

// Allows returns whether an actor on the given side may open a door with this access.
func (a Access) Allows(side Side) bool {
	switch a {
	case AccessFront:
		return side == SideFront
	case AccessBehind:
		return side == SideBack
	}
	return true
}

// OpenDirection restricts which way a door may swing open. OpenLocked prevents opening altogether.
type OpenDirection uint8

const (
	OpenBidirectional OpenDirection = iota
	OpenOutward
	OpenInward
	OpenLocked
)

func (o OpenDirection) String() string {
	switch o {
	case OpenBidirectional:
		return "Bidirectional"
	case OpenOutward:
		return "Outward"
	case OpenInward:
		return "Inward"
	case OpenLocked:
		return "Locked"
	}
	return "Invalid"
}

// Permits returns whether the door may swing open in direction d.
func (o OpenDirection) Permits(d Direction) bool {
	switch o {
	case OpenOutward:
		return d == DirectionOutward
	case OpenInward:
		return d == DirectionInward
	case OpenLocked:
		return false
	}
	return true
}

// Interaction is what an actor wants to do to the door.
type Interaction uint8

const (
	InteractionClose Interaction = iota
	InteractionOpen
)

func (i Interaction) String() string {
	if i == InteractionOpen {
		return "Open"
	}
	return "Close"
}

// ChangeType governs when a runtime change to a door policy (access, open direction, open motion)
// is allowed to take effect.
type ChangeType uint8

const (
	// ChangeDisabled rejects all runtime changes.
	ChangeDisabled ChangeType = iota
	// ChangeClosed only applies a change while the door is Closed.
	ChangeClosed
	// ChangeWait queues the change and applies it the next time the door settles Closed.
	ChangeWait
	// ChangeImmediate applies the change straight away.
	ChangeImmediate
)

var changeTypeNames = [...]string{"Disabled", "Closed", "Wait", "Immediate"}

func (c ChangeType) String() string {
	if int(c) < len(changeTypeNames) {
		return changeTypeNames[c]
	}
	return "Invalid"
}

// ParseState parses the name of a state, case insensitively.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if strings.EqualFold(name, s) {
			return State(i), nil
		}
	}
	return 0, oerror.New("unknown door state %q", s)
}

// ParseDirection parses "outward" or "inward", case insensitively.
func ParseDirection(s string) (Direction, error) {
	for d := DirectionOutward; d <= DirectionInward; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, nil
		}
	}
	return 0, oerror.New("unknown door direction %q", s)
}

// ParseAccess parses the name of an access policy, case insensitively.
func ParseAccess(s string) (Access, error) {
	for a := AccessBidirectional; a <= AccessBehind; a++ {
		if strings.EqualFold(a.String(), s) {
			return a, nil
		}
	}
	return 0, oerror.New("unknown door access %q", s)
}

// ParseOpenDirection parses the name of an open direction policy, case insensitively.
func ParseOpenDirection(s string) (OpenDirection, error) {
	for o := OpenBidirectional; o <= OpenLocked; o++ {
		if strings.EqualFold(o.String(), s) {
			return o, nil
		}
	}
	return 0, oerror.New("unknown door open direction %q", s)
}

// ParseMotion parses "push" or "pull", case insensitively.
func ParseMotion(s string) (Motion, error) {
	switch strings.ToLower(s) {
	case "push":
		return MotionPush, nil
	case "pull":
		return MotionPull, nil
	}
	return 0, oerror.New("unknown door motion %q", s)
}

// ParseChangeType parses the name of a change type, case insensitively.
func ParseChangeType(s string) (ChangeType, error) {
	for i, name := range changeTypeNames {
		if strings.EqualFold(name, s) {
			return ChangeType(i), nil
		}
	}
	return 0, oerror.New("unknown change type %q", s)
}

// StateDirectionString formats a state together with its direction, e.g. "Opening (Inward)".
func StateDirectionString(s State, d Direction) string {
	return s.String() + " (" + d.String() + ")"
}

// StateSideString formats a state together with the side it was triggered from.
func StateSideString(s State, side Side) string {
	return s.String() + " (" + side.String() + ")"
}
