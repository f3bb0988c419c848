package door

// Actor is whatever is interacting with a door. The door never inspects it, it is only handed through to
// the Policy.
type Actor any

// Policy lets the host veto interactions around the resolver. CanDoorChangeToAnyState is asked before
// anything else and CanChangeDoorState is asked with the transition the resolver settled on.
type Policy interface {
	CanDoorChangeToAnyState(actor Actor) bool
	CanChangeDoorState(actor Actor, t Transition) bool
}

// AllowAll is a Policy that never vetoes anything.
type AllowAll struct{}

func (AllowAll) CanDoorChangeToAnyState(Actor) bool        { return true }
func (AllowAll) CanChangeDoorState(Actor, Transition) bool { return true }

// PolicyFuncs adapts plain functions to a Policy. A nil function allows everything.
type PolicyFuncs struct {
	AnyState func(actor Actor) bool
	State    func(actor Actor, t Transition) bool
}

func (p PolicyFuncs) CanDoorChangeToAnyState(actor Actor) bool {
	return p.AnyState == nil || p.AnyState(actor)
}

func (p PolicyFuncs) CanChangeDoorState(actor Actor, t Transition) bool {
	return p.State == nil || p.State(actor, t)
}
