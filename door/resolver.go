package door

// Snapshot is the part of a door's state the resolver needs. It is copied out of a Door so that the
// resolver never reads live state while deciding.
type Snapshot struct {
	// Valid is false for a door that has been destroyed or was never registered.
	Valid bool

	State     State
	Direction Direction

	Access        Access
	OpenDirection OpenDirection
	OpenMotion    Motion
}

// Transition is a transition proposed by the resolver.
type Transition struct {
	From      State
	To        State
	Direction Direction
	Motion    Motion
	Side      Side
}

// Result is the outcome of Progress. When Accepted is false, State and Direction are the door's current
// values and Reason says why the request was refused.
type Result struct {
	Accepted  bool
	State     State
	Direction Direction
	Motion    Motion
	Reason    FailReason
}

// Transition returns the transition described by an accepted result.
func (r Result) Transition(from State, side Side) Transition {
	return Transition{From: from, To: r.State, Direction: r.Direction, Motion: r.Motion, Side: side}
}

// InteractionFromState returns what an actor who believes the door is in state s wants to do: open it
// when it looks closed, close it when it looks open.
func InteractionFromState(s State) Interaction {
	if s.ClosedOrClosing() {
		return InteractionOpen
	}
	return InteractionClose
}

// DirectionFor returns the swing direction produced by an actor on side applying motion. Pushing from
// the front or pulling from the back swings the door inward.
func DirectionFor(side Side, motion Motion) Direction {
	if (side == SideFront) == (motion == MotionPush) {
		return DirectionInward
	}
	return DirectionOutward
}

// Progress decides how a door in the given snapshot responds to an actor who believes the door is in
// requestedState and stands on requestedSide. It is pure: the same input always yields the same result.
func Progress(snap Snapshot, requestedState State, requestedSide Side) Result {
	reject := func(reason FailReason) Result {
		return Result{State: snap.State, Direction: snap.Direction, Reason: reason}
	}
	if !snap.Valid {
		return reject(FailNotValid)
	}

	interaction := InteractionFromState(requestedState)
	switch interaction {
	case InteractionOpen:
		if snap.OpenDirection == OpenLocked {
			return reject(FailLocked)
		}
		if snap.State.OpenOrOpening() {
			return reject(FailAlreadyOpen)
		}
		if !snap.Access.Allows(requestedSide) {
			if requestedSide == SideFront {
				return reject(FailNoAccessFront)
			}
			return reject(FailNoAccessBack)
		}

		motion := snap.OpenMotion
		direction := DirectionFor(requestedSide, motion)
		if !snap.OpenDirection.Permits(direction) {
			// The preferred motion would swing the door the wrong way, the other one never does for
			// a single-direction door.
			motion = motion.Flip()
			direction = DirectionFor(requestedSide, motion)
		}
		return Result{Accepted: true, State: StateOpening, Direction: direction, Motion: motion}
	case InteractionClose:
		if snap.State.ClosedOrClosing() {
			return reject(FailAlreadyClosed)
		}
		motion := MotionPull
		if requestedSide == SideFront {
			motion = MotionPush
		}
		return Result{Accepted: true, State: StateClosing, Direction: snap.Direction, Motion: motion}
	}
	return reject(FailNotValid)
}
