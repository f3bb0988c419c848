package door

// FailReason identifies why an interaction was rejected. FailNone means the interaction was accepted.
type FailReason uint8

const (
	FailNone FailReason = iota
	FailNotValid
	FailLocked
	FailAlreadyOpen
	FailAlreadyClosed
	FailNoAccessFront
	FailNoAccessBack
	// FailGeneralVeto is returned when the door's policy refuses any state change for the actor.
	FailGeneralVeto
	// FailStateVeto is returned when the door's policy refuses the specific transition that was resolved.
	FailStateVeto
	FailOnCooldown
	FailInMotion
	// FailClientSide is returned when the client's claimed side disagrees with the one computed by the
	// server and the door does not trust client sides.
	FailClientSide
)

var failTags = [...]string{
	FailNone:          "",
	FailNotValid:      "door.fail.not_valid",
	FailLocked:        "door.fail.locked",
	FailAlreadyOpen:   "door.fail.already_open",
	FailAlreadyClosed: "door.fail.already_closed",
	FailNoAccessFront: "door.fail.no_access_front",
	FailNoAccessBack:  "door.fail.no_access_back",
	FailGeneralVeto:   "door.fail.can_change_any_state",
	FailStateVeto:     "door.fail.can_change_state",
	FailOnCooldown:    "door.fail.on_cooldown",
	FailInMotion:      "door.fail.in_motion",
	FailClientSide:    "door.fail.client_side",
}

// Tag returns a stable string identifier for the reason, suitable for UI lookups.
func (f FailReason) Tag() string {
	if int(f) < len(failTags) {
		return failTags[f]
	}
	return "door.fail.unknown"
}

func (f FailReason) String() string {
	if f == FailNone {
		return "none"
	}
	return f.Tag()
}
