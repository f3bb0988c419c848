package event

import (
	"bytes"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/utils"
)

// StateEvent carries the packed state of a door from the authority to its observers.
type StateEvent struct {
	NopEvent

	DoorID uint64
	Code   door.Packed
}

func (StateEvent) ID() byte {
	return EventIDDoorState
}

func (ev StateEvent) Encode() []byte {
	return encode(ev, func(buf *bytes.Buffer) {
		utils.WriteLUint64(buf, ev.DoorID)
		buf.WriteByte(byte(ev.Code))
	})
}

// LegacyStateEvent carries a door state in the eight value format understood by older peers.
type LegacyStateEvent struct {
	NopEvent

	DoorID uint64
	Code   door.LegacyPacked
}

func (LegacyStateEvent) ID() byte {
	return EventIDLegacyDoorState
}

func (ev LegacyStateEvent) Encode() []byte {
	return encode(ev, func(buf *bytes.Buffer) {
		utils.WriteLUint64(buf, ev.DoorID)
		buf.WriteByte(byte(ev.Code))
	})
}

// PolicyEvent carries the runtime policies of a door.
type PolicyEvent struct {
	NopEvent

	DoorID        uint64
	Access        door.Access
	OpenDirection door.OpenDirection
	OpenMotion    door.Motion
}

func (PolicyEvent) ID() byte {
	return EventIDDoorPolicy
}

func (ev PolicyEvent) Encode() []byte {
	return encode(ev, func(buf *bytes.Buffer) {
		utils.WriteLUint64(buf, ev.DoorID)
		buf.WriteByte(byte(ev.Access))
		buf.WriteByte(byte(ev.OpenDirection))
		buf.WriteByte(byte(ev.OpenMotion))
	})
}

// InteractEvent is sent by a client that wants to interact with a door.
type InteractEvent struct {
	NopEvent

	DoorID uint64
	// PredictionID identifies the client's local prediction, so a rejection can be matched to it.
	PredictionID uint32
	State        door.State
	Side         door.Side

	HasPosition bool
	Position    mgl32.Vec3
}

func (InteractEvent) ID() byte {
	return EventIDInteract
}

func (ev InteractEvent) Encode() []byte {
	return encode(ev, func(buf *bytes.Buffer) {
		utils.WriteLUint64(buf, ev.DoorID)
		utils.WriteLUint32(buf, ev.PredictionID)
		buf.WriteByte(byte(ev.State))
		buf.WriteByte(byte(ev.Side))
		if !ev.HasPosition {
			buf.WriteByte(0)
			return
		}
		buf.WriteByte(1)
		utils.WriteLFloat32(buf, ev.Position[0])
		utils.WriteLFloat32(buf, ev.Position[1])
		utils.WriteLFloat32(buf, ev.Position[2])
	})
}

// RejectEvent tells a client its interaction was refused, along with the door's current state so the
// client can correct its prediction.
type RejectEvent struct {
	NopEvent

	DoorID       uint64
	PredictionID uint32
	Reason       door.FailReason
	Code         door.Packed
}

func (RejectEvent) ID() byte {
	return EventIDReject
}

func (ev RejectEvent) Encode() []byte {
	return encode(ev, func(buf *bytes.Buffer) {
		utils.WriteLUint64(buf, ev.DoorID)
		utils.WriteLUint32(buf, ev.PredictionID)
		buf.WriteByte(byte(ev.Reason))
		buf.WriteByte(byte(ev.Code))
	})
}
