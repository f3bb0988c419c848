package event

import (
	"bytes"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/internal"
	"github.com/oomph-ac/doors/oerror"
	"github.com/oomph-ac/doors/utils"
)

const EventsVersion = "1"

// headerSize is the size of the ID and timestamp written in front of every event.
const headerSize = 1 + 8

type Event interface {
	ID() byte
	Encode() []byte

	Time() int64
}

type NopEvent struct {
	EvTime int64
}

func (n NopEvent) Time() int64 {
	return n.EvTime
}

func WriteEventHeader(ev Event, buf *bytes.Buffer) {
	buf.WriteByte(ev.ID())
	utils.WriteLInt64(buf, ev.Time())
}

// encode writes the header of ev and then whatever body writes, returning a copy of the result.
func encode(ev Event, body func(buf *bytes.Buffer)) []byte {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer internal.BufferPool.Put(buf)

	WriteEventHeader(ev, buf)
	body(buf)
	return bytes.Clone(buf.Bytes())
}

// EncodeEvents concatenates the encoding of every event passed, the inverse of DecodeEvents.
func EncodeEvents(events ...Event) []byte {
	var out []byte
	for _, ev := range events {
		out = append(out, ev.Encode()...)
	}
	return out
}

func DecodeEvents(dat []byte) ([]Event, error) {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.Write(dat)
	defer internal.BufferPool.Put(buf)

	events := []Event{}
	for buf.Len() > 0 {
		ev, err := DecodeEvent(buf)
		if err != nil {
			return events, oerror.New("error decoding event: %v", err)
		}

		events = append(events, ev)
	}

	return events, nil
}

// next returns the next n bytes of buf, or an error if fewer remain.
func next(buf *bytes.Buffer, n int, what string) ([]byte, error) {
	if buf.Len() < n {
		return nil, oerror.New("short buffer reading %s: need %d bytes, have %d", what, n, buf.Len())
	}
	return buf.Next(n), nil
}

func DecodeEvent(buf *bytes.Buffer) (Event, error) {
	header, err := next(buf, headerSize, "event header")
	if err != nil {
		return nil, err
	}
	id := header[0]
	t := utils.LInt64(header[1:])

	switch id {
	case EventIDDoorState:
		body, err := next(buf, 8+1, "StateEvent")
		if err != nil {
			return nil, err
		}
		ev := StateEvent{}
		ev.EvTime = t
		ev.DoorID = utils.LUint64(body)
		ev.Code = door.Packed(body[8])
		return ev, nil
	case EventIDLegacyDoorState:
		body, err := next(buf, 8+1, "LegacyStateEvent")
		if err != nil {
			return nil, err
		}
		ev := LegacyStateEvent{}
		ev.EvTime = t
		ev.DoorID = utils.LUint64(body)
		ev.Code = door.LegacyPacked(body[8])
		return ev, nil
	case EventIDDoorPolicy:
		body, err := next(buf, 8+3, "PolicyEvent")
		if err != nil {
			return nil, err
		}
		ev := PolicyEvent{}
		ev.EvTime = t
		ev.DoorID = utils.LUint64(body)
		ev.Access, ev.OpenDirection, ev.OpenMotion = door.Access(body[8]), door.OpenDirection(body[9]), door.Motion(body[10])
		return ev, nil
	case EventIDInteract:
		body, err := next(buf, 8+4+3, "InteractEvent")
		if err != nil {
			return nil, err
		}
		ev := InteractEvent{}
		ev.EvTime = t
		ev.DoorID = utils.LUint64(body)
		ev.PredictionID = utils.LUint32(body[8:])
		ev.State, ev.Side = door.State(body[12]), door.Side(body[13])
		if body[14] == 1 {
			pos, err := next(buf, 12, "InteractEvent position")
			if err != nil {
				return nil, err
			}
			ev.HasPosition = true
			ev.Position[0] = utils.LFloat32(pos)
			ev.Position[1] = utils.LFloat32(pos[4:])
			ev.Position[2] = utils.LFloat32(pos[8:])
		}
		return ev, nil
	case EventIDReject:
		body, err := next(buf, 8+4+2, "RejectEvent")
		if err != nil {
			return nil, err
		}
		ev := RejectEvent{}
		ev.EvTime = t
		ev.DoorID = utils.LUint64(body)
		ev.PredictionID = utils.LUint32(body[8:])
		ev.Reason = door.FailReason(body[12])
		ev.Code = door.Packed(body[13])
		return ev, nil
	default:
		return nil, oerror.New("unknown event: %d", id)
	}
}

const (
	_ = iota
	EventIDDoorState
	EventIDLegacyDoorState
	EventIDDoorPolicy
	EventIDInteract
	EventIDReject
)
