package door

// Packed is the replicated door state: a single byte holding the discrete state, direction and side.
//
//	bit:   7 6 5 4 | 3    | 2         | 1 0
//	       unused  | side | direction | state
type Packed uint8

const (
	stateShift     = 0
	stateMask      = 0b11
	directionShift = 2
	directionMask  = 0b1
	sideShift      = 3
	sideMask       = 0b1

	// packedCodes is the number of legal packed codes (4 states * 2 directions * 2 sides).
	packedCodes = 16
)

// FallbackPacked is what corrupt codes decode to.
var FallbackPacked = Pack(StateClosed, DirectionOutward, SideFront)

type unpacked struct {
	state     State
	direction Direction
	side      Side
}

// decodeTable maps every legal code to its tuple. Built once so Unpack never has to trust the
// bit layout of a value it did not produce.
var decodeTable = func() (t [packedCodes]unpacked) {
	for s := StateClosed; s <= StateClosing; s++ {
		for d := DirectionOutward; d <= DirectionInward; d++ {
			for side := SideFront; side <= SideBack; side++ {
				t[Pack(s, d, side)] = unpacked{state: s, direction: d, side: side}
			}
		}
	}
	return
}()

// Pack encodes the tuple into a single byte. The arguments are not range checked, so the caller must
// pass values produced by this package.
func Pack(state State, direction Direction, side Side) Packed {
	return Packed(uint8(state)&stateMask<<stateShift |
		uint8(direction)&directionMask<<directionShift |
		uint8(side)&sideMask<<sideShift)
}

// Unpack decodes a code produced by Pack. Codes outside the legal range decode to Closed, Outward,
// Front and ok is false; callers should treat that as corrupt input.
func Unpack(code Packed) (state State, direction Direction, side Side, ok bool) {
	if int(code) >= packedCodes {
		return StateClosed, DirectionOutward, SideFront, false
	}
	u := decodeTable[code]
	return u.state, u.direction, u.side, true
}

// Valid returns whether the code is within the legal range.
func (p Packed) Valid() bool {
	return int(p) < packedCodes
}

func (p Packed) String() string {
	state, direction, side, ok := Unpack(p)
	if !ok {
		return "Corrupt"
	}
	return state.String() + "/" + direction.String() + "/" + side.String()
}

// LegacyPacked is the earlier eight value wire format which only carried the state and the side the
// door was triggered from. It is still accepted from older peers.
type LegacyPacked uint8

const (
	LegacyClosedFront LegacyPacked = iota
	LegacyClosedBack
	LegacyOpeningFront
	LegacyOpeningBack
	LegacyOpenFront
	LegacyOpenBack
	LegacyClosingFront
	LegacyClosingBack
)

// PackLegacy encodes the state and side into the legacy format.
func PackLegacy(state State, side Side) LegacyPacked {
	return LegacyPacked(uint8(state)*2 + uint8(side)&1)
}

// UnpackLegacy decodes a legacy code. Out of range codes decode to Closed, Front and ok is false.
func UnpackLegacy(code LegacyPacked) (state State, side Side, ok bool) {
	if code > LegacyClosingBack {
		return StateClosed, SideFront, false
	}
	return State(code / 2), Side(code % 2), true
}

// LegacyDirection maps the side of a legacy code to a swing direction. Earlier peers used the side the
// door was opened from as the sign of alpha: front is positive.
func LegacyDirection(side Side) Direction {
	if side == SideBack {
		return DirectionInward
	}
	return DirectionOutward
}
