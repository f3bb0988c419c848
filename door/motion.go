package door

import (
	"github.com/chewxy/math32"
	"github.com/oomph-ac/doors/utils"
)

// MotionMode selects the rule used to advance a door's alpha while it is moving.
type MotionMode uint8

const (
	// MotionDisabled leaves alpha alone. Something else, such as a Sweeper, has to call SetAlpha.
	MotionDisabled MotionMode = iota
	// MotionTime moves alpha at a constant rate so that a full swing takes the configured duration.
	MotionTime
	// MotionInterpConstant moves alpha at a constant speed and does not depend on the frame rate. Use
	// it for doors that push physical bodies around.
	MotionInterpConstant
	// MotionInterpTo eases alpha towards its target. The approach depends on the frame time, so overlap
	// resolution against dynamic bodies differs between fast and slow hosts. Avoid it for doors that
	// collide with anything that moves.
	MotionInterpTo
)

var motionModeNames = [...]string{"Disabled", "Time", "InterpConstant", "InterpTo"}

func (m MotionMode) String() string {
	if int(m) < len(motionModeNames) {
		return motionModeNames[m]
	}
	return "Invalid"
}

// ParseMotionMode parses the name of a motion mode.
func ParseMotionMode(s string) (MotionMode, bool) {
	for i, name := range motionModeNames {
		if name == s {
			return MotionMode(i), true
		}
	}
	return 0, false
}

// AlphaTolerance is how close alpha must be to a boundary for the door to settle there.
const AlphaTolerance float32 = 1e-4

// Rates holds a value per swing direction.
type Rates struct {
	Outward float32
	Inward  float32
}

// For returns the value for direction d.
func (r Rates) For(d Direction) float32 {
	if d == DirectionInward {
		return r.Inward
	}
	return r.Outward
}

// MotionSettings configures the MotionSimulator.
type MotionSettings struct {
	Mode MotionMode

	// OpenDuration and CloseDuration are the seconds a full swing takes in MotionTime.
	OpenDuration  Rates
	CloseDuration Rates

	// OpenSpeed and CloseSpeed are the interpolation speeds used by the interp modes.
	OpenSpeed  Rates
	CloseSpeed Rates

	// InterpTolerance is the distance from the target at which MotionInterpTo snaps.
	InterpTolerance float32
}

// DefaultMotionSettings returns settings for a door that swings fully open in one second.
func DefaultMotionSettings() MotionSettings {
	return MotionSettings{
		Mode:            MotionInterpConstant,
		OpenDuration:    Rates{Outward: 1, Inward: 1},
		CloseDuration:   Rates{Outward: 1, Inward: 1},
		OpenSpeed:       Rates{Outward: 1, Inward: 1},
		CloseSpeed:      Rates{Outward: 1, Inward: 1},
		InterpTolerance: 0.01,
	}
}

// TargetAlpha returns where alpha is heading for a door in the given state: +1 when open or opening
// outward, -1 when open or opening inward and 0 otherwise.
func TargetAlpha(state State, direction Direction) float32 {
	if state.OpenOrOpening() {
		return direction.Sign()
	}
	return 0
}

// MotionSimulator advances alpha for doors in motion.
type MotionSimulator struct {
	Settings MotionSettings
}

// Step returns alpha advanced by dt seconds. Doors that are not moving, and doors in MotionDisabled, are
// returned unchanged.
func (m MotionSimulator) Step(state State, direction Direction, alpha, dt float32) float32 {
	if !state.InMotion() || dt <= 0 {
		return alpha
	}

	target := TargetAlpha(state, direction)
	opening := state == StateOpening
	switch m.Settings.Mode {
	case MotionDisabled:
		return alpha
	case MotionTime:
		duration := m.Settings.CloseDuration.For(direction)
		if opening {
			duration = m.Settings.OpenDuration.For(direction)
		}
		if duration <= 0 {
			return target
		}
		return timeStep(alpha, target, direction, opening, dt/duration)
	case MotionInterpConstant:
		speed := m.Settings.CloseSpeed.For(direction)
		if opening {
			speed = m.Settings.OpenSpeed.For(direction)
		}
		return interpConstantTo(alpha, target, dt, speed)
	case MotionInterpTo:
		speed := m.Settings.CloseSpeed.For(direction)
		if opening {
			speed = m.Settings.OpenSpeed.For(direction)
		}
		next := interpTo(alpha, target, dt, speed)
		if utils.IsNearlyEqual(next, target, m.Settings.InterpTolerance) {
			return target
		}
		return next
	}
	return alpha
}

func timeStep(alpha, target float32, direction Direction, opening bool, delta float32) float32 {
	if opening {
		next := alpha + direction.Sign()*delta
		if direction == DirectionInward {
			return math32.Max(next, target)
		}
		return math32.Min(next, target)
	}

	// Close back towards zero from whichever side the door is on.
	sign := utils.Sign32(alpha)
	if sign == 0 {
		return 0
	}
	next := alpha - sign*delta
	if utils.Sign32(next) != sign {
		return 0
	}
	return next
}

func interpConstantTo(current, target, dt, speed float32) float32 {
	dist := target - current
	if dist*dist < utils.SmallNumber {
		return target
	}
	step := speed * dt
	return current + utils.Clamp32(dist, -step, step)
}

func interpTo(current, target, dt, speed float32) float32 {
	if speed <= 0 {
		return target
	}
	dist := target - current
	if dist*dist < utils.SmallNumber {
		return target
	}
	return current + dist*utils.Clamp32(dt*speed, 0, 1)
}
