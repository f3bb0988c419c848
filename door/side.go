package door

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ForwardAxis selects which local horizontal axis of the door counts as its front.
type ForwardAxis uint8

const (
	AxisZ ForwardAxis = iota
	AxisX
)

// flatten projects v onto the horizontal (XZ) plane, Y being up, and normalizes it. A vector too short
// to normalize comes back as zero.
func flatten(v mgl32.Vec3) mgl32.Vec3 {
	v = mgl32.Vec3{v.X(), 0, v.Z()}
	if v.Len() <= 1e-8 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

// SideOf returns the side of the door the actor stands on. The actor is in front when the horizontal
// vector from the door to the actor points the same way as forward (dot >= 0). Degenerate input, such
// as an actor standing exactly on the pivot, resolves to SideFront.
func SideOf(actorPos, doorPos, forward mgl32.Vec3) Side {
	toActor := flatten(actorPos.Sub(doorPos))
	fwd := flatten(forward)
	if toActor.Dot(fwd) >= 0 {
		return SideFront
	}
	return SideBack
}

// AxisVector returns the door's forward vector for a door rotated yaw degrees around the Y axis.
func AxisVector(yaw float32, axis ForwardAxis) mgl32.Vec3 {
	rad := mgl32.DegToRad(yaw)
	sin, cos := math32.Sin(rad), math32.Cos(rad)
	if axis == AxisX {
		return mgl32.Vec3{cos, 0, -sin}
	}
	return mgl32.Vec3{sin, 0, cos}
}
