package door

import (
	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/doors/utils"
)

// Obstacle is something a sweeping door may run into.
type Obstacle struct {
	Position mgl32.Vec3
	Box      cube.BBox
}

// ObstacleSource returns the obstacles whose boxes intersect the box passed.
type ObstacleSource interface {
	Obstacles(box cube.BBox) []Obstacle
}

// SweepOptions configures a Sweeper.
type SweepOptions struct {
	// SimulationFrequency is the amount of sweep steps per second.
	SimulationFrequency float32
	// LimitByFrameRate takes exactly one step per Tick, regardless of the frame time.
	LimitByFrameRate bool
	// Speed is how much alpha changes per second of simulated time.
	Speed float32

	// OutwardYaw and InwardYaw are the degrees the leaf rotates when fully open in each direction.
	OutwardYaw float32
	InwardYaw  float32

	// Width, Height and Thickness are the dimensions of the leaf. The leaf extends Width along the axis
	// perpendicular to the door's forward axis, starting at the hinge.
	Width, Height, Thickness float32

	// Debugf receives a trace of every rejected step.
	Debugf func(format string, args ...any)
}

// DefaultSweepOptions returns options for a regular 1x2 metre door.
func DefaultSweepOptions() SweepOptions {
	return SweepOptions{
		SimulationFrequency: 60,
		Speed:               1,
		OutwardYaw:          90,
		InwardYaw:           90,
		Width:               1,
		Height:              2,
		Thickness:           0.1,
	}
}

// minSweepTime is the smallest frame time a Sweeper will act on.
const minSweepTime = 1e-6

// Sweeper drives the alpha of a door in MotionDisabled by rotating its leaf in small fixed steps and
// refusing steps that would push the leaf into an obstacle.
//
// The obstruction test is a heuristic: it compares the direction the door's forward axis turns in over
// the step with the direction from the hinge to the obstacle, and a negative dot product refuses the
// step. It has not been verified against several actors obstructing the door at once and should be
// treated as approximate.
type Sweeper struct {
	Door      *Door
	Obstacles ObstacleSource
	Options   SweepOptions

	acc     float32
	blocked bool
}

// Blocked returns whether the last step taken was refused because of an obstacle.
func (s *Sweeper) Blocked() bool {
	return s.blocked
}

// Tick advances the sweep by dt seconds.
func (s *Sweeper) Tick(dt float32) {
	if dt < minSweepTime || s.Options.SimulationFrequency <= 0 {
		return
	}
	d := s.Door
	if !d.State().InMotion() {
		s.acc, s.blocked = 0, false
		return
	}

	stepTime := 1 / s.Options.SimulationFrequency
	if s.Options.LimitByFrameRate {
		s.acc = stepTime
	} else {
		s.acc += dt
	}

	for s.acc >= stepTime {
		s.acc -= stepTime
		if !s.step(stepTime) {
			s.acc = 0
			return
		}
	}
}

// step takes one fixed step. It returns false once the door stops moving or the step was refused.
func (s *Sweeper) step(stepTime float32) bool {
	d := s.Door
	alpha := d.Alpha()
	target := TargetAlpha(d.State(), d.Direction())
	remaining := target - alpha
	if utils.IsNearlyZero(remaining, AlphaTolerance) {
		d.SetAlpha(target)
		return false
	}

	delta := utils.Clamp32(stepTime*s.Options.Speed, 0, 1) * utils.Sign32(remaining)
	if math32.Abs(delta) > math32.Abs(remaining) {
		delta = remaining
	}
	next := alpha + delta

	if s.obstructed(alpha, next) {
		s.blocked = true
		return false
	}
	s.blocked = false
	d.SetAlpha(next)
	return d.State().InMotion()
}

func (s *Sweeper) obstructed(alpha, next float32) bool {
	if s.Obstacles == nil {
		return false
	}
	d := s.Door
	fwdNow, fwdNext := s.rotate(d.Forward(), alpha), s.rotate(d.Forward(), next)
	rotationDir := flatten(fwdNext.Sub(fwdNow))
	if rotationDir.Len() == 0 {
		return false
	}

	box := s.LeafBox(next)
	for _, o := range s.Obstacles.Obstacles(box) {
		if !o.Box.IntersectsWith(box) {
			continue
		}
		toObstacle := flatten(o.Position.Sub(d.Position()))
		if toObstacle.Len() == 0 {
			continue
		}
		if rotationDir.Dot(toObstacle) < 0 {
			if s.Options.Debugf != nil {
				s.Options.Debugf("door %s sweep blocked at alpha %.3f -> %.3f by obstacle at %v", d.Name(), alpha, next, o.Position)
			}
			return true
		}
	}
	return false
}

// yaw returns the rotation of the leaf, in degrees, for alpha.
func (s *Sweeper) yaw(alpha float32) float32 {
	if alpha < 0 {
		return alpha * s.Options.InwardYaw
	}
	return alpha * s.Options.OutwardYaw
}

// rotate turns v around the hinge as far as the leaf is turned at alpha. Positive alpha swings towards
// the front of the door.
func (s *Sweeper) rotate(v mgl32.Vec3, alpha float32) mgl32.Vec3 {
	return mgl32.Rotate3DY(-mgl32.DegToRad(s.yaw(alpha))).Mul3x1(v)
}

// leafDirection returns the horizontal unit vector from the hinge along the leaf for alpha.
func (s *Sweeper) leafDirection(alpha float32) mgl32.Vec3 {
	fwd := s.Door.Forward()
	// Closed, the leaf lies along the axis perpendicular to forward.
	return s.rotate(mgl32.Vec3{fwd.Z(), 0, -fwd.X()}, alpha)
}

// LeafBox returns an axis aligned box enclosing the leaf rotated to alpha.
func (s *Sweeper) LeafBox(alpha float32) cube.BBox {
	d := s.Door
	along := s.leafDirection(alpha).Mul(s.Options.Width)
	across := flatten(mgl32.Vec3{-along.Z(), 0, along.X()}).Mul(s.Options.Thickness / 2)

	pivot := d.Position()
	corners := [4]mgl32.Vec3{
		pivot.Add(across),
		pivot.Sub(across),
		pivot.Add(along).Add(across),
		pivot.Add(along).Sub(across),
	}
	minX, minZ := corners[0].X(), corners[0].Z()
	maxX, maxZ := minX, minZ
	for _, c := range corners[1:] {
		minX, maxX = math32.Min(minX, c.X()), math32.Max(maxX, c.X())
		minZ, maxZ = math32.Min(minZ, c.Z()), math32.Max(maxZ, c.Z())
	}
	return cube.Box(minX, pivot.Y(), minZ, maxX, pivot.Y()+s.Options.Height, maxZ)
}
