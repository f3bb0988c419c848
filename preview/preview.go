// Package preview runs a door offline on a virtual clock and records what it does, so door settings can
// be inspected without a server or a client.
package preview

import (
	"time"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/schedule"
)

// Action is an interaction performed At seconds into the preview.
type Action struct {
	At      float32
	Actor   door.Actor
	Request door.Request
}

// Frame is the state of the door at the end of one step.
type Frame struct {
	Time      float32
	State     door.State
	Direction door.Direction
	Alpha     float32
	// Notifies holds the tags fired during the step.
	Notifies []string
}

// Outcome is the result of an Action.
type Outcome struct {
	Action Action
	Result door.Result
}

// Timeline is everything recorded during a preview.
type Timeline struct {
	Frames   []Frame
	Outcomes []Outcome
	// Settled is true if the door came to rest with no cooldown running before MaxDuration passed.
	Settled bool
}

// Options configure a preview.
type Options struct {
	// Step is the length of a frame in seconds.
	Step float32
	// MaxDuration is the longest a preview may run, in seconds.
	MaxDuration float32
	// Obstacles are swept against when the door's motion mode is MotionDisabled.
	Obstacles door.ObstacleSource
	Sweep     door.SweepOptions

	// Debugf receives a line for every frame.
	Debugf func(format string, args ...any)
}

func DefaultOptions() Options {
	return Options{
		Step:        1.0 / 60,
		MaxDuration: 10,
		Sweep:       door.DefaultSweepOptions(),
	}
}

// recorder collects the notifies of the current frame.
type recorder struct {
	door.NopHandler
	tags []string
}

func (r *recorder) HandleNotify(_ door.Context, _ *door.Door, n door.Notify) {
	r.tags = append(r.tags, n.Tag)
}

// Run creates a door from conf and plays the actions passed against it. The door always runs as a
// headless authority on a clock owned by the preview. Actions must be sorted by At.
func Run(conf door.Config, actions []Action, opts Options) Timeline {
	if opts.Step <= 0 {
		opts.Step = DefaultOptions().Step
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultOptions().MaxDuration
	}

	clock := schedule.NewManualClock(time.Unix(0, 0))
	sched := schedule.NewScheduler(clock)
	conf.Role = door.RoleAuthority
	conf.Headless = true
	conf.Scheduler = sched
	d := door.New(conf)

	rec := &recorder{}
	d.Handle(rec)

	var sweeper *door.Sweeper
	if opts.Obstacles != nil && conf.Motion.Mode == door.MotionDisabled {
		sweeper = &door.Sweeper{Door: d, Obstacles: opts.Obstacles, Options: opts.Sweep}
	}

	var (
		tl   Timeline
		now  float32
		next int
	)
	step := time.Duration(float64(opts.Step) * float64(time.Second))
	for now < opts.MaxDuration {
		for next < len(actions) && actions[next].At <= now {
			a := actions[next]
			tl.Outcomes = append(tl.Outcomes, Outcome{Action: a, Result: d.Interact(a.Actor, a.Request)})
			next++
		}

		now += opts.Step
		clock.Advance(step)
		sched.Poll()
		if sweeper != nil {
			sweeper.Tick(opts.Step)
		} else {
			d.Tick(opts.Step)
		}

		frame := Frame{Time: now, State: d.State(), Direction: d.Direction(), Alpha: d.Alpha(), Notifies: rec.tags}
		rec.tags = nil
		tl.Frames = append(tl.Frames, frame)
		if opts.Debugf != nil {
			opts.Debugf("%.3fs %s alpha=%.4f %v", now, door.StateDirectionString(frame.State, frame.Direction), frame.Alpha, frame.Notifies)
		}

		if next == len(actions) && d.State().Stationary() && sched.Len() == 0 {
			tl.Settled = true
			break
		}
	}
	return tl
}

// Duration returns how long the door was in motion during the timeline, in seconds.
func (tl Timeline) Duration() float32 {
	var moving float32
	prev := float32(0)
	for _, f := range tl.Frames {
		if f.State.InMotion() {
			moving += f.Time - prev
		}
		prev = f.Time
	}
	return moving
}

// FirstFrame returns the first frame in state s.
func (tl Timeline) FirstFrame(s door.State) (Frame, bool) {
	for _, f := range tl.Frames {
		if f.State == s {
			return f, true
		}
	}
	return Frame{}, false
}
