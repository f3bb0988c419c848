package door

import (
	"time"

	"github.com/oomph-ac/doors/schedule"
)

// CooldownWindow names one of the two cooldown windows of a door.
type CooldownWindow uint8

const (
	// CooldownMotion is armed when the door starts moving and when an interaction succeeds.
	CooldownMotion CooldownWindow = iota
	// CooldownStationary is armed when the door comes to rest.
	CooldownStationary
)

func (w CooldownWindow) String() string {
	if w == CooldownStationary {
		return "stationary"
	}
	return "motion"
}

func (w CooldownWindow) key() string {
	return "door.cooldown." + w.String()
}

const (
	DefaultMotionCooldown     = 200 * time.Millisecond
	DefaultStationaryCooldown = 300 * time.Millisecond
)

type cooldownWindow struct {
	last     time.Time
	duration time.Duration
	armed    bool
}

// CooldownTracker tracks the motion and stationary windows of a door. Expiry is driven by the
// scheduler it was created with.
type CooldownTracker struct {
	sched   *schedule.Scheduler
	windows [2]cooldownWindow

	// Owner prefixes the scheduler keys, so trackers of different doors can share a scheduler.
	Owner string

	// OnExpire is called when a window expires, before OnAvailable.
	OnExpire func(w CooldownWindow)
	// OnAvailable is called when a window expires and the other window is not armed.
	OnAvailable func()
}

func NewCooldownTracker(sched *schedule.Scheduler, motion, stationary time.Duration) *CooldownTracker {
	c := &CooldownTracker{sched: sched}
	c.windows[CooldownMotion].duration = motion
	c.windows[CooldownStationary].duration = stationary
	return c
}

// SetDuration changes the length of a window. It only affects windows armed afterwards.
func (c *CooldownTracker) SetDuration(w CooldownWindow, d time.Duration) {
	c.windows[w].duration = d
}

func (c *CooldownTracker) Duration(w CooldownWindow) time.Duration {
	return c.windows[w].duration
}

// Arm starts window w from now, replacing any expiry already pending for it. Windows with a zero
// duration are never armed.
func (c *CooldownTracker) Arm(w CooldownWindow) {
	win := &c.windows[w]
	if win.duration <= 0 {
		return
	}
	win.last = c.sched.Clock().Now()
	win.armed = true
	c.sched.Schedule(c.key(w), win.duration, func() {
		c.expire(w)
	})
}

// Clear disarms window w without firing any notification.
func (c *CooldownTracker) Clear(w CooldownWindow) {
	c.windows[w].armed = false
	c.sched.Cancel(c.key(w))
}

func (c *CooldownTracker) key(w CooldownWindow) string {
	if c.Owner == "" {
		return w.key()
	}
	return c.Owner + "/" + w.key()
}

func (c *CooldownTracker) expire(w CooldownWindow) {
	c.windows[w].armed = false
	if c.OnExpire != nil {
		c.OnExpire(w)
	}
	if !c.windows[1-w].armed && c.OnAvailable != nil {
		c.OnAvailable()
	}
}

// Active returns whether window w is still running.
func (c *CooldownTracker) Active(w CooldownWindow) bool {
	win := c.windows[w]
	return win.armed && c.sched.Clock().Now().Sub(win.last) < win.duration
}

// OnCooldown returns whether either window is running.
func (c *CooldownTracker) OnCooldown() bool {
	return c.Active(CooldownMotion) || c.Active(CooldownStationary)
}

// Remaining returns how long until window w expires, or zero if it is not running.
func (c *CooldownTracker) Remaining(w CooldownWindow) time.Duration {
	if !c.Active(w) {
		return 0
	}
	win := c.windows[w]
	return win.duration - c.sched.Clock().Now().Sub(win.last)
}
