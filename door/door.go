package door

import (
	"io"
	"time"

	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/doors/assert"
	"github.com/oomph-ac/doors/schedule"
	"github.com/oomph-ac/doors/utils"
	"github.com/sirupsen/logrus"
)

// Role is the part a door copy plays in replication.
type Role uint8

const (
	// RoleAuthority doors resolve interactions and replicate the result. There is one per door.
	RoleAuthority Role = iota
	// RoleObserver doors only apply states received from the authority.
	RoleObserver
	// RolePredicting doors resolve interactions locally ahead of the authority and accept whatever the
	// authority sends back.
	RolePredicting
)

func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleObserver:
		return "observer"
	case RolePredicting:
		return "predicting"
	}
	return "invalid"
}

// PolicyKind names one of the policies of a door that may change at runtime.
type PolicyKind uint8

const (
	PolicyAccess PolicyKind = iota
	PolicyOpenDirection
	PolicyOpenMotion
)

func (p PolicyKind) String() string {
	switch p {
	case PolicyAccess:
		return "access"
	case PolicyOpenDirection:
		return "open_direction"
	case PolicyOpenMotion:
		return "open_motion"
	}
	return "invalid"
}

// Replicator sends the state of an authoritative door to everyone observing it.
type Replicator interface {
	ReplicateState(d *Door, code Packed)
	ReplicatePolicy(d *Door)
}

// Config holds the settings a Door is created with.
type Config struct {
	Name string
	Role Role
	// Headless doors have no presentation. Cosmetic handlers are skipped for them.
	Headless bool

	Position    mgl32.Vec3
	Yaw         float32
	ForwardAxis ForwardAxis

	State     State
	Direction Direction

	Access              Access
	AccessChange        ChangeType
	OpenDirection       OpenDirection
	OpenDirectionChange ChangeType
	OpenMotion          Motion
	OpenMotionChange    ChangeType

	Motion MotionSettings

	MotionCooldown     time.Duration
	StationaryCooldown time.Duration

	// CanInteractWhileInMotion allows interactions while the door is Opening or Closing.
	CanInteractWhileInMotion bool
	// TrustClientSide makes the door accept the side claimed by the client instead of comparing it to
	// the side computed from the actor's position. Untrusted doors reject requests without a position.
	TrustClientSide bool

	Policy   Policy
	Notifies *NotifyTable

	Log *logrus.Logger
	// Scheduler drives cooldown expiry. When nil the door creates its own and polls it from Tick.
	Scheduler *schedule.Scheduler
}

// Door is a single interactive door. It is not safe for concurrent use: all methods must be called from
// the goroutine that ticks it.
type Door struct {
	name     string
	role     Role
	headless bool
	log      *logrus.Logger

	position mgl32.Vec3
	forward  mgl32.Vec3

	state     State
	direction Direction
	lastSide  Side
	alpha     float32

	access        policyField[Access]
	openDirection policyField[OpenDirection]
	openMotion    policyField[Motion]

	interactWhileMoving bool
	trustClientSide     bool

	sim       MotionSimulator
	notifies  *NotifyTable
	policy    Policy
	cooldowns *CooldownTracker

	sched     *schedule.Scheduler
	ownsSched bool

	handlers   handlerList
	replicator Replicator
	replicated bool
}

// New creates a door from the config passed.
func New(conf Config) *Door {
	assert.IsTrue(conf.State <= StateClosing, "invalid initial door state %d", conf.State)
	assert.IsTrue(conf.Direction <= DirectionInward, "invalid initial door direction %d", conf.Direction)

	d := &Door{
		name:     conf.Name,
		role:     conf.Role,
		headless: conf.Headless,
		log:      conf.Log,

		position: conf.Position,
		forward:  AxisVector(conf.Yaw, conf.ForwardAxis),

		state:     conf.State,
		direction: conf.Direction,

		access:        policyField[Access]{value: conf.Access, change: conf.AccessChange},
		openDirection: policyField[OpenDirection]{value: conf.OpenDirection, change: conf.OpenDirectionChange},
		openMotion:    policyField[Motion]{value: conf.OpenMotion, change: conf.OpenMotionChange},

		interactWhileMoving: conf.CanInteractWhileInMotion,
		trustClientSide:     conf.TrustClientSide,

		sim:      MotionSimulator{Settings: conf.Motion},
		notifies: conf.Notifies,
		policy:   conf.Policy,
		sched:    conf.Scheduler,
	}
	if d.log == nil {
		d.log = logrus.New()
		d.log.SetOutput(io.Discard)
	}
	if d.policy == nil {
		d.policy = AllowAll{}
	}
	if d.sched == nil {
		d.sched = schedule.NewScheduler(schedule.SystemClock{})
		d.ownsSched = true
	}
	// Doors authored open start fully open.
	d.alpha = TargetAlpha(d.state, d.direction)
	if d.state.InMotion() {
		d.alpha = 0
	}

	d.cooldowns = NewCooldownTracker(d.sched, conf.MotionCooldown, conf.StationaryCooldown)
	d.cooldowns.Owner = conf.Name
	d.cooldowns.OnExpire = func(w CooldownWindow) {
		ctx := d.context()
		d.handlers.each(func(h Handler) { h.HandleCooldownExpired(ctx, d, w) })
	}
	d.cooldowns.OnAvailable = func() {
		ctx := d.context()
		d.handlers.each(func(h Handler) { h.HandleAvailable(ctx, d) })
	}
	return d
}

func (d *Door) Name() string {
	return d.name
}

func (d *Door) Role() Role {
	return d.role
}

func (d *Door) Headless() bool {
	return d.headless
}

func (d *Door) Position() mgl32.Vec3 {
	return d.position
}

func (d *Door) Forward() mgl32.Vec3 {
	return d.forward
}

func (d *Door) State() State {
	return d.state
}

func (d *Door) Direction() Direction {
	return d.direction
}

func (d *Door) LastSide() Side {
	return d.lastSide
}

func (d *Door) Alpha() float32 {
	return d.alpha
}

func (d *Door) Access() Access {
	return d.access.value
}

func (d *Door) OpenDirection() OpenDirection {
	return d.openDirection.value
}

func (d *Door) OpenMotion() Motion {
	return d.openMotion.value
}

func (d *Door) Cooldowns() *CooldownTracker {
	return d.cooldowns
}

func (d *Door) Scheduler() *schedule.Scheduler {
	return d.sched
}

func (d *Door) Log() *logrus.Logger {
	return d.log
}

// Packed returns the current state of the door encoded for the wire.
func (d *Door) Packed() Packed {
	return Pack(d.state, d.direction, d.lastSide)
}

// Snapshot copies the state the resolver needs out of the door.
func (d *Door) Snapshot() Snapshot {
	return Snapshot{
		Valid:         true,
		State:         d.state,
		Direction:     d.direction,
		Access:        d.access.value,
		OpenDirection: d.openDirection.value,
		OpenMotion:    d.openMotion.value,
	}
}

// Handle adds h to the handlers of the door. The function returned removes it again.
func (d *Door) Handle(h Handler) (remove func()) {
	return d.handlers.add(h)
}

// SetReplicator sets where an authoritative door sends its state changes.
func (d *Door) SetReplicator(r Replicator) {
	d.replicator = r
}

// SetHeadless changes whether cosmetic handlers are notified.
func (d *Door) SetHeadless(headless bool) {
	d.headless = headless
}

func (d *Door) context() Context {
	return Context{Headless: d.headless, Authority: d.role == RoleAuthority, Replicated: d.replicated}
}

// SetState sets the discrete state of the door. Setting the state and direction the door already has is
// a no-op that returns false and leaves the last side untouched. Authorities use it directly for
// scripted events, interactions go through Interact.
func (d *Door) SetState(state State, direction Direction, side Side) bool {
	if d.state == state && d.direction == direction {
		return false
	}

	oldState, oldDirection := d.state, d.direction
	d.state, d.direction, d.lastSide = state, direction, side
	d.onStateChanged(oldState, oldDirection)
	return true
}

func (d *Door) onStateChanged(oldState State, oldDirection Direction) {
	d.flushPending()

	switch {
	case d.state.InMotion():
		d.cooldowns.Arm(CooldownMotion)
	case d.state.Stationary() && oldState.InMotion():
		d.cooldowns.Arm(CooldownStationary)
	}

	// A stationary state always sits on its alpha boundary. Replicated or scripted jumps skip the
	// motion in between.
	if d.state.Stationary() {
		if target := TargetAlpha(d.state, d.direction); d.alpha != target {
			d.setAlpha(target, false)
		}
	}

	ctx := d.context()
	switch {
	case d.state.Stationary():
		d.handlers.each(func(h Handler) { h.HandleFinished(ctx, d, d.state) })
	case oldState.Stationary():
		d.handlers.each(func(h Handler) { h.HandleStarted(ctx, d, d.state) })
	case oldState != d.state:
		d.handlers.each(func(h Handler) { h.HandleInterrupted(ctx, d, oldState, d.state) })
	}

	if d.role == RoleAuthority && d.replicator != nil {
		d.replicator.ReplicateState(d, d.Packed())
	}

	d.log.WithFields(logrus.Fields{
		"door": d.name,
		"role": d.role,
	}).Debugf("state %s -> %s", StateDirectionString(oldState, oldDirection), StateDirectionString(d.state, d.direction))
	d.handlers.each(func(h Handler) { h.HandleStateChanged(ctx, d, oldState, d.state) })
}

// flushPending applies pending policy changes once the door is Closed.
func (d *Door) flushPending() {
	if d.access.flush(d.state) {
		d.policyChanged(PolicyAccess)
	}
	if d.openDirection.flush(d.state) {
		d.policyChanged(PolicyOpenDirection)
	}
	if d.openMotion.flush(d.state) {
		d.policyChanged(PolicyOpenMotion)
	}
}

func (d *Door) policyChanged(p PolicyKind) {
	if d.role == RoleAuthority && d.replicator != nil {
		d.replicator.ReplicatePolicy(d)
	}
	ctx := d.context()
	d.handlers.each(func(h Handler) { h.HandlePolicyChanged(ctx, d, p) })
}

// SetAlpha sets how far the door is open. The value is clamped to [-1, 1] and snapped onto the boundary
// the door is heading for when it is within AlphaTolerance of it. Reaching the boundary finalizes an
// Opening door to Open and a Closing door to Closed.
func (d *Door) SetAlpha(alpha float32) bool {
	return d.setAlpha(alpha, true)
}

func (d *Door) setAlpha(alpha float32, finalize bool) bool {
	alpha = utils.Clamp32(alpha, -1, 1)
	if d.state.ClosedOrClosing() && utils.IsNearlyZero(alpha, AlphaTolerance) {
		alpha = 0
	}
	if d.state.OpenOrOpening() && utils.IsNearlyEqual(math32.Abs(alpha), 1, AlphaTolerance) {
		alpha = utils.Sign32(alpha)
	}
	if alpha == d.alpha {
		return false
	}

	old := d.alpha
	d.alpha = alpha

	ctx := d.context()
	if n, ok := d.notifies.Scan(d.state, d.direction, old, alpha); ok {
		d.handlers.each(func(h Handler) { h.HandleNotify(ctx, d, n) })
	}
	d.handlers.each(func(h Handler) { h.HandleAlphaChanged(ctx, d, old, alpha) })

	if !finalize {
		return true
	}
	if d.state == StateOpening && utils.IsNearlyEqual(math32.Abs(alpha), 1, AlphaTolerance) {
		d.SetState(StateOpen, d.direction, d.lastSide)
	} else if d.state == StateClosing && utils.IsNearlyZero(alpha, AlphaTolerance) {
		d.SetState(StateClosed, d.direction, d.lastSide)
	}
	return true
}

// Tick advances the door by dt seconds.
func (d *Door) Tick(dt float32) {
	if d.ownsSched {
		d.sched.Poll()
	}
	if d.state.InMotion() && d.sim.Settings.Mode != MotionDisabled {
		d.SetAlpha(d.sim.Step(d.state, d.direction, d.alpha, dt))
	}
}

// MotionSettings returns the settings of the door's motion simulator.
func (d *Door) MotionSettings() MotionSettings {
	return d.sim.Settings
}

// SetMotionSettings replaces the settings of the door's motion simulator.
func (d *Door) SetMotionSettings(s MotionSettings) {
	d.sim.Settings = s
}

// Request is an interaction request made by an actor.
type Request struct {
	// State is the state the actor believes the door is in.
	State State
	// Side is the side the actor claims to be on.
	Side Side
	// ActorPosition is where the actor stands. It is only used when HasPosition is set, and doors that
	// do not trust the client side require it.
	ActorPosition mgl32.Vec3
	HasPosition   bool
}

// ShouldRespond decides whether the door would accept req from actor, without changing anything.
func (d *Door) ShouldRespond(actor Actor, req Request) Result {
	reject := func(reason FailReason) Result {
		return Result{State: d.state, Direction: d.direction, Reason: reason}
	}
	if !d.policy.CanDoorChangeToAnyState(actor) {
		return reject(FailGeneralVeto)
	}
	if d.cooldowns.OnCooldown() {
		return reject(FailOnCooldown)
	}
	if !d.interactWhileMoving && d.state.InMotion() {
		return reject(FailInMotion)
	}

	side, ok := d.sideFor(req)
	if !ok {
		return reject(FailClientSide)
	}

	res := Progress(d.Snapshot(), req.State, side)
	if !res.Accepted {
		return res
	}
	if !d.policy.CanChangeDoorState(actor, res.Transition(d.state, side)) {
		return reject(FailStateVeto)
	}
	return res
}

// sideFor returns the side the request is resolved from. Untrusted clients must send their position and
// the side computed from it must match the claimed one.
func (d *Door) sideFor(req Request) (Side, bool) {
	if d.trustClientSide {
		return req.Side, true
	}
	if !req.HasPosition {
		return req.Side, false
	}
	side := SideOf(req.ActorPosition, d.position, d.forward)
	return side, side == req.Side
}

// Interact resolves req and, when accepted, applies the new state. Observers never resolve interactions
// and always reject with FailNotValid.
func (d *Door) Interact(actor Actor, req Request) Result {
	if d.role == RoleObserver {
		return Result{State: d.state, Direction: d.direction, Reason: FailNotValid}
	}

	res := d.ShouldRespond(actor, req)
	if !res.Accepted {
		data := orderedmap.NewOrderedMap[string, any]()
		data.Set("door", d.name)
		data.Set("state", d.state)
		data.Set("requested", req.State)
		data.Set("side", req.Side)
		data.Set("reason", res.Reason)
		d.log.Debugf("interaction rejected %s", utils.OrderedMapToString(data))
		return res
	}

	d.SetState(res.State, res.Direction, d.sideFor(req))
	return res
}

// StartInteractCooldown arms the motion cooldown window, for callers that want to throttle an actor
// after a successful interaction.
func (d *Door) StartInteractCooldown() {
	d.cooldowns.Arm(CooldownMotion)
}

// ApplyReplicated applies a state received from the authority. Corrupt codes are logged, reported and
// ignored. It returns true if the state of the door changed.
func (d *Door) ApplyReplicated(code Packed) bool {
	state, direction, side, ok := Unpack(code)
	if !ok {
		d.reportCorrupt("packed", uint8(code))
		return false
	}
	return d.applyReplicated(state, direction, side)
}

// ApplyLegacy applies a state received in the legacy wire format.
func (d *Door) ApplyLegacy(code LegacyPacked) bool {
	state, side, ok := UnpackLegacy(code)
	if !ok {
		d.reportCorrupt("legacy", uint8(code))
		return false
	}
	return d.applyReplicated(state, LegacyDirection(side), side)
}

func (d *Door) applyReplicated(state State, direction Direction, side Side) bool {
	d.replicated = true
	defer func() { d.replicated = false }()
	changed := d.SetState(state, direction, side)
	// The authority's side is copied even when nothing else changed, so both agree on the packed code.
	d.lastSide = side
	return changed
}

// ApplyPolicy overwrites the policies of the door with those received from the authority, regardless of
// change types and pending changes.
func (d *Door) ApplyPolicy(access Access, openDirection OpenDirection, openMotion Motion) {
	d.replicated = true
	defer func() { d.replicated = false }()

	if d.access.value != access {
		d.access.value = access
		d.access.pending.Clear()
		d.policyChanged(PolicyAccess)
	}
	if d.openDirection.value != openDirection {
		d.openDirection.value = openDirection
		d.openDirection.pending.Clear()
		d.policyChanged(PolicyOpenDirection)
	}
	if d.openMotion.value != openMotion {
		d.openMotion.value = openMotion
		d.openMotion.pending.Clear()
		d.policyChanged(PolicyOpenMotion)
	}
}

func (d *Door) reportCorrupt(format string, code uint8) {
	data := orderedmap.NewOrderedMap[string, any]()
	data.Set("door", d.name)
	data.Set("format", format)
	data.Set("code", code)
	d.log.Warnf("corrupt replicated door state %s", utils.OrderedMapToString(data))

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("door", d.name)
		scope.SetTag("format", format)
	})
	hub.CaptureMessage("corrupt replicated door state " + utils.OrderedMapToString(data))
}

// SetAccess requests a change of the door's access policy.
func (d *Door) SetAccess(a Access) ChangeResult {
	res := d.access.request(a, d.state)
	if res == ChangeApplied {
		d.policyChanged(PolicyAccess)
	}
	return res
}

// SetOpenDirection requests a change of the directions the door may open in.
func (d *Door) SetOpenDirection(o OpenDirection) ChangeResult {
	res := d.openDirection.request(o, d.state)
	if res == ChangeApplied {
		d.policyChanged(PolicyOpenDirection)
	}
	return res
}

// SetOpenMotion requests a change of the motion actors prefer when opening the door.
func (d *Door) SetOpenMotion(m Motion) ChangeResult {
	res := d.openMotion.request(m, d.state)
	if res == ChangeApplied {
		d.policyChanged(PolicyOpenMotion)
	}
	return res
}

// CanChange returns whether a change to policy p could be applied right now.
func (d *Door) CanChange(p PolicyKind) bool {
	return canChange(d.ChangeType(p), d.state)
}

// ChangeType returns the change type governing policy p.
func (d *Door) ChangeType(p PolicyKind) ChangeType {
	switch p {
	case PolicyAccess:
		return d.access.change
	case PolicyOpenDirection:
		return d.openDirection.change
	case PolicyOpenMotion:
		return d.openMotion.change
	}
	d.log.Errorf("unknown door policy kind %d", p)
	return ChangeDisabled
}

// SetChangeType changes the change type governing policy p.
func (d *Door) SetChangeType(p PolicyKind, ct ChangeType) {
	switch p {
	case PolicyAccess:
		d.access.change = ct
	case PolicyOpenDirection:
		d.openDirection.change = ct
	case PolicyOpenMotion:
		d.openMotion.change = ct
	default:
		d.log.Errorf("unknown door policy kind %d", p)
	}
}

// PendingAccess returns the access change waiting for the door to close, if any.
func (d *Door) PendingAccess() (Access, bool) {
	return d.access.pending.Get()
}

// PendingOpenDirection returns the open direction change waiting for the door to close, if any.
func (d *Door) PendingOpenDirection() (OpenDirection, bool) {
	return d.openDirection.pending.Get()
}

// PendingOpenMotion returns the open motion change waiting for the door to close, if any.
func (d *Door) PendingOpenMotion() (Motion, bool) {
	return d.openMotion.pending.Get()
}
