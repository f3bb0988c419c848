package door

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/doors/schedule"
)

type recordingHandler struct {
	NopHandler

	stateChanges  []State
	policyChanges []PolicyKind
	notifies      []string
	started       int
	finished      int
	interrupted   int
	expired       []CooldownWindow
	available     int
	replicated    int
}

func (r *recordingHandler) HandleStateChanged(ctx Context, _ *Door, _, new State) {
	r.stateChanges = append(r.stateChanges, new)
	if ctx.Replicated {
		r.replicated++
	}
}

func (r *recordingHandler) HandlePolicyChanged(_ Context, _ *Door, p PolicyKind) {
	r.policyChanges = append(r.policyChanges, p)
}

func (r *recordingHandler) HandleNotify(_ Context, _ *Door, n Notify) {
	r.notifies = append(r.notifies, n.Tag)
}

func (r *recordingHandler) HandleStarted(Context, *Door, State)            { r.started++ }
func (r *recordingHandler) HandleFinished(Context, *Door, State)           { r.finished++ }
func (r *recordingHandler) HandleInterrupted(Context, *Door, State, State) { r.interrupted++ }
func (r *recordingHandler) HandleAvailable(Context, *Door)                 { r.available++ }

func (r *recordingHandler) HandleCooldownExpired(_ Context, _ *Door, w CooldownWindow) {
	r.expired = append(r.expired, w)
}

type recordingReplicator struct {
	codes    []Packed
	policies int
}

func (r *recordingReplicator) ReplicateState(_ *Door, code Packed) { r.codes = append(r.codes, code) }
func (r *recordingReplicator) ReplicatePolicy(*Door)               { r.policies++ }

func testConfig() Config {
	motion := DefaultMotionSettings()
	motion.Mode = MotionInterpConstant
	return Config{
		Name:          "test",
		Role:          RoleAuthority,
		Headless:      true,
		State:         StateClosed,
		Direction:     DirectionOutward,
		Access:        AccessBidirectional,
		OpenDirection: OpenBidirectional,
		OpenMotion:    MotionPush,
		Motion:        motion,
		Scheduler:     schedule.NewScheduler(schedule.NewManualClock(time.Unix(0, 0))),

		TrustClientSide: true,
	}
}

func tickUntilStationary(t *testing.T, d *Door, dt float32) {
	t.Helper()
	for i := 0; i < 1000 && d.State().InMotion(); i++ {
		d.Tick(dt)
	}
	if d.State().InMotion() {
		t.Fatalf("door never came to rest, alpha %v", d.Alpha())
	}
}

func TestInteractOpensAndFinalizes(t *testing.T) {
	d := New(testConfig())
	rec := &recordingHandler{}
	d.Handle(rec)

	res := d.Interact(nil, Request{State: StateClosed, Side: SideFront})
	if !res.Accepted || d.State() != StateOpening || d.Direction() != DirectionInward {
		t.Fatalf("expected door to start opening inward, got %+v (state %v)", res, d.State())
	}

	d.Tick(0.25)
	if d.Alpha() != -0.25 {
		t.Fatalf("expected alpha -0.25, got %v", d.Alpha())
	}
	tickUntilStationary(t, d, 0.25)
	if d.State() != StateOpen || d.Alpha() != -1 {
		t.Fatalf("expected door open at -1, got %v at %v", d.State(), d.Alpha())
	}
	if rec.started != 1 || rec.finished != 1 {
		t.Fatalf("expected one start and one finish, got %d and %d", rec.started, rec.finished)
	}
}

func TestAlphaBoundaryFinalization(t *testing.T) {
	d := New(testConfig())
	d.SetState(StateOpening, DirectionOutward, SideBack)
	d.SetAlpha(1 - AlphaTolerance/2)
	if d.State() != StateOpen || d.Alpha() != 1 {
		t.Fatalf("expected open at 1, got %v at %v", d.State(), d.Alpha())
	}

	d.SetState(StateClosing, DirectionOutward, SideBack)
	d.SetAlpha(0.5)
	if d.State() != StateClosing {
		t.Fatalf("door should still be closing, got %v", d.State())
	}
	d.SetAlpha(AlphaTolerance / 2)
	if d.State() != StateClosed || d.Alpha() != 0 {
		t.Fatalf("expected closed at 0, got %v at %v", d.State(), d.Alpha())
	}
}

func TestSetAlphaClamps(t *testing.T) {
	d := New(testConfig())
	d.SetState(StateOpening, DirectionOutward, SideFront)
	d.SetAlpha(0.5)
	d.SetAlpha(3)
	if d.Alpha() != 1 || d.State() != StateOpen {
		t.Fatalf("expected alpha clamped to 1 and door open, got %v %v", d.Alpha(), d.State())
	}
}

func TestObserverApplyIdempotent(t *testing.T) {
	conf := testConfig()
	conf.Role = RoleObserver
	d := New(conf)
	rec := &recordingHandler{}
	d.Handle(rec)

	code := Pack(StateOpening, DirectionInward, SideFront)
	if !d.ApplyReplicated(code) {
		t.Fatalf("first apply should change the door")
	}
	if d.ApplyReplicated(code) {
		t.Fatalf("second apply should be a no-op")
	}
	if len(rec.stateChanges) != 1 || rec.replicated != 1 {
		t.Fatalf("expected exactly one replicated change, got %v", rec.stateChanges)
	}

	if res := d.Interact(nil, Request{State: StateOpen, Side: SideFront}); res.Accepted || res.Reason != FailNotValid {
		t.Fatalf("observers must not resolve interactions, got %+v", res)
	}
}

func TestApplyReplicatedStationarySnapsAlpha(t *testing.T) {
	conf := testConfig()
	conf.Role = RoleObserver
	d := New(conf)
	d.ApplyReplicated(Pack(StateOpen, DirectionInward, SideBack))
	if d.Alpha() != -1 {
		t.Fatalf("expected alpha -1 after replicated open, got %v", d.Alpha())
	}
}

func TestApplyReplicatedCorrupt(t *testing.T) {
	conf := testConfig()
	conf.Role = RoleObserver
	d := New(conf)
	d.ApplyReplicated(Pack(StateOpen, DirectionOutward, SideFront))
	if d.ApplyReplicated(Packed(0x40)) {
		t.Fatalf("corrupt code should not change the door")
	}
	if d.State() != StateOpen {
		t.Fatalf("corrupt code changed the door to %v", d.State())
	}
	if d.ApplyLegacy(LegacyPacked(12)) {
		t.Fatalf("corrupt legacy code should not change the door")
	}
	if !d.ApplyLegacy(LegacyClosingBack) || d.State() != StateClosing || d.Direction() != DirectionInward {
		t.Fatalf("legacy closing back should apply, got %v %v", d.State(), d.Direction())
	}
}

func TestAuthorityReplicates(t *testing.T) {
	d := New(testConfig())
	rep := &recordingReplicator{}
	d.SetReplicator(rep)

	d.Interact(nil, Request{State: StateClosed, Side: SideBack})
	if len(rep.codes) != 1 || rep.codes[0] != Pack(StateOpening, DirectionOutward, SideBack) {
		t.Fatalf("unexpected replicated codes %v", rep.codes)
	}
	tickUntilStationary(t, d, 0.1)
	if len(rep.codes) != 2 || rep.codes[1] != Pack(StateOpen, DirectionOutward, SideBack) {
		t.Fatalf("unexpected replicated codes %v", rep.codes)
	}

	predicting := testConfig()
	predicting.Role = RolePredicting
	p := New(predicting)
	p.SetReplicator(rep)
	p.Interact(nil, Request{State: StateClosed, Side: SideBack})
	if len(rep.codes) != 2 {
		t.Fatalf("predicting doors must not replicate")
	}
}

func TestWaitPendingChange(t *testing.T) {
	conf := testConfig()
	conf.State = StateOpen
	conf.AccessChange = ChangeWait
	d := New(conf)
	rec := &recordingHandler{}
	d.Handle(rec)

	if res := d.SetAccess(AccessFront); res != ChangeQueued {
		t.Fatalf("expected change to be queued, got %v", res)
	}
	if d.Access() != AccessBidirectional {
		t.Fatalf("access applied while open")
	}

	d.Interact(nil, Request{State: StateOpen, Side: SideFront})
	if d.State() != StateClosing || d.Access() != AccessBidirectional {
		t.Fatalf("access applied before the door closed")
	}
	tickUntilStationary(t, d, 0.2)
	if d.State() != StateClosed || d.Access() != AccessFront {
		t.Fatalf("expected access front once closed, got %v in %v", d.Access(), d.State())
	}
	if len(rec.policyChanges) != 1 || rec.policyChanges[0] != PolicyAccess {
		t.Fatalf("expected exactly one access change, got %v", rec.policyChanges)
	}

	d.SetState(StateOpening, DirectionOutward, SideFront)
	d.SetState(StateClosed, DirectionOutward, SideFront)
	if len(rec.policyChanges) != 1 {
		t.Fatalf("pending change applied twice")
	}
	if _, ok := d.PendingAccess(); ok {
		t.Fatalf("pending change should be cleared")
	}
}

func TestChangeTypes(t *testing.T) {
	conf := testConfig()
	conf.OpenDirectionChange = ChangeDisabled
	conf.OpenMotionChange = ChangeClosed
	conf.AccessChange = ChangeImmediate
	d := New(conf)

	if res := d.SetOpenDirection(OpenLocked); res != ChangeRejected {
		t.Fatalf("disabled change applied: %v", res)
	}
	if res := d.SetOpenMotion(MotionPull); res != ChangeApplied || d.OpenMotion() != MotionPull {
		t.Fatalf("closed change not applied to a closed door: %v", res)
	}
	if res := d.SetOpenMotion(MotionPull); res != ChangeUnchanged {
		t.Fatalf("expected unchanged, got %v", res)
	}

	d.SetState(StateOpening, DirectionOutward, SideFront)
	if res := d.SetOpenMotion(MotionPush); res != ChangeRejected {
		t.Fatalf("closed change applied to a moving door: %v", res)
	}
	if res := d.SetAccess(AccessBehind); res != ChangeApplied || d.Access() != AccessBehind {
		t.Fatalf("immediate change not applied: %v", res)
	}
	if d.CanChange(PolicyOpenMotion) || !d.CanChange(PolicyAccess) {
		t.Fatalf("unexpected CanChange results")
	}
}

func TestShouldRespondOrder(t *testing.T) {
	conf := testConfig()
	conf.MotionCooldown = time.Second
	vetoed := true
	conf.Policy = PolicyFuncs{AnyState: func(Actor) bool { return !vetoed }}
	d := New(conf)
	clock := conf.Scheduler.Clock().(*schedule.ManualClock)

	d.StartInteractCooldown()
	if res := d.ShouldRespond(nil, Request{State: StateClosed}); res.Reason != FailGeneralVeto {
		t.Fatalf("veto should be checked before cooldowns, got %v", res.Reason)
	}
	vetoed = false
	if res := d.ShouldRespond(nil, Request{State: StateClosed}); res.Reason != FailOnCooldown {
		t.Fatalf("expected cooldown, got %v", res.Reason)
	}

	clock.Advance(time.Second)
	conf.Scheduler.Poll()
	d.SetState(StateOpening, DirectionOutward, SideFront)
	clock.Advance(time.Second)
	conf.Scheduler.Poll()
	if res := d.ShouldRespond(nil, Request{State: StateOpening}); res.Reason != FailInMotion {
		t.Fatalf("expected in motion, got %v", res.Reason)
	}
}

func TestShouldRespondClientSide(t *testing.T) {
	conf := testConfig()
	conf.Position = mgl32.Vec3{0, 0, 0}
	conf.TrustClientSide = false
	d := New(conf)

	// The actor stands behind the door but claims to be in front of it.
	req := Request{State: StateClosed, Side: SideFront, ActorPosition: mgl32.Vec3{0, 0, -2}, HasPosition: true}
	if res := d.ShouldRespond(nil, req); res.Reason != FailClientSide {
		t.Fatalf("expected client side mismatch, got %+v", res)
	}

	honest := Request{State: StateClosed, Side: SideBack, ActorPosition: mgl32.Vec3{0, 0, -2}, HasPosition: true}
	if res := d.ShouldRespond(nil, honest); !res.Accepted {
		t.Fatalf("matching side should be accepted, got %+v", res)
	}

	// Leaving the position out must not skip the check, even for a side access allows.
	conf.Access = AccessFront
	d = New(conf)
	if res := d.ShouldRespond(nil, Request{State: StateClosed, Side: SideFront}); res.Accepted || res.Reason != FailClientSide {
		t.Fatalf("expected a request without position to be rejected, got %+v", res)
	}
	conf.Access = AccessBidirectional

	conf.TrustClientSide = true
	d = New(conf)
	if res := d.ShouldRespond(nil, req); !res.Accepted || res.Direction != DirectionInward {
		t.Fatalf("trusted side should resolve from the front, got %+v", res)
	}
}

func TestStateVeto(t *testing.T) {
	conf := testConfig()
	conf.Policy = PolicyFuncs{State: func(_ Actor, tr Transition) bool {
		return tr.Direction != DirectionInward
	}}
	d := New(conf)
	if res := d.Interact(nil, Request{State: StateClosed, Side: SideFront}); res.Accepted || res.Reason != FailStateVeto {
		t.Fatalf("expected state veto, got %+v", res)
	}
	if res := d.Interact(nil, Request{State: StateClosed, Side: SideBack}); !res.Accepted {
		t.Fatalf("outward opening should be allowed, got %+v", res)
	}
}

func TestCooldownsThroughDoor(t *testing.T) {
	conf := testConfig()
	conf.MotionCooldown = 200 * time.Millisecond
	conf.StationaryCooldown = 300 * time.Millisecond
	d := New(conf)
	clock := conf.Scheduler.Clock().(*schedule.ManualClock)
	rec := &recordingHandler{}
	d.Handle(rec)

	d.SetState(StateOpening, DirectionOutward, SideFront)
	d.SetState(StateOpen, DirectionOutward, SideFront)
	if !d.Cooldowns().OnCooldown() {
		t.Fatalf("door should be on cooldown")
	}

	clock.Advance(200 * time.Millisecond)
	conf.Scheduler.Poll()
	if len(rec.expired) != 1 || rec.expired[0] != CooldownMotion || rec.available != 0 {
		t.Fatalf("unexpected expiry after motion window: %v, available %d", rec.expired, rec.available)
	}
	clock.Advance(100 * time.Millisecond)
	conf.Scheduler.Poll()
	if len(rec.expired) != 2 || rec.available != 1 {
		t.Fatalf("unexpected expiry after stationary window: %v, available %d", rec.expired, rec.available)
	}
	if d.Cooldowns().OnCooldown() {
		t.Fatalf("door should be available")
	}
}

func TestDoorsShareScheduler(t *testing.T) {
	a := testConfig()
	a.Name = "a"
	a.MotionCooldown = 200 * time.Millisecond
	b := a
	b.Name = "b"
	da, db := New(a), New(b)
	ra, rb := &recordingHandler{}, &recordingHandler{}
	da.Handle(ra)
	db.Handle(rb)

	da.SetState(StateOpening, DirectionOutward, SideFront)
	db.SetState(StateOpening, DirectionOutward, SideFront)
	if a.Scheduler.Len() != 2 {
		t.Fatalf("expected one cooldown task per door, got %d", a.Scheduler.Len())
	}
	a.Scheduler.Clock().(*schedule.ManualClock).Advance(200 * time.Millisecond)
	a.Scheduler.Poll()
	if len(ra.expired) != 1 || len(rb.expired) != 1 {
		t.Fatalf("both cooldowns should have expired: %v, %v", ra.expired, rb.expired)
	}
}

func TestInterrupted(t *testing.T) {
	conf := testConfig()
	conf.CanInteractWhileInMotion = true
	d := New(conf)
	rec := &recordingHandler{}
	d.Handle(rec)

	d.Interact(nil, Request{State: StateClosed, Side: SideBack})
	d.Tick(0.5)
	res := d.Interact(nil, Request{State: StateOpening, Side: SideBack})
	if !res.Accepted || d.State() != StateClosing {
		t.Fatalf("expected interrupt to closing, got %+v", res)
	}
	if rec.interrupted != 1 {
		t.Fatalf("expected one interruption, got %d", rec.interrupted)
	}
	tickUntilStationary(t, d, 0.1)
	if d.State() != StateClosed || d.Alpha() != 0 {
		t.Fatalf("expected closed at 0, got %v at %v", d.State(), d.Alpha())
	}
}

func TestNotifiesThroughDoor(t *testing.T) {
	conf := testConfig()
	conf.Notifies = NewNotifyTable()
	conf.Notifies.Add(StateOpening, DirectionOutward, Notify{Threshold: 0.5, Tag: "half"})
	conf.Notifies.Add(StateClosing, DirectionOutward, Notify{Threshold: 0.9, Tag: "latch"})
	d := New(conf)
	rec := &recordingHandler{}
	d.Handle(rec)

	d.Interact(nil, Request{State: StateClosed, Side: SideBack})
	tickUntilStationary(t, d, 0.1)
	d.SetState(StateClosing, DirectionOutward, SideBack)
	tickUntilStationary(t, d, 0.1)

	if len(rec.notifies) != 2 || rec.notifies[0] != "half" || rec.notifies[1] != "latch" {
		t.Fatalf("unexpected notifies %v", rec.notifies)
	}
}

func TestCosmeticSuppressedWhenHeadless(t *testing.T) {
	d := New(testConfig())
	plain, cosmetic := &recordingHandler{}, &recordingHandler{}
	d.Handle(plain)
	remove := d.Handle(Cosmetic(cosmetic))

	d.SetState(StateOpening, DirectionOutward, SideFront)
	if len(plain.stateChanges) != 1 || len(cosmetic.stateChanges) != 0 {
		t.Fatalf("cosmetic handler notified on a headless door")
	}

	d.SetHeadless(false)
	d.SetState(StateClosing, DirectionOutward, SideFront)
	if len(cosmetic.stateChanges) != 1 {
		t.Fatalf("cosmetic handler not notified once presented")
	}

	remove()
	d.SetState(StateClosed, DirectionOutward, SideFront)
	if len(cosmetic.stateChanges) != 1 || len(plain.stateChanges) != 3 {
		t.Fatalf("removed handler still notified")
	}
}

// funcHandler forwards state changes to a callback. Its func field makes it incomparable.
type funcHandler struct {
	NopHandler
	f func(State)
}

func (h funcHandler) HandleStateChanged(_ Context, _ *Door, _, new State) {
	h.f(new)
}

func TestRemoveIncomparableHandler(t *testing.T) {
	d := New(testConfig())
	var first, second []State
	removeFirst := d.Handle(funcHandler{f: func(s State) { first = append(first, s) }})
	d.Handle(funcHandler{f: func(s State) { second = append(second, s) }})

	d.SetState(StateOpening, DirectionOutward, SideFront)
	removeFirst()
	removeFirst()
	d.SetState(StateClosing, DirectionOutward, SideFront)

	if len(first) != 1 || first[0] != StateOpening {
		t.Fatalf("removed handler still notified: %v", first)
	}
	if len(second) != 2 {
		t.Fatalf("remaining handler missed a change: %v", second)
	}
}

func TestSetStateKeepsSideWhenUnchanged(t *testing.T) {
	d := New(testConfig())
	d.SetState(StateOpen, DirectionInward, SideFront)
	before := d.Packed()
	if d.SetState(StateOpen, DirectionInward, SideBack) {
		t.Fatalf("setting the same state should be a no-op")
	}
	if d.LastSide() != SideFront || d.Packed() != before {
		t.Fatalf("no-op changed the packed state: %s -> %s", before, d.Packed())
	}

	conf := testConfig()
	conf.Role = RoleObserver
	o := New(conf)
	o.ApplyReplicated(Pack(StateOpen, DirectionInward, SideFront))
	if o.ApplyReplicated(Pack(StateOpen, DirectionInward, SideBack)) {
		t.Fatalf("side alone should not count as a state change")
	}
	if o.LastSide() != SideBack {
		t.Fatalf("observer should follow the replicated side")
	}
}
