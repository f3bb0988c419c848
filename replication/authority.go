package replication

import (
	"io"
	"slices"
	"sync"
	"time"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/event"
	"github.com/sirupsen/logrus"
)

// inboundQueueSize is how many decoded packets may wait for the tick loop before read loops block.
const inboundQueueSize = 256

// Authority owns the authoritative copy of a set of doors. It resolves interactions sent by peers and
// replicates every change to all of them. All methods except Join and Peers must be called from the
// tick loop.
type Authority struct {
	reg *Registry
	log *logrus.Logger

	joinMu  sync.Mutex
	joining []*Peer

	peersMu sync.Mutex
	peers   []*Peer

	inbound chan inbound
}

// NewAuthority creates an authority replicating the doors of reg. Every door in reg is made to replicate
// through it, so doors added later must be passed to Track.
func NewAuthority(reg *Registry, log *logrus.Logger) *Authority {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	a := &Authority{reg: reg, log: log, inbound: make(chan inbound, inboundQueueSize)}
	reg.Each(func(_ uint64, d *door.Door) {
		d.SetReplicator(a)
	})
	return a
}

// Track registers d and makes it replicate through the authority.
func (a *Authority) Track(d *door.Door) (uint64, error) {
	id, err := a.reg.Add(d)
	if err != nil {
		return 0, err
	}
	d.SetReplicator(a)
	a.broadcastDoor(id, d)
	return id, nil
}

func (a *Authority) Registry() *Registry {
	return a.reg
}

// Join adds a peer on conn. Join may be called from any goroutine: the peer is admitted by the next
// Process, which queues the full state of every door for it and starts reading its packets.
func (a *Authority) Join(name string, conn PacketConn, legacy bool) *Peer {
	p := newPeer(name, conn, legacy, a.log)
	a.joinMu.Lock()
	a.joining = append(a.joining, p)
	a.joinMu.Unlock()
	return p
}

// admit moves the peers that joined since the last call into the session.
func (a *Authority) admit() {
	a.joinMu.Lock()
	joining := a.joining
	a.joining = nil
	a.joinMu.Unlock()

	for _, p := range joining {
		a.reg.Each(func(id uint64, d *door.Door) {
			p.Queue(policyEvent(id, d))
			p.Queue(stateEvent(id, d, p.legacy))
		})
		a.peersMu.Lock()
		a.peers = append(a.peers, p)
		a.peersMu.Unlock()
		go p.readLoop(a.inbound)

		a.log.Infof("%s joined (legacy=%v)", p.name, p.legacy)
	}
}

// Peers returns the peers currently connected.
func (a *Authority) Peers() []*Peer {
	a.peersMu.Lock()
	defer a.peersMu.Unlock()
	return slices.Clone(a.peers)
}

// Process admits new peers and handles every packet received since the last call. It never blocks.
func (a *Authority) Process() {
	a.admit()
	for {
		select {
		case in := <-a.inbound:
			a.handle(in)
		default:
			a.dropClosed()
			return
		}
	}
}

func (a *Authority) handle(in inbound) {
	if in.err != nil {
		a.log.Infof("%s left: %v", in.peer.name, in.err)
		a.remove(in.peer)
		return
	}
	for _, ev := range in.events {
		switch ev := ev.(type) {
		case event.InteractEvent:
			a.handleInteract(in.peer, ev)
		default:
			a.log.Warnf("unexpected %T from %s", ev, in.peer.name)
		}
	}
}

func (a *Authority) handleInteract(p *Peer, ev event.InteractEvent) {
	d, ok := a.reg.Get(ev.DoorID)
	if !ok {
		a.log.Warnf("%s interacted with unknown door %d", p.name, ev.DoorID)
		p.Queue(event.RejectEvent{NopEvent: stamp(), DoorID: ev.DoorID, PredictionID: ev.PredictionID, Reason: door.FailNotValid, Code: door.FallbackPacked})
		return
	}

	res := d.Interact(p, door.Request{
		State:         ev.State,
		Side:          ev.Side,
		ActorPosition: ev.Position,
		HasPosition:   ev.HasPosition,
	})
	if res.Accepted {
		// The new state was already broadcast from ReplicateState.
		return
	}
	p.Queue(event.RejectEvent{NopEvent: stamp(), DoorID: ev.DoorID, PredictionID: ev.PredictionID, Reason: res.Reason, Code: d.Packed()})
}

// Flush sends everything queued for every peer.
func (a *Authority) Flush() {
	for _, p := range a.Peers() {
		p.Flush()
	}
}

// Close disconnects every peer.
func (a *Authority) Close() {
	a.admit()
	for _, p := range a.Peers() {
		_ = p.Close()
	}
	a.peersMu.Lock()
	a.peers = nil
	a.peersMu.Unlock()
}

func (a *Authority) remove(p *Peer) {
	_ = p.Close()
	a.peersMu.Lock()
	a.peers = slices.DeleteFunc(a.peers, func(other *Peer) bool { return other == p })
	a.peersMu.Unlock()
}

func (a *Authority) dropClosed() {
	a.peersMu.Lock()
	defer a.peersMu.Unlock()
	a.peers = slices.DeleteFunc(a.peers, func(p *Peer) bool {
		select {
		case <-p.closed:
			return true
		default:
			return false
		}
	})
}

// ReplicateState queues the state of d for every peer.
func (a *Authority) ReplicateState(d *door.Door, _ door.Packed) {
	id := DoorID(d.Name())
	for _, p := range a.Peers() {
		p.Queue(stateEvent(id, d, p.legacy))
	}
}

// ReplicatePolicy queues the policies of d for every peer.
func (a *Authority) ReplicatePolicy(d *door.Door) {
	id := DoorID(d.Name())
	for _, p := range a.Peers() {
		p.Queue(policyEvent(id, d))
	}
}

func (a *Authority) broadcastDoor(id uint64, d *door.Door) {
	for _, p := range a.Peers() {
		p.Queue(policyEvent(id, d))
		p.Queue(stateEvent(id, d, p.legacy))
	}
}

func stateEvent(id uint64, d *door.Door, legacy bool) event.Event {
	if legacy {
		return event.LegacyStateEvent{NopEvent: stamp(), DoorID: id, Code: door.PackLegacy(d.State(), d.LastSide())}
	}
	return event.StateEvent{NopEvent: stamp(), DoorID: id, Code: d.Packed()}
}

func policyEvent(id uint64, d *door.Door) event.Event {
	return event.PolicyEvent{NopEvent: stamp(), DoorID: id, Access: d.Access(), OpenDirection: d.OpenDirection(), OpenMotion: d.OpenMotion()}
}

// stamp returns the header embedded in every event sent now.
func stamp() event.NopEvent {
	return event.NopEvent{EvTime: time.Now().UnixNano()}
}
