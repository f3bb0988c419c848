package replication

import (
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/doors/event"
	"github.com/oomph-ac/doors/oerror"
	"github.com/oomph-ac/doors/worker"
	"github.com/sirupsen/logrus"
)

// Peer is one end of a replication session as seen from the other. On the authority it is also the
// door.Actor handed to door policies.
type Peer struct {
	name   string
	conn   PacketConn
	legacy bool
	log    *logrus.Logger

	outMu  sync.Mutex
	outbox []event.Event
	// writeMu orders flushes of the same peer across workers.
	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newPeer(name string, conn PacketConn, legacy bool, log *logrus.Logger) *Peer {
	return &Peer{
		name:   name,
		conn:   conn,
		legacy: legacy,
		log:    log,
		closed: make(chan struct{}),
	}
}

func (p *Peer) Name() string {
	return p.name
}

// Legacy returns true if the peer receives door states in the legacy format.
func (p *Peer) Legacy() bool {
	return p.legacy
}

// Closed returns a channel that is closed once the peer disconnected.
func (p *Peer) Closed() <-chan struct{} {
	return p.closed
}

// Queue adds ev to the events sent on the next Flush.
func (p *Peer) Queue(ev event.Event) {
	p.outMu.Lock()
	p.outbox = append(p.outbox, ev)
	p.outMu.Unlock()
}

// Flush sends every queued event as a single packet. The write happens on a worker.
func (p *Peer) Flush() {
	p.outMu.Lock()
	empty := len(p.outbox) == 0
	p.outMu.Unlock()
	if empty {
		return
	}
	worker.Submit(p.write)
}

func (p *Peer) write() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.outMu.Lock()
	events := p.outbox
	p.outbox = nil
	p.outMu.Unlock()
	if len(events) == 0 {
		return
	}

	select {
	case <-p.closed:
		return
	default:
	}
	if _, err := p.conn.Write(event.EncodeEvents(events...)); err != nil {
		p.log.Debugf("write to %s failed: %v", p.name, err)
		p.Close()
	}
}

// Close closes the connection of the peer. It is safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = p.conn.Close()
	})
	return err
}

// inbound is what the read loop of a peer hands to the tick loop.
type inbound struct {
	peer   *Peer
	events []event.Event
	err    error
}

// readLoop reads packets from the peer until it fails, sending everything decoded to out. The final
// error is sent too, so the tick loop can drop the peer.
func (p *Peer) readLoop(out chan<- inbound) {
	defer func() {
		if v := recover(); v != nil {
			p.log.Errorf("readLoop() panic: %v", v)
			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("component", "replication")
				scope.SetTag("peer", p.name)
			})
			hub.Recover(oerror.New(fmt.Sprintf("%v", v)))
			p.Close()
			p.deliver(out, inbound{peer: p, err: oerror.New("read loop panicked: %v", v)})
		}
	}()

	for {
		pk, err := p.conn.ReadPacket()
		if err != nil {
			p.deliver(out, inbound{peer: p, err: err})
			return
		}
		events, err := event.DecodeEvents(pk)
		if err != nil {
			// A malformed packet is dropped without taking the peer down with it.
			p.log.Warnf("dropping packet from %s: %v", p.name, err)
			continue
		}
		if !p.deliver(out, inbound{peer: p, events: events}) {
			return
		}
	}
}

func (p *Peer) deliver(out chan<- inbound, in inbound) bool {
	select {
	case out <- in:
		return true
	case <-p.closed:
		return false
	}
}
