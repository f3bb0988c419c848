package replication

import (
	"io"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/event"
	"github.com/oomph-ac/doors/oerror"
	"github.com/oomph-ac/doors/utils"
	"github.com/sirupsen/logrus"
)

const (
	// MaxPendingPredictions is the amount of unconfirmed predictions kept. Older ones are forgotten.
	MaxPendingPredictions = 100
	// CorrectionHistory is the amount of corrections kept for inspection.
	CorrectionHistory = 32
)

var predictionPool = sync.Pool{
	New: func() any {
		return &prediction{}
	},
}

type prediction struct {
	id        uint32
	doorID    uint64
	predicted door.Packed
}

// Correction records an interaction the authority refused after it was predicted locally.
type Correction struct {
	DoorID       uint64
	PredictionID uint32
	Reason       door.FailReason
	// Predicted is the state the door was put in locally, Authoritative the state it was corrected to.
	Predicted     door.Packed
	Authoritative door.Packed
}

// Predictor is the client end of a replication session. Interactions are resolved on the local
// RolePredicting copy of a door straight away and sent to the authority, whose state always overwrites
// the local one when it arrives. Nothing is rolled back or replayed.
type Predictor struct {
	reg  *Registry
	peer *Peer
	log  *logrus.Logger

	pending     []*prediction
	corrections *utils.CircularQueue[Correction]

	inbound chan inbound
	err     error
}

// NewPredictor starts a session with the authority on conn for the doors of reg.
func NewPredictor(reg *Registry, conn PacketConn, log *logrus.Logger) *Predictor {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	p := &Predictor{
		reg:         reg,
		peer:        newPeer("authority", conn, false, log),
		log:         log,
		corrections: utils.NewCircularQueue[Correction](CorrectionHistory),
		inbound:     make(chan inbound, inboundQueueSize),
	}
	go p.peer.readLoop(p.inbound)
	return p
}

func (p *Predictor) Registry() *Registry {
	return p.reg
}

// Interact resolves req on the door with the ID passed. An accepted result has already been applied to
// the local door and is on its way to the authority. A locally rejected interaction is never sent.
func (p *Predictor) Interact(doorID uint64, req door.Request) (door.Result, error) {
	if p.err != nil {
		return door.Result{}, p.err
	}
	d, ok := p.reg.Get(doorID)
	if !ok {
		return door.Result{}, oerror.New("unknown door %d", doorID)
	}

	res := d.Interact(nil, req)
	if !res.Accepted {
		return res, nil
	}

	pred := predictionPool.Get().(*prediction)
	pred.id, pred.doorID, pred.predicted = p.newID(), doorID, d.Packed()
	p.track(pred)

	p.peer.Queue(event.InteractEvent{
		NopEvent:     stamp(),
		DoorID:       doorID,
		PredictionID: pred.id,
		State:        req.State,
		Side:         req.Side,
		HasPosition:  req.HasPosition,
		Position:     req.ActorPosition,
	})
	return res, nil
}

// Process applies everything received from the authority since the last call. It returns the error the
// connection failed with, if any.
func (p *Predictor) Process() error {
	for {
		select {
		case in := <-p.inbound:
			if in.err != nil {
				p.err = oerror.New("connection to authority lost: %v", in.err)
				_ = p.peer.Close()
				return p.err
			}
			for _, ev := range in.events {
				p.handle(ev)
			}
		default:
			return p.err
		}
	}
}

func (p *Predictor) handle(ev event.Event) {
	switch ev := ev.(type) {
	case event.StateEvent:
		if d, ok := p.door(ev.DoorID); ok {
			d.ApplyReplicated(ev.Code)
			p.confirm(ev.DoorID, ev.Code)
		}
	case event.LegacyStateEvent:
		if d, ok := p.door(ev.DoorID); ok {
			d.ApplyLegacy(ev.Code)
			p.confirm(ev.DoorID, d.Packed())
		}
	case event.PolicyEvent:
		if d, ok := p.door(ev.DoorID); ok {
			d.ApplyPolicy(ev.Access, ev.OpenDirection, ev.OpenMotion)
		}
	case event.RejectEvent:
		p.reject(ev)
	default:
		p.log.Warnf("unexpected %T from authority", ev)
	}
}

func (p *Predictor) door(id uint64) (*door.Door, bool) {
	d, ok := p.reg.Get(id)
	if !ok {
		p.log.Warnf("authority sent state for unknown door %d", id)
	}
	return d, ok
}

// reject corrects the door to the state the authority sent back with the rejection.
func (p *Predictor) reject(ev event.RejectEvent) {
	c := Correction{DoorID: ev.DoorID, PredictionID: ev.PredictionID, Reason: ev.Reason, Authoritative: ev.Code}
	if i := slices.IndexFunc(p.pending, func(pred *prediction) bool { return pred.id == ev.PredictionID }); i >= 0 {
		c.Predicted = p.pending[i].predicted
		predictionPool.Put(p.pending[i])
		p.pending = slices.Delete(p.pending, i, i+1)
	}
	_ = p.corrections.Append(c)

	d, ok := p.door(ev.DoorID)
	if !ok {
		return
	}
	p.log.Debugf("prediction %d on %s rejected (%s), correcting to %s", ev.PredictionID, d.Name(), ev.Reason, ev.Code)
	d.ApplyReplicated(ev.Code)
}

// confirm drops the newest prediction for the door that matches code and every older one for the same
// door. The authority processes a peer's packets in order, so those can no longer be rejected.
func (p *Predictor) confirm(doorID uint64, code door.Packed) {
	last := -1
	for i, pred := range p.pending {
		if pred.doorID == doorID && pred.predicted == code {
			last = i
		}
	}
	if last < 0 {
		return
	}
	kept := p.pending[:0]
	for i, pred := range p.pending {
		if i <= last && pred.doorID == doorID {
			predictionPool.Put(pred)
			continue
		}
		kept = append(kept, pred)
	}
	clear(p.pending[len(kept):])
	p.pending = kept
}

func (p *Predictor) track(pred *prediction) {
	if len(p.pending) >= MaxPendingPredictions {
		p.log.Warnf("too many unconfirmed predictions, forgetting %d", p.pending[0].id)
		predictionPool.Put(p.pending[0])
		p.pending[0] = nil
		p.pending = p.pending[1:]
	}
	p.pending = append(p.pending, pred)
}

// newID returns a prediction ID that is not in use.
func (p *Predictor) newID() uint32 {
idLoop:
	for range 5 {
		id := rand.Uint32()
		for _, pred := range p.pending {
			if pred.id == id {
				continue idLoop
			}
		}
		return id
	}
	panic(oerror.New("unable to find new prediction ID after 5 random attempts"))
}

// Pending returns the amount of predictions the authority has not answered yet.
func (p *Predictor) Pending() int {
	return len(p.pending)
}

// Corrections returns the most recent corrections, oldest first.
func (p *Predictor) Corrections() []Correction {
	return slices.Collect(p.corrections.Iter())
}

// Flush sends the interactions made since the last call to the authority.
func (p *Predictor) Flush() {
	p.peer.Flush()
}

func (p *Predictor) Close() error {
	return p.peer.Close()
}
