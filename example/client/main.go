package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/replication"
	"github.com/oomph-ac/doors/schedule"
	"github.com/oomph-ac/doors/settings"
	"github.com/sirupsen/logrus"
)

// logHandler prints what the doors do. It is registered as a cosmetic handler, so running the client
// headless silences it.
type logHandler struct {
	door.NopHandler
	log *logrus.Logger
}

func (h logHandler) HandleStateChanged(ctx door.Context, d *door.Door, old, new door.State) {
	h.log.WithFields(logrus.Fields{"door": d.Name(), "replicated": ctx.Replicated}).Infof("%s -> %s", old, new)
}

func (h logHandler) HandleNotify(_ door.Context, d *door.Door, n door.Notify) {
	h.log.WithField("door", d.Name()).Infof("notify %s", n.Tag)
}

// The following program connects to a door authority and interacts with a door every few seconds,
// predicting the result locally.
func main() {
	path := "doors.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	s, err := settings.Load(path)
	if err != nil {
		log.Fatalf("unable to load settings: %v", err)
	}
	if len(s.Doors) == 0 {
		log.Fatalf("%s has no doors", path)
	}

	sched := schedule.NewScheduler(schedule.SystemClock{})
	reg := replication.NewRegistry()
	for _, ds := range s.Doors {
		conf, err := ds.Config()
		if err != nil {
			log.Fatalf("%v", err)
		}
		conf.Role = door.RolePredicting
		conf.Log = log
		conf.Scheduler = sched
		d := door.New(conf)
		d.Handle(door.Cosmetic(logHandler{log: log}))
		if _, err := reg.Add(d); err != nil {
			log.Fatalf("%v", err)
		}
	}
	target := replication.DoorID(s.Doors[0].Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	conn, err := replication.Dial(ctx, s.Server.Address)
	cancel()
	if err != nil {
		log.Fatalf("%v", err)
	}
	predictor := replication.NewPredictor(reg, conn, log)
	defer predictor.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	dt := 1 / float32(s.Server.TickRate)
	ticker := time.NewTicker(time.Second / time.Duration(s.Server.TickRate))
	defer ticker.Stop()
	interact := time.NewTicker(3 * time.Second)
	defer interact.Stop()
	for {
		select {
		case <-ticker.C:
			sched.Poll()
			if err := predictor.Process(); err != nil {
				log.Errorf("%v", err)
				return
			}
			reg.Each(func(_ uint64, d *door.Door) {
				d.Tick(dt)
			})
			predictor.Flush()
		case <-interact.C:
			d, _ := reg.Get(target)
			res, err := predictor.Interact(target, door.Request{
				State:         d.State(),
				Side:          door.SideFront,
				ActorPosition: d.Position().Add(d.Forward().Mul(2)),
				HasPosition:   true,
			})
			if err != nil {
				log.Errorf("%v", err)
				return
			}
			if !res.Accepted {
				log.Infof("interaction refused locally: %s", res.Reason.Tag())
			}
		case <-interrupt:
			return
		}
	}
}
