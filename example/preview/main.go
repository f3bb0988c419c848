package main

import (
	"os"

	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/preview"
	"github.com/oomph-ac/doors/settings"
	"github.com/sirupsen/logrus"
)

// The following program previews a door from a settings file: it opens the door from the front, closes
// it again three seconds later and prints every frame.
func main() {
	if len(os.Args) < 3 {
		logrus.Fatal("Usage: ./bin <settings_file> <door_name>")
	}

	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	s, err := settings.Load(os.Args[1])
	if err != nil {
		log.Fatalf("unable to load settings: %v", err)
	}
	ds, ok := s.Door(os.Args[2])
	if !ok {
		log.Fatalf("no door named %q", os.Args[2])
	}
	conf, err := ds.Config()
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The actor stands two blocks in front of the door.
	front := conf.Position.Add(door.AxisVector(conf.Yaw, conf.ForwardAxis).Mul(2))
	opts := preview.DefaultOptions()
	opts.Debugf = log.Debugf
	tl := preview.Run(conf, []preview.Action{
		{At: 0, Request: door.Request{State: door.StateClosed, Side: door.SideFront, ActorPosition: front, HasPosition: true}},
		{At: 3, Request: door.Request{State: door.StateOpen, Side: door.SideFront, ActorPosition: front, HasPosition: true}},
	}, opts)

	for _, o := range tl.Outcomes {
		log.Infof("%.2fs: accepted=%v reason=%s", o.Action.At, o.Result.Accepted, o.Result.Reason)
	}
	log.Infof("%d frames, %.2fs in motion, settled=%v", len(tl.Frames), tl.Duration(), tl.Settled)
}
