package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/oomph-ac/doors/door"
	"github.com/oomph-ac/doors/replication"
	"github.com/oomph-ac/doors/schedule"
	"github.com/oomph-ac/doors/settings"
	"github.com/sirupsen/logrus"
)

// The following program runs an authority for the doors in a settings file, replicating them to every
// client that connects over RakNet.
func main() {
	path := "doors.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:     false,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := settings.SaveDefault(path); err != nil {
			log.Fatalf("unable to write default settings: %v", err)
		}
		log.Infof("wrote default settings to %s", path)
	}
	s, err := settings.Load(path)
	if err != nil {
		log.Fatalf("unable to load settings: %v", err)
	}
	if lvl, err := logrus.ParseLevel(s.Server.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Fatalf("sentry.Init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if os.Getenv("PPROF_ENABLED") != "" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))

		mgr := statsview.New()
		go mgr.Start()
	}

	sched := schedule.NewScheduler(schedule.SystemClock{})
	authority := replication.NewAuthority(replication.NewRegistry(), log)
	for _, ds := range s.Doors {
		conf, err := ds.Config()
		if err != nil {
			log.Fatalf("%v", err)
		}
		conf.Role = door.RoleAuthority
		conf.Headless = s.Server.Headless
		conf.Log = log
		conf.Scheduler = sched
		if _, err := authority.Track(door.New(conf)); err != nil {
			log.Fatalf("%v", err)
		}
	}

	listener, err := replication.Listen(s.Server.Address)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer listener.Close()
	log.Infof("replicating %d doors on %s", authority.Registry().Len(), listener.Addr())

	go func() {
		for n := 0; ; n++ {
			conn, err := listener.Accept()
			if err != nil {
				log.Infof("listener closed: %v", err)
				return
			}
			authority.Join(fmt.Sprintf("peer-%d", n), conn, s.Server.LegacyPeers)
		}
	}()

	watcher, err := settings.Watch(path)
	if err != nil {
		log.Fatalf("unable to watch %s: %v", path, err)
	}
	defer watcher.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	dt := 1 / float32(s.Server.TickRate)
	ticker := time.NewTicker(time.Second / time.Duration(s.Server.TickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sched.Poll()
			authority.Process()
			authority.Registry().Each(func(_ uint64, d *door.Door) {
				d.Tick(dt)
			})
			authority.Flush()
		case ns := <-watcher.Updates:
			reload(authority.Registry(), ns, log)
			authority.Flush()
		case err := <-watcher.Errors:
			log.Warnf("settings reload failed: %v", err)
		case <-interrupt:
			log.Info("shutting down")
			authority.Close()
			return
		}
	}
}

// reload applies the door settings of ns to the doors that are already running. Doors added to or
// removed from the file need a restart.
func reload(reg *replication.Registry, ns settings.Settings, log *logrus.Logger) {
	for _, ds := range ns.Doors {
		d, ok := reg.Get(replication.DoorID(ds.Name))
		if !ok {
			log.Warnf("door %q is new, restart to add it", ds.Name)
			continue
		}
		if err := settings.Apply(d, ds, log); err != nil {
			log.Warnf("%v", err)
		}
	}
}
