package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oomph-ac/doors/door"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

func TestSaveAndLoadDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doors.toml")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault: %v", err)
	}
	if err := SaveDefault(path); err == nil {
		t.Fatalf("SaveDefault should refuse to overwrite an existing file")
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := DefaultSettings()
	if s.Server != def.Server {
		t.Fatalf("server settings differ: %+v vs %+v", s.Server, def.Server)
	}
	if len(s.Doors) != 1 || s.Doors[0].Name != "front_door" || len(s.Doors[0].Notifies) != 2 {
		t.Fatalf("unexpected doors %+v", s.Doors)
	}
	if s.Doors[0].Motion != def.Doors[0].Motion {
		t.Fatalf("motion settings differ: %+v vs %+v", s.Doors[0].Motion, def.Doors[0].Motion)
	}
}

func TestLoadDirectionalRates(t *testing.T) {
	s := DefaultSettings()
	s.Doors[0].Motion.CloseSpeed = Rates{Outward: 4, Inward: 1.5}
	data, err := toml.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "doors.toml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	conf, err := loaded.Doors[0].Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if conf.Motion.CloseSpeed.For(door.DirectionOutward) != 4 || conf.Motion.CloseSpeed.For(door.DirectionInward) != 1.5 {
		t.Fatalf("close speed lost its directions: %+v", conf.Motion.CloseSpeed)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestDoorConfig(t *testing.T) {
	d := DefaultDoor("gate")
	d.X, d.Y, d.Z = 1, 2, 3
	d.ForwardAxis = "x"
	d.State = "open"
	d.Direction = "inward"
	d.Access = "Behind"
	d.OpenDirection = "Locked"
	d.OpenMotion = "pull"
	d.Motion.Mode = "Time"
	d.Motion.OpenDuration = Rates{Outward: 2, Inward: 3}
	d.MotionCooldown = 0.5
	d.Notifies = []Notify{{State: "Closing", Direction: "Inward", Threshold: 0.9, Tag: "latch"}}

	conf, err := d.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	if conf.Position.X() != 1 || conf.Position.Z() != 3 || conf.ForwardAxis != door.AxisX {
		t.Fatalf("unexpected placement %+v", conf)
	}
	if conf.State != door.StateOpen || conf.Direction != door.DirectionInward {
		t.Fatalf("unexpected state %s %s", conf.State, conf.Direction)
	}
	if conf.Access != door.AccessBehind || conf.OpenDirection != door.OpenLocked || conf.OpenMotion != door.MotionPull {
		t.Fatalf("unexpected policies %+v", conf)
	}
	if conf.AccessChange != door.ChangeWait || conf.OpenMotionChange != door.ChangeImmediate {
		t.Fatalf("unexpected change types %+v", conf)
	}
	if conf.Motion.Mode != door.MotionTime || conf.Motion.OpenDuration.Outward != 2 || conf.Motion.OpenDuration.Inward != 3 {
		t.Fatalf("unexpected motion %+v", conf.Motion)
	}
	if conf.MotionCooldown != 500*time.Millisecond {
		t.Fatalf("unexpected motion cooldown %v", conf.MotionCooldown)
	}
	if conf.Notifies == nil || conf.Notifies.Len(door.StateClosing, door.DirectionInward) != 1 {
		t.Fatalf("notify was not registered")
	}
}

func TestDoorConfigReportsEveryError(t *testing.T) {
	d := DefaultDoor("gate")
	d.Access = "sideways"
	d.Motion.Mode = "teleport"
	_, err := d.Config()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "access") || !strings.Contains(err.Error(), "motion mode") {
		t.Fatalf("error should name both fields: %v", err)
	}
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	s.Doors = append(s.Doors, DefaultDoor("front_door"))
	if err := s.Validate(); err == nil {
		t.Fatalf("expected duplicate door names to be refused")
	}

	s = DefaultSettings()
	s.Server.TickRate = 0
	if err := s.Validate(); err == nil {
		t.Fatalf("expected a zero tick rate to be refused")
	}
}

func TestApply(t *testing.T) {
	s := DefaultDoor("gate")
	s.State = "Open"
	conf, err := s.Config()
	if err != nil {
		t.Fatalf("Config: %v", err)
	}
	d := door.New(conf)

	s.Access = "Front"
	s.AccessChange = "Immediate"
	s.OpenDirection = "Inward"
	s.Motion.Mode = "InterpTo"
	s.StationaryCooldown = 1

	log := logrus.New()
	if err := Apply(d, s, log); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if d.Access() != door.AccessFront {
		t.Fatalf("immediate access change was not applied")
	}
	if d.OpenDirection() != door.OpenBidirectional {
		t.Fatalf("open direction must wait for the door to close")
	}
	if pending, ok := d.PendingOpenDirection(); !ok || pending != door.OpenInward {
		t.Fatalf("open direction change was not queued")
	}
	if d.MotionSettings().Mode != door.MotionInterpTo {
		t.Fatalf("motion settings were not replaced")
	}
	if d.Cooldowns().Duration(door.CooldownStationary) != time.Second {
		t.Fatalf("stationary cooldown was not updated")
	}

	s.Access = "nowhere"
	if err := Apply(d, s, log); err == nil {
		t.Fatalf("expected invalid settings to be refused")
	}
}

func TestWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doors.toml")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault: %v", err)
	}
	w, err := Watch(path)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	s := DefaultSettings()
	s.Server.TickRate = 60
	data, err := toml.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case s := <-w.Updates:
		if s.Server.TickRate != 60 {
			t.Fatalf("expected the reloaded tick rate, got %d", s.Server.TickRate)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("settings were not reloaded")
	}
}
