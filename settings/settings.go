package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/doors/door"
	"github.com/pelletier/go-toml"
)

// Settings contains everything that can be configured for a door server.
type Settings struct {
	Server struct {
		// Address is the UDP address the authority listens on, or the address a client dials.
		Address string
		// TickRate is the amount of ticks per second.
		TickRate int
		Headless bool
		LogLevel string
		// LegacyPeers sends door states to clients in the eight value format.
		LegacyPeers bool
	}
	Doors []Door
}

// Door is the configuration of a single door. Enumerations are written by name, so the file stays
// readable.
type Door struct {
	Name string

	X, Y, Z     float32
	Yaw         float32
	ForwardAxis string

	State     string
	Direction string

	Access              string
	AccessChange        string
	OpenDirection       string
	OpenDirectionChange string
	OpenMotion          string
	OpenMotionChange    string

	Motion Motion

	// MotionCooldown and StationaryCooldown are in seconds.
	MotionCooldown     float64
	StationaryCooldown float64

	CanInteractWhileInMotion bool
	TrustClientSide          bool

	Notifies []Notify
}

// Motion configures how a door swings. Durations are in seconds and apply to both directions.
type Motion struct {
	Mode            string
	OpenDuration    Rates
	CloseDuration   Rates
	OpenSpeed       Rates
	CloseSpeed      Rates
	InterpTolerance float32
}

// Rates holds a motion value for each swing direction.
type Rates struct {
	Outward float32
	Inward  float32
}

func (r Rates) door() door.Rates {
	return door.Rates{Outward: r.Outward, Inward: r.Inward}
}

func rates(r door.Rates) Rates {
	return Rates{Outward: r.Outward, Inward: r.Inward}
}

// Notify is a tag fired when a door moving in State and Direction passes Threshold.
type Notify struct {
	State     string
	Direction string
	Threshold float32
	Tag       string
}

// DefaultDoor returns the settings of a closed, unrestricted door named name.
func DefaultDoor(name string) Door {
	m := door.DefaultMotionSettings()
	return Door{
		Name:                name,
		ForwardAxis:         "Z",
		State:               door.StateClosed.String(),
		Direction:           door.DirectionOutward.String(),
		Access:              door.AccessBidirectional.String(),
		AccessChange:        door.ChangeWait.String(),
		OpenDirection:       door.OpenBidirectional.String(),
		OpenDirectionChange: door.ChangeWait.String(),
		OpenMotion:          door.MotionPush.String(),
		OpenMotionChange:    door.ChangeImmediate.String(),
		Motion: Motion{
			Mode:            m.Mode.String(),
			OpenDuration:    rates(m.OpenDuration),
			CloseDuration:   rates(m.CloseDuration),
			OpenSpeed:       rates(m.OpenSpeed),
			CloseSpeed:      rates(m.CloseSpeed),
			InterpTolerance: m.InterpTolerance,
		},
		MotionCooldown:     door.DefaultMotionCooldown.Seconds(),
		StationaryCooldown: door.DefaultStationaryCooldown.Seconds(),
	}
}

// DefaultSettings returns the default settings: a headless authority with a single door.
func DefaultSettings() Settings {
	settings := Settings{}
	settings.Server.Address = "0.0.0.0:19134"
	settings.Server.TickRate = 20
	settings.Server.Headless = true
	settings.Server.LogLevel = "info"

	front := DefaultDoor("front_door")
	front.Notifies = []Notify{
		{State: door.StateOpening.String(), Direction: door.DirectionOutward.String(), Threshold: 0.5, Tag: "door.half_open"},
		{State: door.StateOpening.String(), Direction: door.DirectionInward.String(), Threshold: 0.5, Tag: "door.half_open"},
	}
	settings.Doors = []Door{front}
	return settings
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %v", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %v", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %v", err)
	}

	var settings Settings
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %v", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Validate checks that every door can be turned into a door.Config and that no two share a name.
func (s Settings) Validate() error {
	if s.Server.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", s.Server.TickRate)
	}
	seen := make(map[string]struct{}, len(s.Doors))
	for _, d := range s.Doors {
		if d.Name == "" {
			return errors.New("door without a name")
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("door %q defined twice", d.Name)
		}
		seen[d.Name] = struct{}{}
		if _, err := d.Config(); err != nil {
			return err
		}
	}
	return nil
}

// Door returns the settings of the door named name.
func (s Settings) Door(name string) (Door, bool) {
	for _, d := range s.Doors {
		if d.Name == name {
			return d, true
		}
	}
	return Door{}, false
}

// Config converts the settings into a door.Config. Role, logger, scheduler and policy are left for the
// caller to fill in.
func (d Door) Config() (door.Config, error) {
	conf := door.Config{
		Name:                     d.Name,
		Position:                 mgl32.Vec3{d.X, d.Y, d.Z},
		Yaw:                      d.Yaw,
		MotionCooldown:           seconds(d.MotionCooldown),
		StationaryCooldown:       seconds(d.StationaryCooldown),
		CanInteractWhileInMotion: d.CanInteractWhileInMotion,
		TrustClientSide:          d.TrustClientSide,
	}

	p := parser{door: d.Name}
	conf.ForwardAxis = p.axis(d.ForwardAxis)
	conf.State = parse(&p, "state", d.State, door.ParseState)
	conf.Direction = parse(&p, "direction", d.Direction, door.ParseDirection)
	conf.Access = parse(&p, "access", d.Access, door.ParseAccess)
	conf.AccessChange = parse(&p, "access change", d.AccessChange, door.ParseChangeType)
	conf.OpenDirection = parse(&p, "open direction", d.OpenDirection, door.ParseOpenDirection)
	conf.OpenDirectionChange = parse(&p, "open direction change", d.OpenDirectionChange, door.ParseChangeType)
	conf.OpenMotion = parse(&p, "open motion", d.OpenMotion, door.ParseMotion)
	conf.OpenMotionChange = parse(&p, "open motion change", d.OpenMotionChange, door.ParseChangeType)
	conf.Motion = p.motion(d.Motion)
	if len(d.Notifies) > 0 {
		conf.Notifies = door.NewNotifyTable()
		for _, n := range d.Notifies {
			state := parse(&p, "notify state", n.State, door.ParseState)
			direction := parse(&p, "notify direction", n.Direction, door.ParseDirection)
			conf.Notifies.Add(state, direction, door.Notify{Threshold: n.Threshold, Tag: n.Tag})
		}
	}
	if err := p.err(); err != nil {
		return door.Config{}, err
	}
	return conf, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parser collects every invalid field of a door instead of stopping at the first.
type parser struct {
	door   string
	failed []string
}

func parse[T any](p *parser, field, value string, f func(string) (T, error)) T {
	v, err := f(value)
	if err != nil {
		p.failed = append(p.failed, field+": "+err.Error())
	}
	return v
}

func (p *parser) axis(s string) door.ForwardAxis {
	switch strings.ToUpper(s) {
	case "", "Z":
		return door.AxisZ
	case "X":
		return door.AxisX
	}
	p.failed = append(p.failed, fmt.Sprintf("forward axis: unknown axis %q", s))
	return door.AxisZ
}

func (p *parser) motion(m Motion) door.MotionSettings {
	mode, ok := door.ParseMotionMode(m.Mode)
	if !ok {
		p.failed = append(p.failed, fmt.Sprintf("motion mode: unknown mode %q", m.Mode))
	}
	return door.MotionSettings{
		Mode:            mode,
		OpenDuration:    m.OpenDuration.door(),
		CloseDuration:   m.CloseDuration.door(),
		OpenSpeed:       m.OpenSpeed.door(),
		CloseSpeed:      m.CloseSpeed.door(),
		InterpTolerance: m.InterpTolerance,
	}
}

func (p *parser) err() error {
	if len(p.failed) == 0 {
		return nil
	}
	return fmt.Errorf("door %q: %s", p.door, strings.Join(p.failed, "; "))
}
