package settings

import (
	"github.com/oomph-ac/doors/door"
	"github.com/sirupsen/logrus"
)

// Apply brings a running door in line with s. Change types are updated first so that the new values
// are requested under them; values the door refuses or queues are logged, not treated as errors.
func Apply(d *door.Door, s Door, log *logrus.Logger) error {
	conf, err := s.Config()
	if err != nil {
		return err
	}

	d.SetChangeType(door.PolicyAccess, conf.AccessChange)
	d.SetChangeType(door.PolicyOpenDirection, conf.OpenDirectionChange)
	d.SetChangeType(door.PolicyOpenMotion, conf.OpenMotionChange)

	fields := logrus.Fields{"door": d.Name()}
	if conf.Access != d.Access() {
		log.WithFields(fields).Infof("access %s -> %s: %s", d.Access(), conf.Access, d.SetAccess(conf.Access))
	}
	if conf.OpenDirection != d.OpenDirection() {
		log.WithFields(fields).Infof("open direction %s -> %s: %s", d.OpenDirection(), conf.OpenDirection, d.SetOpenDirection(conf.OpenDirection))
	}
	if conf.OpenMotion != d.OpenMotion() {
		log.WithFields(fields).Infof("open motion %s -> %s: %s", d.OpenMotion(), conf.OpenMotion, d.SetOpenMotion(conf.OpenMotion))
	}

	d.SetMotionSettings(conf.Motion)
	d.Cooldowns().SetDuration(door.CooldownMotion, conf.MotionCooldown)
	d.Cooldowns().SetDuration(door.CooldownStationary, conf.StationaryCooldown)
	return nil
}
