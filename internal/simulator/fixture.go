package simulator

import (
	"fmt"

	"github.com/muurk/daelim/internal/config"
	"github.com/muurk/daelim/internal/protocol"
)

// Fixture describes a simulated apartment in a YAML or TOML file
type Fixture struct {
	UserID       string               `yaml:"user_id" toml:"user_id"`
	Password     string               `yaml:"password" toml:"password"`
	GuardProfile string               `yaml:"guard_profile" toml:"guard_profile"`
	ControlInfo  protocol.ControlInfo `yaml:"controlinfo" toml:"controlinfo"`
}

// LoadFixture reads a fixture file and applies it to cfg. Fields left
// empty in the file keep cfg's values.
func LoadFixture(path string, cfg *Config) error {
	var f Fixture
	if err := config.ReadFile(path, &f); err != nil {
		return err
	}

	if f.UserID != "" {
		cfg.UserID = f.UserID
	}
	if f.Password != "" {
		cfg.Password = f.Password
	}
	if f.GuardProfile != "" {
		p, err := protocol.ParseGuardProfile(f.GuardProfile)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", path, err)
		}
		cfg.GuardProfile = p
	}
	if f.ControlInfo.Count() > 0 {
		cfg.ControlInfo = f.ControlInfo
	}
	return nil
}

// DefaultControlInfo is the catalog of a typical four-room apartment
func DefaultControlInfo() protocol.ControlInfo {
	return protocol.ControlInfo{
		protocol.DeviceLight: {
			{UID: "012611", UName: "거실", Dimming: "y"},
			{UID: "012511", UName: "복도", Dimming: "n"},
			{UID: "012521", UName: "침실1-1", Dimming: "n"},
			{UID: "012522", UName: "침실1-2", Dimming: "n"},
			{UID: "012531", UName: "침실2", Dimming: "n"},
			{UID: "012541", UName: "침실3", Dimming: "n"},
		},
		protocol.DeviceHeating: {
			{UID: "012411", UName: "거실"},
			{UID: "012412", UName: "침실1"},
			{UID: "012413", UName: "침실2"},
			{UID: "012414", UName: "침실3"},
		},
		protocol.DeviceGas: {
			{UID: "012711", UName: "주방"},
		},
		protocol.DeviceFan: {
			{UID: "012811", UName: "환기"},
		},
		protocol.DeviceWallsocket: {
			{UID: "013111", UName: "거실1"},
			{UID: "013121", UName: "거실2"},
			{UID: "013131", UName: "침실1-1"},
			{UID: "013171", UName: "주방1-1"},
		},
	}
}
