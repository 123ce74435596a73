package home

import (
	"strconv"
	"time"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/protocol"
)

// DeviceState is a catalog device with its last-known state
type DeviceState struct {
	Device
	On   bool          `json:"on"`
	Args protocol.Item `json:"args,omitempty"`

	// Brightness is 0-255 for dimmable lights
	Brightness int `json:"brightness,omitempty"`

	// TargetTemp and CurrentTemp are set for heating zones
	TargetTemp  int `json:"target_temp,omitempty"`
	CurrentTemp int `json:"current_temp,omitempty"`

	// FanSpeed and FanMode are the raw fan codes
	FanSpeed string `json:"fan_speed,omitempty"`
	FanMode  string `json:"fan_mode,omitempty"`
}

func newDeviceState(d Device, it protocol.Item) DeviceState {
	s := DeviceState{Device: d, On: it.On(), Args: it.Clone()}
	switch d.Category {
	case protocol.DeviceLight:
		if d.Dimmable && it.Arg(2) != "" {
			s.Brightness = client.BrightnessFromLevel(it.Arg(2))
		}
	case protocol.DeviceHeating:
		s.TargetTemp, _ = strconv.Atoi(it.Arg(2))
		s.CurrentTemp, _ = strconv.Atoi(it.Arg(3))
	case protocol.DeviceFan:
		s.FanSpeed = it.Arg(2)
		s.FanMode = it.Arg(3)
	}
	return s
}

// Snapshot is everything the home layer knows about the apartment
type Snapshot struct {
	Available bool          `json:"available"`
	LoggedIn  bool          `json:"logged_in"`
	UpdatedAt time.Time     `json:"updated_at"`
	Devices   []DeviceState `json:"devices"`
	GuardMode string        `json:"guard_mode,omitempty"`

	QueryDay string                   `json:"query_day,omitempty"`
	Energy   []EnergyUsage            `json:"energy,omitempty"`
	Yearly   map[string]*YearlyEnergy `json:"yearly,omitempty"`

	Error string `json:"error,omitempty"`
}

// Device returns the state of one device
func (s Snapshot) Device(category, uid string) (DeviceState, bool) {
	key := protocol.StateKey(category, uid)
	for _, d := range s.Devices {
		if d.Key() == key {
			return d, true
		}
	}
	return DeviceState{}, false
}

// clone deep-copies the slices and maps so subscribers cannot race the
// home worker
func (s Snapshot) clone() Snapshot {
	out := s
	out.Devices = make([]DeviceState, len(s.Devices))
	for i, d := range s.Devices {
		d.Args = d.Args.Clone()
		out.Devices[i] = d
	}
	out.Energy = append([]EnergyUsage(nil), s.Energy...)
	if s.Yearly != nil {
		out.Yearly = make(map[string]*YearlyEnergy, len(s.Yearly))
		for k, v := range s.Yearly {
			if v != nil {
				cp := *v
				cp.Months = append([]float64(nil), v.Months...)
				v = &cp
			}
			out.Yearly[k] = v
		}
	}
	return out
}

// buildDevices lays catalog devices over the given states. Devices the
// server did not report keep an empty state.
func buildDevices(cat *Catalog, states map[string]protocol.Item) []DeviceState {
	devices := cat.Devices()
	out := make([]DeviceState, 0, len(devices))
	for _, d := range devices {
		out = append(out, newDeviceState(d, states[d.Key()]))
	}
	return out
}

// applyItems merges response items into the snapshot devices. Unknown
// devices are ignored.
func applyItems(devices []DeviceState, items []protocol.Item) bool {
	changed := false
	for _, it := range items {
		for i := range devices {
			if devices[i].Key() != it.Key() {
				continue
			}
			merged := devices[i].Args.Clone()
			if merged == nil {
				merged = protocol.Item{}
			}
			for k, v := range it {
				merged[k] = v
			}
			devices[i] = newDeviceState(devices[i].Device, merged)
			changed = true
		}
	}
	return changed
}
