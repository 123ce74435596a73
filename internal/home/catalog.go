package home

import (
	"fmt"

	"github.com/muurk/daelim/internal/protocol"
)

// fallbackNames label devices the server left unnamed
var fallbackNames = map[string]string{
	protocol.DeviceLight:      "조명",
	protocol.DeviceHeating:    "난방",
	protocol.DeviceGas:        "가스",
	protocol.DeviceFan:        "환기",
	protocol.DeviceWallsocket: "콘센트",
}

// Device is one catalog entry
type Device struct {
	Category string `json:"category"`
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Dimmable bool   `json:"dimmable,omitempty"`
}

// Key returns the state cache key of the device
func (d Device) Key() string {
	return protocol.StateKey(d.Category, d.UID)
}

// Catalog is the typed form of the control info returned at login
type Catalog struct {
	raw     protocol.ControlInfo
	devices []Device
	index   map[string]int
}

// NewCatalog builds a catalog from control info. Devices are ordered by
// category, then in server order. Categories outside the known five are
// kept after them.
func NewCatalog(ci protocol.ControlInfo) *Catalog {
	c := &Catalog{raw: ci.Clone(), index: make(map[string]int)}

	add := func(category string) {
		for i, d := range ci[category] {
			name := d.UName
			if name == "" {
				label, ok := fallbackNames[category]
				if !ok {
					label = category
				}
				name = fmt.Sprintf("%s %d", label, i+1)
			}
			dev := Device{Category: category, UID: d.UID, Name: name, Dimmable: d.Dimmable()}
			c.index[dev.Key()] = len(c.devices)
			c.devices = append(c.devices, dev)
		}
	}

	known := make(map[string]bool, len(protocol.Categories))
	for _, category := range protocol.Categories {
		known[category] = true
		add(category)
	}
	for category := range ci {
		if !known[category] {
			add(category)
		}
	}
	return c
}

// LoadStoredCatalog restores a catalog saved by ForStorage. It reports
// false when nothing usable was stored.
func LoadStoredCatalog(ci protocol.ControlInfo) (*Catalog, bool) {
	if ci.Count() == 0 {
		return nil, false
	}
	return NewCatalog(ci), true
}

// ForStorage returns the control info in the form the config registry
// persists
func (c *Catalog) ForStorage() protocol.ControlInfo {
	if c == nil {
		return nil
	}
	return c.raw.Clone()
}

// Len returns the number of devices
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.devices)
}

// Devices returns every device in catalog order
func (c *Catalog) Devices() []Device {
	if c == nil {
		return nil
	}
	return append([]Device(nil), c.devices...)
}

// Category returns the devices of one category
func (c *Catalog) Category(category string) []Device {
	var out []Device
	for _, d := range c.Devices() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a device by category and uid
func (c *Catalog) Lookup(category, uid string) (Device, bool) {
	if c == nil {
		return Device{}, false
	}
	i, ok := c.index[protocol.StateKey(category, uid)]
	if !ok {
		return Device{}, false
	}
	return c.devices[i], true
}
