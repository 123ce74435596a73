package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DeviceInfo describes one controllable device in the server's catalog.
type DeviceInfo struct {
	UID     string `json:"uid" yaml:"uid" toml:"uid"`
	UName   string `json:"uname" yaml:"uname" toml:"uname"`
	Dimming string `json:"dimming,omitempty" yaml:"dimming,omitempty" toml:"dimming,omitempty"`
}

// Dimmable reports whether the device supports brightness levels.
func (d DeviceInfo) Dimmable() bool {
	return d.Dimming == "y"
}

// ControlInfo maps a device category (light, heating, gas, fan,
// wallsocket) to its devices, in server order.
type ControlInfo map[string][]DeviceInfo

// Count returns the total number of devices across categories.
func (ci ControlInfo) Count() int {
	n := 0
	for _, devices := range ci {
		n += len(devices)
	}
	return n
}

// Find looks up a device by category and uid.
func (ci ControlInfo) Find(category, uid string) (DeviceInfo, bool) {
	for _, d := range ci[category] {
		if d.UID == uid {
			return d, true
		}
	}
	return DeviceInfo{}, false
}

// Clone returns a deep copy.
func (ci ControlInfo) Clone() ControlInfo {
	if ci == nil {
		return nil
	}
	out := make(ControlInfo, len(ci))
	for k, v := range ci {
		out[k] = append([]DeviceInfo(nil), v...)
	}
	return out
}

// ParseControlInfo extracts the device catalog from a Menu response body.
// The catalog is either under "controlinfo" or is the body itself; any
// key holding a list of objects with a uid is taken as a category.
func ParseControlInfo(body map[string]any) ControlInfo {
	src := body
	if nested, ok := body["controlinfo"].(map[string]any); ok {
		src = nested
	}

	ci := ControlInfo{}
	for category, raw := range src {
		list, ok := raw.([]any)
		if !ok {
			continue
		}
		var devices []DeviceInfo
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			uid := stringValue(m["uid"])
			if uid == "" {
				continue
			}
			devices = append(devices, DeviceInfo{
				UID:     uid,
				UName:   stringValue(m["uname"]),
				Dimming: stringValue(m["dimming"]),
			})
		}
		if len(devices) > 0 {
			ci[category] = devices
		}
	}
	return ci
}

// Item is one device entry of a query or invoke payload: device, uid and
// the category-specific arg1..argN fields, all as strings.
type Item map[string]string

// Device returns the item's category.
func (it Item) Device() string { return it["device"] }

// UID returns the item's device uid.
func (it Item) UID() string { return it["uid"] }

// Key returns the device-state key "<device>_<uid>".
func (it Item) Key() string { return StateKey(it.Device(), it.UID()) }

// Arg returns argN, or "" when absent.
func (it Item) Arg(n int) string { return it["arg"+strconv.Itoa(n)] }

// On reports whether arg1 is "on".
func (it Item) On() bool { return it.Arg(1) == StateOn }

// Clone returns a copy of the item.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// String renders the item with its args in order
func (it Item) String() string {
	keys := make([]string, 0, len(it))
	for k := range it {
		if k != "device" && k != "uid" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+it[k])
	}
	return fmt.Sprintf("%s{%s}", it.Key(), strings.Join(parts, ", "))
}

// StateKey builds the device-state key for a category and uid.
func StateKey(device, uid string) string {
	return device + "_" + uid
}

// ParseItems reads the "item" list of a device response body. Non-string
// values are formatted as strings.
func ParseItems(body map[string]any) []Item {
	list, ok := body["item"].([]any)
	if !ok {
		return nil
	}

	items := make([]Item, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		it := make(Item, len(m))
		for k, v := range m {
			it[k] = stringValue(v)
		}
		items = append(items, it)
	}
	return items
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
