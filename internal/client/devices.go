package client

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// Unset marks an optional numeric control argument as absent.
const Unset = -1

// Light dimming levels understood by the wallpad
const (
	DimLow    = "1"
	DimMedium = "3"
	DimHigh   = "6"
)

// Fan speed and mode codes
const (
	FanSpeedLow    = "01"
	FanSpeedMedium = "02"
	FanSpeedHigh   = "03"
	FanModeNormal  = "00"
	FanModeAuto    = "01"
)

// Args holds optional control arguments keyed by field name ("arg2", "arg3", ...).
type Args map[string]string

type devicePayload struct {
	Type string          `json:"type"`
	Item []protocol.Item `json:"item"`
}

// DimLevel maps a 0-255 brightness to the wallpad's three dimming levels.
func DimLevel(brightness int) string {
	switch {
	case brightness <= 85:
		return DimLow
	case brightness <= 170:
		return DimMedium
	default:
		return DimHigh
	}
}

// BrightnessFromLevel maps a dimming level back to 0-255. Unknown levels
// report full brightness.
func BrightnessFromLevel(level string) int {
	switch level {
	case DimLow:
		return 85
	case DimMedium:
		return 170
	default:
		return 255
	}
}

// QueryDevices queries every device of one category.
func (c *Client) QueryDevices(ctx context.Context, device string) Result {
	payload := devicePayload{
		Type: "query",
		Item: []protocol.Item{{"device": device, "uid": "All"}},
	}
	res := c.sendWithAutoRelogin(ctx, protocol.TypeDevice, protocol.SubtypeDeviceQueryReq, payload, c.QueryTimeout)
	c.recordStates(res)
	return res
}

// QueryAllDevices queries all five categories in one request.
func (c *Client) QueryAllDevices(ctx context.Context) Result {
	items := make([]protocol.Item, 0, len(protocol.Categories))
	for _, device := range protocol.Categories {
		items = append(items, protocol.Item{"device": device, "uid": "All"})
	}
	res := c.sendWithAutoRelogin(ctx, protocol.TypeDevice, protocol.SubtypeDeviceQueryReq,
		devicePayload{Type: "query", Item: items}, c.BatchQueryTimeout)
	c.replaceStates(res)
	return res
}

// ControlDevice sends an invoke for one device with arg1 set to state and
// any extra args. A successful response updates the state cache.
func (c *Client) ControlDevice(ctx context.Context, device, uid, state string, args Args) Result {
	item := protocol.Item{"device": device, "uid": uid, "arg1": state}
	for k, v := range args {
		item[k] = v
	}

	logging.Debug("Controlling device",
		zap.String("device", device),
		zap.String("uid", uid),
		zap.String("item", item.String()))

	res := c.sendWithAutoRelogin(ctx, protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq,
		devicePayload{Type: "invoke", Item: []protocol.Item{item}}, c.ControlTimeout)
	c.recordStates(res)
	return res
}

// SetLight switches a light, or every light with uid "all". brightness is
// 0-255, or Unset to leave it unchanged.
func (c *Client) SetLight(ctx context.Context, uid, state string, brightness int) Result {
	var args Args
	if brightness != Unset {
		args = Args{"arg2": DimLevel(brightness), "arg3": "y"}
	}
	return c.ControlDevice(ctx, protocol.DeviceLight, uid, state, args)
}

// SetHeating switches a heating zone; temperature is the target in °C, or
// Unset.
func (c *Client) SetHeating(ctx context.Context, uid, state string, temperature int) Result {
	var args Args
	if temperature != Unset {
		args = Args{"arg2": strconv.Itoa(temperature)}
	}
	return c.ControlDevice(ctx, protocol.DeviceHeating, uid, state, args)
}

// SetGas switches a gas valve. Servers typically only accept "off".
func (c *Client) SetGas(ctx context.Context, uid, state string) Result {
	return c.ControlDevice(ctx, protocol.DeviceGas, uid, state, nil)
}

// SetFan switches the ventilation fan. Empty speed or mode is omitted.
func (c *Client) SetFan(ctx context.Context, uid, state, speed, mode string) Result {
	args := Args{}
	if speed != "" {
		args["arg2"] = speed
	}
	if mode != "" {
		args["arg3"] = mode
	}
	return c.ControlDevice(ctx, protocol.DeviceFan, uid, state, args)
}

// SetWallsocket switches a standby-power outlet
func (c *Client) SetWallsocket(ctx context.Context, uid, state string) Result {
	return c.ControlDevice(ctx, protocol.DeviceWallsocket, uid, state, nil)
}

// AllOff switches every device off
func (c *Client) AllOff(ctx context.Context) Result {
	payload := devicePayload{
		Type: "invoke",
		Item: []protocol.Item{{"device": protocol.DeviceAll, "uid": "all", "arg1": protocol.StateOff}},
	}
	res := c.sendWithAutoRelogin(ctx, protocol.TypeDevice, protocol.SubtypeDeviceInvokeReq, payload, c.ControlTimeout)
	c.recordStates(res)
	return res
}

// replaceStates rebuilds the state cache from a successful all-category
// query, so devices the server no longer reports drop out.
func (c *Client) replaceStates(res Result) {
	if !res.OK() {
		return
	}
	states := make(map[string]protocol.Item)
	for _, it := range res.Items() {
		if it.Device() == "" || it.UID() == "" {
			continue
		}
		states[it.Key()] = it.Clone()
	}

	c.stateMu.Lock()
	c.states = states
	c.stateMu.Unlock()
}

// recordStates merges the items of a successful device response into the
// state cache.
func (c *Client) recordStates(res Result) {
	if !res.OK() {
		return
	}
	items := res.Items()
	if len(items) == 0 {
		return
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	for _, it := range items {
		if it.Device() == "" || it.UID() == "" {
			continue
		}
		key := it.Key()
		merged := it.Clone()
		if prev, ok := c.states[key]; ok {
			for k, v := range prev {
				if _, set := merged[k]; !set {
					merged[k] = v
				}
			}
		}
		c.states[key] = merged
	}
}
