package home

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/protocol"
)

func TestNewCatalog(t *testing.T) {
	ci := protocol.ControlInfo{
		protocol.DeviceWallsocket: {{UID: "013111", UName: ""}},
		protocol.DeviceLight: {
			{UID: "012611", UName: "거실", Dimming: "y"},
			{UID: "012511", UName: ""},
		},
		"doorlock": {{UID: "019911", UName: ""}},
	}

	c := NewCatalog(ci)
	require.Equal(t, 4, c.Len())

	devices := c.Devices()
	assert.Equal(t, protocol.DeviceLight, devices[0].Category, "known categories come first")
	assert.Equal(t, "거실", devices[0].Name)
	assert.True(t, devices[0].Dimmable)
	assert.Equal(t, "조명 2", devices[1].Name)
	assert.Equal(t, "콘센트 1", devices[2].Name)
	assert.Equal(t, "doorlock 1", devices[3].Name)

	d, ok := c.Lookup(protocol.DeviceLight, "012511")
	require.True(t, ok)
	assert.False(t, d.Dimmable)
	_, ok = c.Lookup(protocol.DeviceGas, "012511")
	assert.False(t, ok)

	assert.Len(t, c.Category(protocol.DeviceLight), 2)
}

func TestCatalogStorageRoundTrip(t *testing.T) {
	ci := protocol.ControlInfo{
		protocol.DeviceLight: {{UID: "012511", UName: ""}},
		protocol.DeviceGas:   {{UID: "012711", UName: "주방"}},
	}

	stored := NewCatalog(ci).ForStorage()
	assert.Equal(t, ci, stored, "fallback names are not stored")

	restored, ok := LoadStoredCatalog(stored)
	require.True(t, ok)
	assert.Equal(t, 2, restored.Len())

	_, ok = LoadStoredCatalog(nil)
	assert.False(t, ok)
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Devices())
	assert.Nil(t, c.ForStorage())
	_, ok := c.Lookup(protocol.DeviceLight, "1")
	assert.False(t, ok)
}

func TestApplyItems(t *testing.T) {
	cat := NewCatalog(protocol.ControlInfo{
		protocol.DeviceLight:   {{UID: "1", UName: "Living", Dimming: "y"}},
		protocol.DeviceHeating: {{UID: "2", UName: "Bedroom"}},
	})
	devices := buildDevices(cat, map[string]protocol.Item{
		"heating_2": {"device": "heating", "uid": "2", "arg1": "on", "arg2": "22", "arg3": "20"},
	})

	changed := applyItems(devices, []protocol.Item{
		{"device": "heating", "uid": "2", "arg2": "25"},
		{"device": "light", "uid": "1", "arg1": "on", "arg2": client.DimLow},
		{"device": "light", "uid": "9", "arg1": "on"},
	})
	require.True(t, changed)

	assert.True(t, devices[1].On, "unmentioned args are kept")
	assert.Equal(t, 25, devices[1].TargetTemp)
	assert.Equal(t, 20, devices[1].CurrentTemp)
	assert.True(t, devices[0].On)
	assert.Equal(t, 85, devices[0].Brightness)

	assert.False(t, applyItems(devices, []protocol.Item{{"device": "gas", "uid": "7"}}))
}

func TestParseMonthly(t *testing.T) {
	res := client.Result{Body: map[string]any{
		"queryday": "20250300",
		"item": []any{
			map[string]any{"type": "Elec", "datavalue": []any{"250", "240", "750", 257.0}},
			map[string]any{"type": "Gas", "datavalue": []any{"40"}},
		},
	}}

	day, usage := ParseMonthly(res)
	assert.Equal(t, "20250300", day)
	require.Len(t, usage, 2)
	assert.Equal(t, EnergyUsage{Type: "Elec", Current: 250, Previous: 240, Total: 750, Average: 257}, usage[0])
	assert.Equal(t, 40.0, usage[1].Current)
	assert.Zero(t, usage[1].Average)

	_, usage = ParseMonthly(client.Result{Error: protocol.CodeLocal})
	assert.Nil(t, usage)
}

func TestParseYearly(t *testing.T) {
	res := client.Result{Body: map[string]any{
		"type":      "Water",
		"gubun":     "year",
		"year":      "2024",
		"datavalue": []any{"10", "12", "11"},
		"rank":      []any{33.0, 36.0},
		"total":     []any{145.0, 1504.0},
	}}

	y := ParseYearly(res)
	require.NotNil(t, y)
	assert.Equal(t, "Water", y.Type)
	assert.Equal(t, "2024", y.Year)
	assert.Equal(t, []float64{10, 12, 11}, y.Months)
	assert.Equal(t, 33.0, y.Usage)
	assert.Equal(t, 36.0, y.Average)
	assert.Equal(t, 145, y.Position)
	assert.Equal(t, 1504, y.Households)

	assert.Nil(t, ParseYearly(client.Result{Error: protocol.CodeNotFound}))
}
