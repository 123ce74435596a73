package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
)

func TestTableAlignsWideNames(t *testing.T) {
	table := NewTable("UID", "NAME").
		AddRow("012611", "거실").
		AddRow("012511", "Kitchen")

	lines := strings.Split(table.Render(), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "거실") || !strings.Contains(lines[2], "Kitchen") {
		t.Errorf("rows missing: %q", lines)
	}
}

func TestDeviceTable(t *testing.T) {
	devices := []home.DeviceState{
		{Device: home.Device{Category: protocol.DeviceLight, UID: "012611", Name: "거실", Dimmable: true}, On: true, Brightness: 170},
		{Device: home.Device{Category: protocol.DeviceHeating, UID: "012411", Name: "침실1"}, TargetTemp: 24, CurrentTemp: 21},
	}

	out := DeviceTable(devices).Render()
	for _, want := range []string{"CATEGORY", "brightness 170", "21°C → 24°C", OnMarker + " on", OffMarker + " off"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestDeviceDetail(t *testing.T) {
	tests := []struct {
		name string
		in   home.DeviceState
		want string
	}{
		{"dimmable off", home.DeviceState{Device: home.Device{Category: protocol.DeviceLight, Dimmable: true}}, ""},
		{"plain light", home.DeviceState{Device: home.Device{Category: protocol.DeviceLight}, On: true}, ""},
		{"fan", home.DeviceState{Device: home.Device{Category: protocol.DeviceFan}, FanSpeed: "2"}, "speed 2, mode -"},
		{"gas", home.DeviceState{Device: home.Device{Category: protocol.DeviceGas}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceDetail(tt.in); got != tt.want {
				t.Errorf("DeviceDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardLabel(t *testing.T) {
	if GuardLabel(protocol.GuardModeAway) != "away (armed)" {
		t.Error("away label")
	}
	if GuardLabel("") != "unknown" {
		t.Error("empty label")
	}
}

func TestEnergyTable(t *testing.T) {
	out := EnergyTable([]home.EnergyUsage{{Type: protocol.EnergyElec, Current: 250.5, Previous: 240}}).Render()
	if !strings.Contains(out, "250.5") || !strings.Contains(out, "240") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestYearlyChart(t *testing.T) {
	out := YearlyChart(&home.YearlyEnergy{
		Type: protocol.EnergyWater, Year: "2024",
		Months: []float64{10, 20}, Usage: 30, Average: 36, Position: 145, Households: 1504,
	}, 80)
	if !strings.Contains(out, "2024") || !strings.Contains(out, "rank 145 of 1504") {
		t.Errorf("unexpected chart:\n%s", out)
	}
	if !strings.Contains(YearlyChart(nil, 80), "no data") {
		t.Error("nil chart")
	}
}

func TestResultDetailsAreSorted(t *testing.T) {
	out := NewSuccessResult("Logged in", map[string]string{"b": "2", "a": "1"}).SetWidth(70).Render()
	if strings.Index(out, "a:") > strings.Index(out, "b:") {
		t.Errorf("details not sorted:\n%s", out)
	}

	out = NewFailureResult("Login failed", errors.New("bad password"), []string{"check the password"}).SetWidth(70).Render()
	for _, want := range []string{"FAILED", "bad password", "Troubleshooting", "check the password"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure box missing %q", want)
		}
	}
}

func TestHeader(t *testing.T) {
	out := NewHeader("devices", "daelim devices", map[string]string{"Server": "10.0.0.5:25301"}).SetWidth(70).Render()
	if !strings.Contains(out, "DEVICES") || !strings.Contains(out, "10.0.0.5:25301") {
		t.Errorf("unexpected header:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"Y\n", true},
		{"no\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := Confirm(strings.NewReader(tt.input), &out, "ALL OFF", AllOffWarnings); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "ALL OFF") {
			t.Errorf("warning box not printed")
		}
	}
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out).SetWidth(70)
	p.PrintTable(NewTable("A").AddRow("x"))
	p.PrintWarning("Session expired", nil)
	if !strings.Contains(out.String(), "WARNING") || !strings.Contains(out.String(), "x") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}
