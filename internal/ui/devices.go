package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
)

// DeviceTable lists devices with their state
func DeviceTable(devices []home.DeviceState) *Table {
	t := NewTable("CATEGORY", "UID", "NAME", "STATE", "DETAIL")
	for _, d := range devices {
		t.AddRow(d.Category, d.UID, d.Name, PowerLabel(d.On), DeviceDetail(d))
	}
	t.Style = func(row, col int, _ string) lipgloss.Style {
		if col != 3 {
			return TableCellStyle
		}
		if devices[row].On {
			return OnStyle
		}
		return OffStyle
	}
	return t
}

// PowerLabel renders an on/off marker
func PowerLabel(on bool) string {
	if on {
		return OnMarker + " on"
	}
	return OffMarker + " off"
}

// DeviceDetail summarizes the category-specific state of a device
func DeviceDetail(d home.DeviceState) string {
	switch d.Category {
	case protocol.DeviceLight:
		if d.Dimmable && d.On {
			return fmt.Sprintf("brightness %d", d.Brightness)
		}
	case protocol.DeviceHeating:
		return fmt.Sprintf("%d°C → %d°C", d.CurrentTemp, d.TargetTemp)
	case protocol.DeviceFan:
		if d.FanSpeed != "" || d.FanMode != "" {
			return fmt.Sprintf("speed %s, mode %s", orDash(d.FanSpeed), orDash(d.FanMode))
		}
	}
	return ""
}

// GuardLabel renders a guard mode
func GuardLabel(mode string) string {
	switch mode {
	case protocol.GuardModeAway:
		return "away (armed)"
	case protocol.GuardModeOff:
		return "off"
	case "":
		return "unknown"
	default:
		return mode
	}
}

// EnergyTable lists monthly usage per energy type
func EnergyTable(usage []home.EnergyUsage) *Table {
	t := NewTable("TYPE", "THIS MONTH", "LAST MONTH", "TOTAL", "AVERAGE")
	for _, u := range usage {
		t.AddRow(u.Type, formatNumber(u.Current), formatNumber(u.Previous), formatNumber(u.Total), formatNumber(u.Average))
	}
	return t
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
