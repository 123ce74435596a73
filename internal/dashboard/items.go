package dashboard

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/ui"
)

// deviceItem wraps a DeviceState for use with bubbles/list
type deviceItem struct {
	state home.DeviceState
}

func (d deviceItem) FilterValue() string {
	return d.state.Name + " " + d.state.UID
}

func (d deviceItem) Title() string {
	return fmt.Sprintf("%s  %s", ui.PowerLabel(d.state.On), d.state.Name)
}

func (d deviceItem) Description() string {
	desc := d.state.Category + " " + d.state.UID
	if detail := ui.DeviceDetail(d.state); detail != "" {
		desc += " • " + detail
	}
	return desc
}

func toItems(devices []home.DeviceState) []list.Item {
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{state: d}
	}
	return items
}
