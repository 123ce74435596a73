package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
	"github.com/muurk/daelim/internal/ui"
)

// Home is the part of *home.Home the dashboard drives
type Home interface {
	Snapshot() home.Snapshot
	Subscribe() (<-chan home.Snapshot, func())
	Refresh(ctx context.Context) (home.Snapshot, error)

	SetLight(ctx context.Context, uid, state string, brightness int) (client.Result, error)
	SetHeating(ctx context.Context, uid, state string, temperature int) (client.Result, error)
	SetGas(ctx context.Context, uid, state string) (client.Result, error)
	SetFan(ctx context.Context, uid, state, speed, mode string) (client.Result, error)
	SetWallsocket(ctx context.Context, uid, state string) (client.Result, error)
	AllOff(ctx context.Context) (client.Result, error)
	SetGuardMode(ctx context.Context, mode, code string) (client.Result, error)
	CallElevator(ctx context.Context) (client.Result, error)
}

const (
	// commandTimeout bounds one dashboard action including its wait in
	// the home queue
	commandTimeout = 40 * time.Second

	brightnessStep = 32
	minBrightness  = 1
	maxBrightness  = 255
)

// Messages for async operations
type snapshotMsg home.Snapshot
type subscriptionClosedMsg struct{}
type commandDoneMsg struct {
	action string
	res    client.Result
	err    error
}

// Model is the dashboard screen
type Model struct {
	home        Home
	updates     <-chan home.Snapshot
	unsubscribe func()

	snapshot home.Snapshot
	devices  list.Model
	spinner  spinner.Model
	code     textinput.Model
	help     help.Model
	keys     keyMap
	codeKeys codeKeyMap

	busy         bool
	enteringCode bool
	confirmOff   bool
	status       string
	err          error

	Width  int
	Height int
}

// New creates a dashboard over h and subscribes to its snapshots. Call
// Close when the program exits.
func New(h Home) Model {
	updates, unsubscribe := h.Subscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	code := textinput.New()
	code.Placeholder = "guard code (optional)"
	code.EchoMode = textinput.EchoPassword
	code.CharLimit = 8

	l := list.New(nil, list.NewDefaultDelegate(), defaultWidth-4, defaultHeight-10)
	l.Title = "Devices"
	l.Styles.Title = TitleStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	m := Model{
		home:        h,
		updates:     updates,
		unsubscribe: unsubscribe,
		devices:     l,
		spinner:     s,
		code:        code,
		help:        help.New(),
		keys:        newKeyMap(),
		codeKeys:    newCodeKeyMap(),
		busy:        true,
		status:      "Connecting...",
	}
	m.setSnapshot(h.Snapshot())
	return m
}

// Close stops the snapshot subscription
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run shows the dashboard until the user quits
func Run(h Home) error {
	m := New(h)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot(), m.refreshCmd())
}

func (m Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) refreshCmd() tea.Cmd {
	h := m.home
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		_, err := h.Refresh(ctx)
		return commandDoneMsg{action: "Refresh", err: err}
	}
}

// run executes one home operation off the UI goroutine
func (m Model) run(action string, op func(ctx context.Context) (client.Result, error)) (Model, tea.Cmd) {
	m.busy = true
	m.status = action + "..."
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := op(ctx)
		return commandDoneMsg{action: action, res: res, err: err}
	})
}

func (m *Model) setSnapshot(snap home.Snapshot) {
	m.snapshot = snap
	m.devices.SetItems(toItems(snap.Devices))
}

func (m Model) selected() (home.DeviceState, bool) {
	item, ok := m.devices.SelectedItem().(deviceItem)
	if !ok {
		return home.DeviceState{}, false
	}
	return item.state, true
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.help.Width = msg.Width - 6
		m.devices.SetSize(msg.Width-6, msg.Height-12)
		return m, nil

	case snapshotMsg:
		m.setSnapshot(home.Snapshot(msg))
		return m, m.waitForSnapshot()

	case subscriptionClosedMsg:
		return m, nil

	case commandDoneMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.status = msg.action + " failed"
		case !msg.res.OK():
			m.err = msg.res.Err()
			m.status = msg.action + " failed"
		default:
			m.err = nil
			m.status = msg.action + " done"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.enteringCode {
			return m.updateCode(msg)
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) updateCode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.codeKeys.Cancel):
		m.enteringCode = false
		m.code.Blur()
		m.code.SetValue("")
		m.status = "Guard change cancelled"
		return m, nil

	case key.Matches(msg, m.codeKeys.Confirm):
		m.enteringCode = false
		m.code.Blur()
		code := m.code.Value()
		m.code.SetValue("")

		mode := protocol.GuardModeAway
		if m.snapshot.GuardMode == protocol.GuardModeAway {
			mode = protocol.GuardModeOff
		}
		h := m.home
		return m.run("Guard "+ui.GuardLabel(mode), func(ctx context.Context) (client.Result, error) {
			return h.SetGuardMode(ctx, mode, code)
		})
	}

	var cmd tea.Cmd
	m.code, cmd = m.code.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	confirming := m.confirmOff
	m.confirmOff = false

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		m.status = "Refresh..."
		return m, tea.Batch(m.spinner.Tick, m.refreshCmd())

	case key.Matches(msg, m.keys.AllOff):
		if !confirming {
			m.confirmOff = true
			m.status = "Press O again to switch every device off"
			return m, nil
		}
		h := m.home
		return m.run("All off", h.AllOff)

	case key.Matches(msg, m.keys.Elevator):
		h := m.home
		return m.run("Elevator call", h.CallElevator)

	case key.Matches(msg, m.keys.Guard):
		m.enteringCode = true
		m.status = ""
		cmd := m.code.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Toggle):
		if d, ok := m.selected(); ok {
			return m.toggle(d)
		}
		return m, nil

	case key.Matches(msg, m.keys.Increase):
		if d, ok := m.selected(); ok {
			return m.adjust(d, 1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Decrease):
		if d, ok := m.selected(); ok {
			return m.adjust(d, -1)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.devices, cmd = m.devices.Update(msg)
	return m, cmd
}

func stateFor(on bool) string {
	if on {
		return protocol.StateOn
	}
	return protocol.StateOff
}

// toggle flips a device on or off
func (m Model) toggle(d home.DeviceState) (tea.Model, tea.Cmd) {
	h := m.home
	state := stateFor(!d.On)
	action := fmt.Sprintf("%s %s", d.Name, state)

	switch d.Category {
	case protocol.DeviceLight:
		return m.run(action, func(ctx context.Context) (client.Result, error) {
			return h.SetLight(ctx, d.UID, state, client.Unset)
		})
	case protocol.DeviceHeating:
		return m.run(action, func(ctx context.Context) (client.Result, error) {
			return h.SetHeating(ctx, d.UID, state, client.Unset)
		})
	case protocol.DeviceGas:
		if !d.On {
			m.status = "Gas valves can only be closed remotely"
			return m, nil
		}
		return m.run(action, func(ctx context.Context) (client.Result, error) {
			return h.SetGas(ctx, d.UID, protocol.StateOff)
		})
	case protocol.DeviceFan:
		return m.run(action, func(ctx context.Context) (client.Result, error) {
			return h.SetFan(ctx, d.UID, state, "", "")
		})
	case protocol.DeviceWallsocket:
		return m.run(action, func(ctx context.Context) (client.Result, error) {
			return h.SetWallsocket(ctx, d.UID, state)
		})
	}

	m.status = "No control for " + d.Category
	return m, nil
}

// adjust steps a dimmable light's brightness or a heating zone's target
func (m Model) adjust(d home.DeviceState, dir int) (tea.Model, tea.Cmd) {
	h := m.home

	switch {
	case d.Category == protocol.DeviceLight && d.Dimmable:
		b := d.Brightness + dir*brightnessStep
		b = max(minBrightness, min(maxBrightness, b))
		return m.run(fmt.Sprintf("%s brightness %d", d.Name, b), func(ctx context.Context) (client.Result, error) {
			return h.SetLight(ctx, d.UID, protocol.StateOn, b)
		})

	case d.Category == protocol.DeviceHeating:
		t := d.TargetTemp + dir
		return m.run(fmt.Sprintf("%s %d°C", d.Name, t), func(ctx context.Context) (client.Result, error) {
			return h.SetHeating(ctx, d.UID, protocol.StateOn, t)
		})
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderSummary())
	b.WriteString("\n\n")
	b.WriteString(m.devices.View())
	b.WriteString("\n")
	if energy := m.renderEnergy(); energy != "" {
		b.WriteString("\n")
		b.WriteString(energy)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())

	var footer string
	if m.enteringCode {
		footer = m.help.View(m.codeKeys)
	} else {
		footer = m.help.View(m.keys)
	}
	return renderContainer(b.String(), footer, m.Width, m.Height)
}

func (m Model) renderSummary() string {
	snap := m.snapshot

	conn := ui.OffStyle.Render(ui.OffMarker + " offline")
	if snap.Available {
		conn = ui.OnStyle.Render(ui.OnMarker + " online")
	}

	parts := []string{conn, "Guard: " + ui.GuardLabel(snap.GuardMode)}
	if !snap.UpdatedAt.IsZero() {
		parts = append(parts, SubtleStyle.Render("updated "+snap.UpdatedAt.Format("15:04:05")))
	}
	return " " + strings.Join(parts, "  •  ")
}

func (m Model) renderEnergy() string {
	if len(m.snapshot.Energy) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.snapshot.Energy))
	for _, u := range m.snapshot.Energy {
		parts = append(parts, fmt.Sprintf("%s %g", u.Type, u.Current))
	}
	return SubtleStyle.Render(" This month: " + strings.Join(parts, "  "))
}

func (m Model) renderStatus() string {
	switch {
	case m.enteringCode:
		return StatusStyle.Render("Guard code: ") + m.code.View()
	case m.busy:
		return StatusStyle.Render(m.spinner.View() + " " + m.status)
	case m.err != nil:
		line := ErrorStyle.Render(fmt.Sprintf("%s: %v", m.status, m.err))
		if hints := client.Hint(m.err); len(hints) > 0 {
			line += "\n" + SubtleStyle.Render("  "+hints[0])
		}
		return line
	case m.confirmOff:
		return WarningStyle.Render(m.status)
	default:
		return StatusStyle.Render(m.status)
	}
}
