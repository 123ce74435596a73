package simulator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// Request is one frame received by the simulator
type Request struct {
	Type    uint32
	Subtype uint32
	Pin     string
	Body    map[string]any
}

// reply is the simulator's answer to one request
type reply struct {
	code  int
	body  any
	close bool // close the connection after replying
	drop  bool // close the connection without replying
	delay time.Duration
}

func ok(body any) reply {
	return reply{code: protocol.CodeSuccess, body: body}
}

func fail(code int) reply {
	return reply{code: code, body: map[string]any{}}
}

// apartment is the simulated household: credentials, issued pins,
// device states and the test hooks.
type apartment struct {
	mu sync.Mutex

	userID   string
	password string
	catalog  protocol.ControlInfo
	guard    protocol.GuardProfile

	certPins  map[string]bool
	loginPins map[string]bool
	expired   map[string]bool
	pinSeq    int
	nextCert  []string
	nextLogin []string

	devices       map[string]protocol.Item
	guardMode     string
	doorOpen      bool
	elevatorCalls int

	faults   []fault
	requests []Request

	now func() time.Time
}

func newApartment(userID, password string, catalog protocol.ControlInfo, guard protocol.GuardProfile) *apartment {
	a := &apartment{
		userID:    userID,
		password:  password,
		catalog:   catalog.Clone(),
		guard:     guard,
		certPins:  make(map[string]bool),
		loginPins: make(map[string]bool),
		expired:   make(map[string]bool),
		devices:   make(map[string]protocol.Item),
		guardMode: protocol.GuardModeOff,
		now:       time.Now,
	}
	for category, devices := range a.catalog {
		for _, d := range devices {
			a.devices[protocol.StateKey(category, d.UID)] = initialState(category, d)
		}
	}
	return a
}

func initialState(category string, d protocol.DeviceInfo) protocol.Item {
	it := protocol.Item{"device": category, "uid": d.UID, "arg1": protocol.StateOff}
	switch category {
	case protocol.DeviceLight:
		if d.Dimmable() {
			it["arg2"] = "3"
			it["arg3"] = "y"
		}
	case protocol.DeviceHeating:
		it["arg2"] = "22"
		it["arg3"] = "21"
	case protocol.DeviceFan:
		it["arg2"] = "01"
		it["arg3"] = "00"
		it["arg4"] = "0"
	case protocol.DeviceWallsocket:
		it["arg1"] = protocol.StateOn
	}
	return it
}

// handle answers one request
func (a *apartment) handle(req protocol.Frame) reply {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, Request{Type: req.Type, Subtype: req.Subtype, Pin: req.Pin, Body: req.Body})

	var delay time.Duration
	if f, found := a.takeFault(req.Type, req.Subtype); found {
		switch {
		case f.drop:
			return reply{drop: true}
		case f.delay > 0:
			delay = f.delay
		default:
			logging.Debug("Injected fault", zap.Int("code", f.code))
			return fail(f.code)
		}
	}

	r := a.dispatch(req)
	r.delay += delay
	return r
}

func (a *apartment) dispatch(req protocol.Frame) reply {
	if req.Type == protocol.TypeLogin {
		return a.handleLogin(req)
	}

	if r, valid := a.checkSession(req.Pin); !valid {
		return r
	}

	switch req.Type {
	case protocol.TypeDevice:
		return a.handleDevice(req)
	case protocol.TypeGuard:
		return a.handleGuard(req)
	case protocol.TypeElevator:
		if req.Subtype != protocol.SubtypeElevatorReq {
			return fail(protocol.CodeGeneral)
		}
		a.elevatorCalls++
		return ok(map[string]any{})
	case protocol.TypeEnergy:
		return a.handleEnergy(req)
	default:
		return fail(protocol.CodeGeneral)
	}
}

func (a *apartment) checkSession(pin string) (reply, bool) {
	if a.expired[pin] {
		return fail(protocol.CodeSessionExpired), false
	}
	if !a.loginPins[pin] {
		return fail(protocol.CodeInvalidLoginPin), false
	}
	return reply{}, true
}

// issuePin returns the next queued pin or a generated one
func (a *apartment) issuePin(queue *[]string, prefix string) string {
	if len(*queue) > 0 {
		pin := (*queue)[0]
		*queue = (*queue)[1:]
		return pin
	}
	a.pinSeq++
	return fmt.Sprintf("%s%07d", prefix, a.pinSeq)
}

func (a *apartment) credentialsMatch(body map[string]any) bool {
	id, _ := body["id"].(string)
	pw, _ := body["pw"].(string)
	return id == a.userID && pw == a.password
}

func (a *apartment) handleLogin(req protocol.Frame) reply {
	switch req.Subtype {
	case protocol.SubtypeCertPinReq:
		if !a.credentialsMatch(req.Body) {
			r := fail(protocol.CodeInvalidCredentials)
			r.close = true
			return r
		}
		pin := a.issuePin(&a.nextCert, "C")
		a.certPins[pin] = true
		return ok(map[string]any{"certpin": pin})

	case protocol.SubtypeLoginPinReq:
		certPin, _ := req.Body["certpin"].(string)
		if !a.certPins[req.Pin] || certPin != req.Pin {
			r := fail(protocol.CodeInvalidLoginPin)
			r.close = true
			return r
		}
		if !a.credentialsMatch(req.Body) {
			r := fail(protocol.CodeInvalidCredentials)
			r.close = true
			return r
		}
		pin := a.issuePin(&a.nextLogin, "L")
		a.loginPins[pin] = true
		return ok(map[string]any{"loginpin": pin})

	case protocol.SubtypeMenuReq:
		if r, valid := a.checkSession(req.Pin); !valid {
			r.close = true
			return r
		}
		return ok(map[string]any{"controlinfo": a.catalog})

	default:
		return fail(protocol.CodeGeneral)
	}
}

func (a *apartment) handleDevice(req protocol.Frame) reply {
	switch req.Subtype {
	case protocol.SubtypeDeviceQueryReq:
		return a.queryDevices(protocol.ParseItems(req.Body))
	case protocol.SubtypeDeviceInvokeReq:
		return a.invokeDevices(protocol.ParseItems(req.Body))
	default:
		return fail(protocol.CodeGeneral)
	}
}

func isAll(uid string) bool {
	return strings.EqualFold(uid, "all")
}

func (a *apartment) itemsFor(category string) []protocol.Item {
	out := make([]protocol.Item, 0, len(a.catalog[category]))
	for _, d := range a.catalog[category] {
		out = append(out, a.devices[protocol.StateKey(category, d.UID)].Clone())
	}
	return out
}

func (a *apartment) queryDevices(wanted []protocol.Item) reply {
	if len(wanted) == 0 {
		return fail(protocol.CodeGeneral)
	}

	items := make([]protocol.Item, 0)
	for _, w := range wanted {
		if isAll(w.UID()) {
			items = append(items, a.itemsFor(w.Device())...)
			continue
		}
		it, found := a.devices[w.Key()]
		if !found {
			return fail(protocol.CodeNotFound)
		}
		items = append(items, it.Clone())
	}
	return ok(map[string]any{"type": "query", "item": items})
}

func (a *apartment) invokeDevices(commands []protocol.Item) reply {
	if len(commands) == 0 {
		return fail(protocol.CodeGeneral)
	}

	items := make([]protocol.Item, 0)
	for _, cmd := range commands {
		state := cmd.Arg(1)
		if state != protocol.StateOn && state != protocol.StateOff {
			return fail(protocol.CodeDeviceControl)
		}

		if cmd.Device() == protocol.DeviceAll {
			for _, category := range protocol.Categories {
				for _, d := range a.catalog[category] {
					it := a.devices[protocol.StateKey(category, d.UID)]
					it["arg1"] = protocol.StateOff
					items = append(items, it.Clone())
				}
			}
			continue
		}

		if cmd.Device() == protocol.DeviceGas && state == protocol.StateOn {
			return fail(protocol.CodeDeviceControl)
		}

		var targets []string
		if isAll(cmd.UID()) {
			for _, d := range a.catalog[cmd.Device()] {
				targets = append(targets, d.UID)
			}
		} else {
			targets = []string{cmd.UID()}
		}
		if len(targets) == 0 {
			return fail(protocol.CodeNotFound)
		}

		for _, uid := range targets {
			key := protocol.StateKey(cmd.Device(), uid)
			it, found := a.devices[key]
			if !found {
				return fail(protocol.CodeNotFound)
			}
			a.apply(cmd, it, uid)
			items = append(items, it.Clone())
		}
	}
	return ok(map[string]any{"type": "invoke", "item": items})
}

// apply copies the command's args into the device state
func (a *apartment) apply(cmd, it protocol.Item, uid string) {
	device := cmd.Device()
	info, _ := a.catalog.Find(device, uid)

	for k, v := range cmd {
		if !strings.HasPrefix(k, "arg") {
			continue
		}
		switch {
		case device == protocol.DeviceLight && k != "arg1" && !info.Dimmable():
			continue
		case device == protocol.DeviceHeating && k == "arg3":
			continue // current temperature
		case device == protocol.DeviceFan && k == "arg4":
			continue // running time
		}
		it[k] = v
	}
}

func (a *apartment) handleGuard(req protocol.Frame) reply {
	switch req.Subtype {
	case a.guard.QueryReq:
		return ok(map[string]any{"mode": a.guardMode})

	case a.guard.SetReq:
		mode, _ := req.Body["mode"].(string)
		if mode != protocol.GuardModeOff && mode != protocol.GuardModeAway {
			return fail(protocol.CodeGeneral)
		}
		if mode == protocol.GuardModeAway && a.doorOpen {
			return fail(protocol.CodeGuardBlocked)
		}
		a.guardMode = mode
		return ok(map[string]any{"mode": mode})

	default:
		return fail(protocol.CodeGeneral)
	}
}

// energyBase is the synthetic monthly usage of each energy type
var energyBase = map[string]int{
	protocol.EnergyElec:     250,
	protocol.EnergyGas:      40,
	protocol.EnergyWater:    12,
	protocol.EnergyHotwater: 5,
	protocol.EnergyHeating:  30,
}

func usage(energyType string, year, month int) int {
	return energyBase[energyType] + (year%100)*month%17 + month*3
}

func (a *apartment) handleEnergy(req protocol.Frame) reply {
	now := a.now()

	switch req.Subtype {
	case protocol.SubtypeEnergyNowReq:
		items := make([]map[string]any, 0, len(protocol.EnergyTypes))
		for _, t := range protocol.EnergyTypes {
			items = append(items, map[string]any{
				"type":      t,
				"datavalue": []string{strconv.Itoa(usage(t, now.Year(), int(now.Month())) / 30)},
			})
		}
		return ok(map[string]any{"item": items})

	case protocol.SubtypeEnergyMonthlyReq:
		year, month, valid := parseDate(req.Body, now)
		if !valid {
			return fail(protocol.CodeNotFound)
		}
		items := make([]map[string]any, 0, len(protocol.EnergyTypes))
		for _, t := range protocol.EnergyTypes {
			cur := usage(t, year, month)
			prev := usage(t, year, month-1)
			items = append(items, map[string]any{
				"type": t,
				"datavalue": []string{
					strconv.Itoa(cur),
					strconv.Itoa(prev),
					strconv.Itoa(cur * month),
					strconv.Itoa(energyBase[t] + 7),
				},
			})
		}
		return ok(map[string]any{
			"queryday": fmt.Sprintf("%04d%02d00", year, month),
			"item":     items,
		})

	case protocol.SubtypeEnergyGraphReq:
		t, _ := req.Body["type"].(string)
		gubun, _ := req.Body["gubun"].(string)
		if _, known := energyBase[t]; !known {
			return fail(protocol.CodeNotFound)
		}
		year, month, valid := parseDate(req.Body, now)
		if year == 0 || (!valid && gubun == "month") {
			return fail(protocol.CodeNotFound)
		}

		var values []string
		total := 0
		switch gubun {
		case "year":
			for m := 1; m <= 12; m++ {
				u := usage(t, year, m)
				total += u
				values = append(values, strconv.Itoa(u))
			}
		case "month":
			days := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
			for d := 1; d <= days; d++ {
				u := usage(t, year, month) / days
				total += u
				values = append(values, strconv.Itoa(u))
			}
		default:
			return fail(protocol.CodeGeneral)
		}

		return ok(map[string]any{
			"type":      t,
			"gubun":     gubun,
			"year":      req.Body["year"],
			"month":     req.Body["month"],
			"datavalue": values,
			"rank":      []int{total, total + total/10},
			"total":     []int{145, 1504},
		})

	default:
		return fail(protocol.CodeGeneral)
	}
}

// parseDate reads year and month from the body; month may be empty for
// year graphs
func parseDate(body map[string]any, now time.Time) (int, int, bool) {
	year := now.Year()
	month := int(now.Month())

	if s, _ := body["year"].(string); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, false
		}
		year = y
	}
	if s, _ := body["month"].(string); s != "" {
		m, err := strconv.Atoi(s)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = m
	} else if _, present := body["month"]; present {
		return year, month, false
	}
	return year, month, true
}
