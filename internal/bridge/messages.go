package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/home"
	"github.com/muurk/daelim/internal/protocol"
)

// Operations accepted over the WebSocket
const (
	OpSetLight      = "set_light"
	OpSetLightAll   = "set_light_all"
	OpSetHeating    = "set_heating"
	OpSetGas        = "set_gas"
	OpSetFan        = "set_fan"
	OpSetWallsocket = "set_wallsocket"
	OpAllOff        = "all_off"
	OpSetGuard      = "set_guard"
	OpCallElevator  = "call_elevator"
	OpRefresh       = "refresh"
)

// Request is a command sent by a WebSocket client. ID is echoed back
// verbatim and may be any JSON value.
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Op   string          `json:"op"`
	Args Args            `json:"args"`
}

// Args carries the operation arguments; each operation reads the fields
// it needs
type Args struct {
	UID         string `json:"uid,omitempty"`
	State       string `json:"state,omitempty"`
	Brightness  *int   `json:"brightness,omitempty"`
	Temperature *int   `json:"temperature,omitempty"`
	Speed       string `json:"speed,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Response answers one Request. Error follows the session result codes.
type Response struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Error   int             `json:"error"`
	Message string          `json:"message"`
	Body    map[string]any  `json:"body,omitempty"`
}

// Event is pushed to every client when the snapshot changes
type Event struct {
	Event string        `json:"event"`
	State home.Snapshot `json:"state"`
}

func resultResponse(id json.RawMessage, res client.Result) Response {
	return Response{ID: id, Error: res.Error, Message: res.Message(), Body: res.Body}
}

func errorResponse(id json.RawMessage, err error) Response {
	return Response{ID: id, Error: protocol.CodeLocal, Message: err.Error()}
}

func optional(v *int) int {
	if v == nil {
		return client.Unset
	}
	return *v
}

// switchState normalizes an on/off argument
func switchState(s string) (string, error) {
	switch strings.ToLower(s) {
	case protocol.StateOn, "true", "1":
		return protocol.StateOn, nil
	case protocol.StateOff, "false", "0":
		return protocol.StateOff, nil
	default:
		return "", fmt.Errorf("invalid state %q (want on or off)", s)
	}
}

// guardMode maps away/on/1 and off/0 to the wire guard modes
func guardMode(s string) (string, error) {
	switch strings.ToLower(s) {
	case "away", protocol.StateOn, protocol.GuardModeAway:
		return protocol.GuardModeAway, nil
	case protocol.StateOff, protocol.GuardModeOff:
		return protocol.GuardModeOff, nil
	default:
		return "", fmt.Errorf("invalid guard mode %q (want away or off)", s)
	}
}
