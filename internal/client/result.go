package client

import (
	"fmt"

	"github.com/muurk/daelim/internal/protocol"
)

// Result is the uniform outcome of every session operation. Error is 0 on
// success, protocol.CodeLocal (-1) on a transport or decode failure, and a
// server code otherwise.
type Result struct {
	Error int            `json:"error"`
	Body  map[string]any `json:"body"`
}

func localResult() Result {
	return Result{Error: protocol.CodeLocal, Body: map[string]any{}}
}

func resultFromFrame(f protocol.Frame) Result {
	body := f.Body
	if body == nil {
		body = map[string]any{}
	}
	return Result{Error: f.Error, Body: body}
}

// OK reports whether the server accepted the request.
func (r Result) OK() bool {
	return r.Error == protocol.CodeSuccess
}

// Message returns the server's wording for the result code.
func (r Result) Message() string {
	return protocol.Message(r.Error)
}

// Err converts a failed result to a *ServerError, or nil on success.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ServerError{Code: r.Error, Message: r.Message()}
}

// Items returns the device items carried in the body.
func (r Result) Items() []protocol.Item {
	return protocol.ParseItems(r.Body)
}

// Field returns a top-level body field as a string.
func (r Result) Field(key string) string {
	v, ok := r.Body[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
