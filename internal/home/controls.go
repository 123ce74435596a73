package home

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/client"
	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// control runs op on the worker after making sure the session is logged
// in, then applies the returned items to the snapshot
func (h *Home) control(ctx context.Context, name string, op func(ctx context.Context) client.Result) (client.Result, error) {
	return h.do(ctx, name, func(ctx context.Context) client.Result {
		if res := h.ensureConnected(ctx); !res.OK() {
			return res
		}
		res := op(ctx)
		if res.OK() {
			h.applyResult(res)
		}
		return res
	})
}

// applyResult merges the items of a successful control into the snapshot.
// The control needed a logged-in session, so the status fields follow it.
func (h *Home) applyResult(res client.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	loggedIn := h.session.LoggedIn()
	changed := !h.snapshot.Available || h.snapshot.LoggedIn != loggedIn
	h.snapshot.Available = true
	h.snapshot.LoggedIn = loggedIn
	if changed {
		h.snapshot.Error = ""
	}

	if applyItems(h.snapshot.Devices, res.Items()) || changed {
		h.publish()
	}
}

// SetLight switches a light. A transport failure drops the connection,
// logs in again and retries once.
func (h *Home) SetLight(ctx context.Context, uid, state string, brightness int) (client.Result, error) {
	return h.control(ctx, "light", func(ctx context.Context) client.Result {
		res := h.session.SetLight(ctx, uid, state, brightness)
		if res.Error != protocol.CodeLocal {
			return res
		}

		logging.Warn("Light control failed, reconnecting", zap.String("uid", uid))
		h.session.Disconnect()
		if login := h.ensureConnected(ctx); !login.OK() {
			return login
		}
		return h.session.SetLight(ctx, uid, state, brightness)
	})
}

// SetLightAll switches every light
func (h *Home) SetLightAll(ctx context.Context, state string) (client.Result, error) {
	return h.SetLight(ctx, "all", state, client.Unset)
}

// SetHeating switches a heating zone; temperature may be client.Unset
func (h *Home) SetHeating(ctx context.Context, uid, state string, temperature int) (client.Result, error) {
	return h.control(ctx, "heating", func(ctx context.Context) client.Result {
		return h.session.SetHeating(ctx, uid, state, temperature)
	})
}

// SetGas switches a gas valve
func (h *Home) SetGas(ctx context.Context, uid, state string) (client.Result, error) {
	return h.control(ctx, "gas", func(ctx context.Context) client.Result {
		return h.session.SetGas(ctx, uid, state)
	})
}

// SetFan switches the ventilation fan
func (h *Home) SetFan(ctx context.Context, uid, state, speed, mode string) (client.Result, error) {
	return h.control(ctx, "fan", func(ctx context.Context) client.Result {
		return h.session.SetFan(ctx, uid, state, speed, mode)
	})
}

// SetWallsocket switches an outlet
func (h *Home) SetWallsocket(ctx context.Context, uid, state string) (client.Result, error) {
	return h.control(ctx, "wallsocket", func(ctx context.Context) client.Result {
		return h.session.SetWallsocket(ctx, uid, state)
	})
}

// AllOff switches every device off
func (h *Home) AllOff(ctx context.Context) (client.Result, error) {
	return h.control(ctx, "all-off", h.session.AllOff)
}

// SetGuardMode arms or disarms the apartment
func (h *Home) SetGuardMode(ctx context.Context, mode, code string) (client.Result, error) {
	return h.control(ctx, "guard", func(ctx context.Context) client.Result {
		res := h.session.SetGuardMode(ctx, mode, code)
		if res.OK() {
			h.mu.Lock()
			h.snapshot.GuardMode = mode
			h.publish()
			h.mu.Unlock()
		}
		return res
	})
}

// CallElevator calls the elevator
func (h *Home) CallElevator(ctx context.Context) (client.Result, error) {
	return h.control(ctx, "elevator", h.session.CallElevator)
}
