package client

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

type guardSetRequest struct {
	Mode string `json:"mode"`
	Pwd  string `json:"pwd,omitempty"`
}

func (c *Client) guardProfile() protocol.GuardProfile {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.GuardProfile
}

// QueryGuardMode returns the current guard mode in the "mode" body field.
func (c *Client) QueryGuardMode(ctx context.Context) Result {
	p := c.guardProfile()
	return c.sendWithAutoRelogin(ctx, protocol.TypeGuard, p.QueryReq, emptyPayload, c.GuardTimeout)
}

// SetGuardMode arms (protocol.GuardModeAway) or disarms
// (protocol.GuardModeOff) the apartment. code is the optional security
// code. A transport failure gets one extra retry after GuardRetryDelay,
// logging in again first if the connection was lost.
func (c *Client) SetGuardMode(ctx context.Context, mode, code string) Result {
	p := c.guardProfile()
	payload := guardSetRequest{Mode: mode, Pwd: code}

	res := c.sendWithAutoRelogin(ctx, protocol.TypeGuard, p.SetReq, payload, c.GuardTimeout)
	if res.Error != protocol.CodeLocal {
		return res
	}

	logging.Warn("Guard mode set failed, retrying",
		zap.String("mode", mode),
		zap.Duration("delay", c.GuardRetryDelay))

	timer := time.NewTimer(c.GuardRetryDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return res
	case <-timer.C:
	}

	if !c.LoggedIn() && c.hasCredentials() {
		if login := c.relogin(ctx); !login.OK() {
			return login
		}
	}
	return c.sendWithAutoRelogin(ctx, protocol.TypeGuard, p.SetReq, payload, c.GuardTimeout)
}

// ProbeGuardProfile tries the query subtype of every known guard profile
// and adopts the first one the server answers with a mode. The result of
// the last attempt is returned alongside the profile.
func (c *Client) ProbeGuardProfile(ctx context.Context) (protocol.GuardProfile, Result) {
	res := localResult()
	for _, p := range protocol.GuardProfiles {
		if !c.LoggedIn() && c.hasCredentials() {
			if login := c.relogin(ctx); !login.OK() {
				return protocol.GuardProfile{}, login
			}
		}

		res = c.sendWithAutoRelogin(ctx, protocol.TypeGuard, p.QueryReq, emptyPayload, c.GuardTimeout)
		if res.OK() {
			if _, ok := res.Body["mode"]; ok {
				logging.Info("Guard profile detected", zap.String("profile", p.String()))
				c.stateMu.Lock()
				c.GuardProfile = p
				c.stateMu.Unlock()
				return p, res
			}
		}
		logging.Debug("Guard profile rejected",
			zap.String("profile", p.String()),
			zap.Int("code", res.Error))

		if ctx.Err() != nil {
			break
		}
	}
	return protocol.GuardProfile{}, res
}

// CallElevator calls the elevator to the apartment's floor
func (c *Client) CallElevator(ctx context.Context) Result {
	return c.sendWithAutoRelogin(ctx, protocol.TypeElevator, protocol.SubtypeElevatorReq, emptyPayload, c.QueryTimeout)
}
