package client

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

// emptyPayload encodes as {}
var emptyPayload = struct{}{}

// sendAndReceive writes one request and reads exactly one response frame
// while holding the wire lock. The protocol carries no request ids, so the
// response is matched to the request purely by order.
//
// Any write, read or decode failure drops the connection and yields
// CodeLocal: a partial frame leaves the stream unrecoverable.
func (c *Client) sendAndReceive(ctx context.Context, frameType, subtype uint32, payload any, timeout time.Duration) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateMu.RLock()
	conn := c.conn
	state := c.state
	pin := c.loginPin
	c.stateMu.RUnlock()

	if !state.CanSend() || conn == nil {
		c.setLastErr(&SessionError{Kind: KindNotConnected, Message: "session is not connected", Host: c.Addr()})
		logging.Debug("Request skipped, not connected",
			zap.String("type", protocol.TypeName(frameType)),
			zap.Uint32("subtype", subtype))
		return localResult()
	}

	frame, err := protocol.Encode(frameType, subtype, pin, payload)
	if err != nil {
		c.setLastErr(&SessionError{Kind: KindProtocol, Message: "failed to encode request", Host: c.Addr(), Err: err})
		logging.Error("Failed to encode request",
			zap.String("type", protocol.TypeName(frameType)),
			zap.Uint32("subtype", subtype),
			zap.Error(err))
		return localResult()
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return c.fail(conn, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	logging.LogFrame("send", frameType, subtype, 0, frame)
	if err := protocol.WriteFrame(conn, frame); err != nil {
		return c.fail(conn, err)
	}

	raw, err := protocol.ReadFrame(conn)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return c.fail(conn, err)
	}

	resp := protocol.Decode(raw)
	logging.LogFrame("recv", resp.Type, resp.Subtype, resp.Error, raw)
	if resp.Error == protocol.CodeLocal {
		return c.fail(conn, &SessionError{Kind: KindProtocol, Message: "response could not be decoded", Host: c.Addr()})
	}
	_ = conn.SetDeadline(time.Time{})

	if resp.Type != frameType {
		logging.Warn("Response type does not match request",
			zap.String("request", protocol.TypeName(frameType)),
			zap.String("response", protocol.TypeName(resp.Type)))
	}
	if resp.Error != protocol.CodeSuccess {
		logging.Warn("Server returned error",
			zap.String("type", protocol.TypeName(frameType)),
			zap.Uint32("subtype", subtype),
			zap.Int("code", resp.Error),
			zap.String("message", protocol.Message(resp.Error)))
	}
	if protocol.RequiresRelogin(resp.Error) {
		c.stateMu.Lock()
		if c.conn == conn && c.loginPin == pin {
			c.state = c.state.unauthenticated()
		}
		c.stateMu.Unlock()
	}

	return resultFromFrame(resp)
}

// fail records a transport failure and drops conn if it is still the
// session's connection.
func (c *Client) fail(conn net.Conn, err error) Result {
	sessErr := ClassifyNetworkError(err, c.Addr())
	logging.Error("Transport failure, dropping connection",
		zap.String("addr", c.Addr()),
		zap.String("kind", sessErr.Kind.String()),
		zap.Error(err))

	c.stateMu.Lock()
	c.lastErr = sessErr
	if c.conn == conn {
		c.conn = nil
		c.state = c.state.dropped()
	}
	c.stateMu.Unlock()

	_ = conn.Close()
	return localResult()
}

// sendWithAutoRelogin retries once after a fresh login when the server
// rejects the session pin. The saved login pin is discarded first so the
// login cascade cannot reuse it. A second failure is returned unchanged.
func (c *Client) sendWithAutoRelogin(ctx context.Context, frameType, subtype uint32, payload any, timeout time.Duration) Result {
	pinUsed := c.LoginPin()
	res := c.sendAndReceive(ctx, frameType, subtype, payload, timeout)
	if !protocol.RequiresRelogin(res.Error) || !c.hasCredentials() {
		return res
	}

	logging.Info("Session rejected, logging in again",
		zap.Int("code", res.Error),
		zap.String("message", res.Message()))

	c.loginMu.Lock()
	if c.LoggedIn() && c.LoginPin() != pinUsed {
		// another caller already re-authenticated
		c.loginMu.Unlock()
		return c.sendAndReceive(ctx, frameType, subtype, payload, timeout)
	}

	c.Disconnect()
	c.stateMu.Lock()
	c.savedLoginPin = ""
	creds := c.credentials()
	c.stateMu.Unlock()

	login := c.login(ctx, creds)
	c.loginMu.Unlock()

	if !login.OK() {
		logging.Error("Re-login failed", zap.Int("code", login.Error))
		return login
	}

	logging.Info("Re-login successful, retrying request")
	return c.sendAndReceive(ctx, frameType, subtype, payload, timeout)
}

// relogin runs the login cascade with the stored credentials.
func (c *Client) relogin(ctx context.Context) Result {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	c.stateMu.RLock()
	creds := c.credentials()
	c.stateMu.RUnlock()
	return c.login(ctx, creds)
}
