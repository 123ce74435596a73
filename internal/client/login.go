package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
	"github.com/muurk/daelim/internal/protocol"
)

type credentials struct {
	userID   string
	password string
	uuid     string
}

type certPinRequest struct {
	ID   string `json:"id"`
	PW   string `json:"pw"`
	UUID string `json:"UUID,omitempty"`
}

type loginPinRequest struct {
	ID      string `json:"id"`
	PW      string `json:"pw"`
	CertPin string `json:"certpin"`
}

// loginStrategy is one tier of the login cascade.
type loginStrategy struct {
	name string
	// usable reports whether the tier has what it needs
	usable func(c *Client) bool
	run    func(c *Client, ctx context.Context, creds credentials) Result
	// forget discards the saved pin the tier relied on after the server
	// refused it
	forget func(c *Client)
}

// loginStrategies are tried in order; each tier after a failed one starts
// on a new connection since the server closes the socket on auth failure.
var loginStrategies = []loginStrategy{
	{
		name:   "saved login pin",
		usable: func(c *Client) bool { return c.SavedLoginPin() != "" },
		run:    (*Client).loginWithSavedLoginPin,
		forget: func(c *Client) { c.SetSavedLoginPin("") },
	},
	{
		name:   "saved cert pin",
		usable: func(c *Client) bool { return c.SavedCertPin() != "" },
		run:    (*Client).loginWithSavedCertPin,
		forget: func(c *Client) {
			c.stateMu.Lock()
			c.savedCertPin = ""
			c.stateMu.Unlock()
		},
	},
	{
		name:   "fresh",
		usable: func(*Client) bool { return true },
		run:    (*Client).loginFresh,
		forget: func(*Client) {},
	},
}

// Login authenticates the session, reusing saved pins where possible:
// saved login pin, then saved cert pin, then the full CertPin, LoginPin,
// Menu handshake. The credentials are kept for automatic re-login.
//
// On success the result body is the device catalog and both pins are
// available from SavedCertPin and SavedLoginPin. On failure the result
// carries the code of the last tier that ran.
func (c *Client) Login(ctx context.Context, userID, password, uuid string) Result {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	c.stateMu.Lock()
	c.userID = userID
	c.password = password
	if uuid != "" {
		c.uuid = uuid
	}
	creds := c.credentials()
	c.stateMu.Unlock()

	return c.login(ctx, creds)
}

// login runs the cascade. loginMu must be held.
func (c *Client) login(ctx context.Context, creds credentials) Result {
	last := localResult()
	attempted := false

	for _, s := range loginStrategies {
		if !s.usable(c) {
			continue
		}
		if attempted {
			c.Disconnect()
		}
		if !c.Connect(ctx) {
			return localResult()
		}
		attempted = true

		c.stateMu.Lock()
		c.state = c.state.unauthenticated()
		c.stateMu.Unlock()

		logging.Info("Attempting login", zap.String("tier", s.name), zap.String("addr", c.Addr()))
		res := s.run(c, ctx, creds)
		if res.OK() {
			logging.Info("Login successful",
				zap.String("tier", s.name),
				zap.Int("devices", c.ControlInfo().Count()))
			return res
		}

		logging.Warn("Login tier failed",
			zap.String("tier", s.name),
			zap.Int("code", res.Error),
			zap.String("message", res.Message()))
		if res.Error != protocol.CodeLocal {
			s.forget(c)
		}
		last = res

		if ctx.Err() != nil {
			break
		}
	}

	c.setLastErr(&SessionError{
		Kind:    KindAuth,
		Message: "login failed: " + last.Message(),
		Host:    c.Addr(),
		Err:     last.Err(),
	})
	c.Disconnect()
	return last
}

func (c *Client) setLoginPin(pin string) {
	c.stateMu.Lock()
	c.loginPin = pin
	c.stateMu.Unlock()
}

// loginWithSavedLoginPin checks the saved login pin with a Menu request.
func (c *Client) loginWithSavedLoginPin(ctx context.Context, _ credentials) Result {
	c.stateMu.Lock()
	pin := c.savedLoginPin
	certPin := c.savedCertPin
	c.loginPin = pin
	c.stateMu.Unlock()

	return c.requestMenu(ctx, certPin, pin)
}

// loginWithSavedCertPin exchanges the saved cert pin for a new login pin,
// skipping the credential check of the CertPin step.
func (c *Client) loginWithSavedCertPin(ctx context.Context, creds credentials) Result {
	certPin := c.SavedCertPin()
	c.setLoginPin(certPin)

	res := c.requestLoginPin(ctx, creds, certPin)
	if !res.OK() {
		return res
	}
	return c.requestMenu(ctx, certPin, res.Field("loginpin"))
}

// loginFresh runs the full three-step handshake.
func (c *Client) loginFresh(ctx context.Context, creds credentials) Result {
	c.setLoginPin(protocol.PlaceholderPin)

	res := c.sendAndReceive(ctx, protocol.TypeLogin, protocol.SubtypeCertPinReq, certPinRequest{
		ID:   creds.userID,
		PW:   creds.password,
		UUID: creds.uuid,
	}, c.QueryTimeout)
	if !res.OK() {
		return res
	}
	certPin := res.Field("certpin")
	if certPin == "" {
		logging.Error("CertPin response carried no certpin")
		return localResult()
	}
	logging.Debug("Received cert pin", zap.String("certpin", certPin))
	c.setLoginPin(certPin)

	res = c.requestLoginPin(ctx, creds, certPin)
	if !res.OK() {
		return res
	}
	return c.requestMenu(ctx, certPin, res.Field("loginpin"))
}

// requestLoginPin sends LoginPinReq with the cert pin as the active pin.
// The returned result is only OK when it carries a login pin.
func (c *Client) requestLoginPin(ctx context.Context, creds credentials, certPin string) Result {
	res := c.sendAndReceive(ctx, protocol.TypeLogin, protocol.SubtypeLoginPinReq, loginPinRequest{
		ID:      creds.userID,
		PW:      creds.password,
		CertPin: certPin,
	}, c.QueryTimeout)
	if !res.OK() {
		return res
	}
	loginPin := res.Field("loginpin")
	if loginPin == "" {
		logging.Error("LoginPin response carried no loginpin")
		return localResult()
	}
	logging.Debug("Received login pin", zap.String("loginpin", loginPin))
	c.setLoginPin(loginPin)
	return res
}

// requestMenu fetches the device catalog with the active login pin and,
// on success, marks the session authenticated and records both pins.
func (c *Client) requestMenu(ctx context.Context, certPin, loginPin string) Result {
	res := c.sendAndReceive(ctx, protocol.TypeLogin, protocol.SubtypeMenuReq, emptyPayload, c.QueryTimeout)
	if !res.OK() {
		return res
	}

	body := res.Body
	if nested, ok := res.Body["controlinfo"].(map[string]any); ok {
		body = nested
	}
	ci := protocol.ParseControlInfo(res.Body)

	c.stateMu.Lock()
	c.controlInfo = ci
	c.certPin = certPin
	c.loginPin = loginPin
	c.savedCertPin = certPin
	c.savedLoginPin = loginPin
	c.state = c.state.authenticated()
	c.stateMu.Unlock()

	return Result{Error: protocol.CodeSuccess, Body: body}
}
