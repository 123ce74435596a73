// Package client implements a session with a Daelim apartment server.
//
// A Client owns one TCP connection and the authentication state that goes
// with it. The wire protocol has no request ids, so every request is
// written and its single response read while holding one lock; callers may
// share a Client freely but only one request is ever in flight.
//
// # Session States
//
//   - Disconnected: no connection; operations return CodeLocal immediately
//   - Connected: a connection is open but no login pin has been accepted
//   - Authenticated: the active login pin was accepted by a Menu request
//
// Any transport failure (write error, read timeout, short frame, bad
// JSON) closes the connection and returns to Disconnected. There is no
// resynchronisation within a stream.
//
// # Login
//
// Login tries three tiers in order, reconnecting between tiers:
//
//  1. the saved login pin, checked with a Menu request
//  2. the saved cert pin, exchanged for a new login pin
//  3. CertPin, LoginPin and Menu with the user id and password
//
// A tier refused by the server forgets the saved pin it used. After a
// successful login SavedCertPin and SavedLoginPin return the pins to
// persist for the next run.
//
// # Results
//
// Operations return a Result rather than an error. Error is 0 on success,
// -1 (protocol.CodeLocal) when the request never completed, and a server
// code otherwise. Codes 17 and 3 trigger one automatic re-login and
// retry when credentials are known.
//
// # Usage Example
//
//	c := client.New("10.0.0.5", protocol.DefaultPort)
//	c.SetSavedPins(savedCert, savedLogin)
//
//	if res := c.Login(ctx, "user", "secret", ""); !res.OK() {
//	    log.Fatalf("login: %v", res.Err())
//	}
//	defer c.Disconnect()
//
//	c.QueryAllDevices(ctx)
//	for key, item := range c.DeviceStates() {
//	    fmt.Println(key, item.Arg(1))
//	}
//
//	c.SetLight(ctx, "012611", protocol.StateOn, 200)
package client
