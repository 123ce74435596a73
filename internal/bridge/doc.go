// Package bridge exposes a home over local HTTP and WebSocket so other
// processes can read state and send commands without speaking the wire
// protocol.
//
// Endpoints:
//
//	GET  /api/state    current snapshot as JSON
//	POST /api/refresh  queue a refresh (202)
//	GET  /ws           WebSocket command channel
//
// WebSocket clients send {"id", "op", "args"} and receive
// {"id", "error", "message", "body"}, where error is the session result
// code. Every snapshot change is pushed as {"event": "state", "state": ...}.
// The bridge pings each client every pingPeriod and drops clients whose
// pong does not arrive within pongWait.
package bridge
