// Package simulator implements an apartment server that speaks the Daelim
// wire protocol.
//
// It backs the client, home and bridge tests and the daelim-sim command.
// Each connection is served by its own goroutine that reads one request
// frame at a time and writes exactly one response, like the real server.
//
// Login follows the real handshake: CertPin checks the user id and
// password, LoginPin requires the issued cert pin in the header, and Menu
// requires a valid login pin. Any login refusal closes the connection.
//
// Test hooks shape the next responses: FailNext, DropNext and DelayNext
// inject faults per message type; ExpireSessions and InvalidateLoginPins
// age out issued pins; SetDoorOpen blocks arming; Requests returns the
// transcript of every frame received.
package simulator
