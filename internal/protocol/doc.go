// Package protocol implements the frame codec of the Daelim apartment
// smart-home protocol.
//
// Every message on the TCP connection is a 28-byte binary header followed
// by a compact JSON object:
//
//	Offset  Size  Field
//	0       4     Length (big-endian), bytes after this field
//	4       8     LoginPin, ASCII, space padded or truncated
//	12      4     Type (1 login, 2 guard, 3 device, 4 energy, 5 info, 7 setting, 8 elevator)
//	16      4     Subtype
//	20      4     Direction, 00 01 00 03 request / 00 03 00 01 response
//	24      4     Error code (0 on requests)
//	28      n     JSON payload, n = Length - 20
//
// The protocol has no request identifiers. A response belongs to the
// request sent immediately before it on the same connection, so callers
// must never have more than one request in flight.
//
// # Encoding
//
//	frame, err := protocol.Encode(protocol.TypeDevice, protocol.SubtypeDeviceQueryReq,
//	    loginPin, map[string]any{"type": "query", "item": items})
//
// # Decoding
//
// Decode never fails. Buffers shorter than the header, or payloads that
// are not a JSON object, decode to a frame whose Error is CodeLocal (-1)
// and whose Body is empty. Callers branch on the code like any other
// server error.
//
// # Reading from a stream
//
// ReadFrame reads the 4-byte length and then exactly that many bytes,
// accumulating short reads. An incomplete frame cannot be resynchronised,
// so any ReadFrame error means the connection is unusable.
//
// # Error codes
//
// Message returns the server's wording for a code (Korean, verbatim).
// RequiresRelogin reports the codes that mean the session pin expired.
//
// # Guard profiles
//
// Guard-mode subtypes differ between server generations. GuardProfile
// captures one query/set pair; ParseGuardProfile resolves a configured
// name.
package protocol
