package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Frame layout constants
const (
	// HeaderSize is the fixed header length preceding the JSON payload.
	HeaderSize = 28

	// PinSize is the width of the login pin field.
	PinSize = 8

	// lengthFieldSize is the size of the leading length prefix.
	lengthFieldSize = 4

	// headerAfterLength is the part of the header counted by the length field.
	headerAfterLength = HeaderSize - lengthFieldSize

	// MaxFrameSize bounds the declared length accepted by ReadFrame.
	MaxFrameSize = 1 << 20

	// DefaultPort is the apartment server's TCP port.
	DefaultPort = 25301

	// PlaceholderPin is sent as the pin before any pin has been issued.
	PlaceholderPin = "00000000"
)

// Direction markers at offset 20
var (
	DirectionRequest  = [4]byte{0x00, 0x01, 0x00, 0x03}
	DirectionResponse = [4]byte{0x00, 0x03, 0x00, 0x01}
)

// Errors returned by ReadFrame
var (
	ErrInvalidLength = errors.New("invalid frame length")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)

// Frame is a decoded protocol message.
type Frame struct {
	Type      uint32
	Subtype   uint32
	Pin       string
	Direction [4]byte
	// Error is the server error code on responses, 0 on requests and
	// CodeLocal when the buffer could not be decoded.
	Error int
	Body  map[string]any
}

// IsResponse reports whether the frame carries the response marker.
func (f Frame) IsResponse() bool {
	return f.Direction == DirectionResponse
}

// String returns a debug representation of the frame
func (f Frame) String() string {
	return fmt.Sprintf("Frame{type=%s, subtype=%d, error=%d, keys=%d}",
		TypeName(f.Type), f.Subtype, f.Error, len(f.Body))
}

// PadPin fits a pin into the 8-byte pin field: shorter pins are
// right-padded with spaces, longer pins are truncated.
func PadPin(pin string) string {
	if len(pin) >= PinSize {
		return pin[:PinSize]
	}
	return pin + strings.Repeat(" ", PinSize-len(pin))
}

// Encode builds a request frame.
//
//	[0-3]   length of everything after this field (big-endian)
//	[4-11]  pin, ASCII, space padded
//	[12-15] type
//	[16-19] subtype
//	[20-23] 00 01 00 03
//	[24-27] 0
//	[28+]   compact JSON
//
// The only error path is a payload that cannot be marshalled to JSON.
func Encode(frameType, subtype uint32, pin string, payload any) ([]byte, error) {
	return encode(frameType, subtype, pin, DirectionRequest, 0, payload)
}

// EncodeResponse builds a response frame carrying errorCode. Used by the
// simulator.
func EncodeResponse(frameType, subtype uint32, pin string, errorCode uint32, payload any) ([]byte, error) {
	return encode(frameType, subtype, pin, DirectionResponse, errorCode, payload)
}

func encode(frameType, subtype uint32, pin string, direction [4]byte, errorCode uint32, payload any) ([]byte, error) {
	body, err := marshalCompact(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	frame := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(headerAfterLength+len(body)))
	copy(frame[4:12], PadPin(pin))
	binary.BigEndian.PutUint32(frame[12:16], frameType)
	binary.BigEndian.PutUint32(frame[16:20], subtype)
	copy(frame[20:24], direction[:])
	binary.BigEndian.PutUint32(frame[24:28], errorCode)
	copy(frame[HeaderSize:], body)

	return frame, nil
}

// marshalCompact serializes payload without whitespace or HTML escaping.
func marshalCompact(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a complete frame. It never fails: a buffer shorter than
// the header, a payload that is not a JSON object, or any other problem
// yields a frame with Error set to CodeLocal and an empty body.
func Decode(buf []byte) Frame {
	if len(buf) < HeaderSize {
		return localFailure()
	}

	f := Frame{
		Pin:     strings.TrimRight(string(buf[4:12]), " \x00"),
		Type:    binary.BigEndian.Uint32(buf[12:16]),
		Subtype: binary.BigEndian.Uint32(buf[16:20]),
		Error:   int(int32(binary.BigEndian.Uint32(buf[24:28]))),
		Body:    map[string]any{},
	}
	copy(f.Direction[:], buf[20:24])

	payload := bytes.TrimSpace(buf[HeaderSize:])
	if len(payload) == 0 {
		return f
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return localFailure()
	}
	if body != nil {
		f.Body = body
	}
	return f
}

func localFailure() Frame {
	return Frame{Error: CodeLocal, Body: map[string]any{}}
}

// ReadFrame reads one length-prefixed frame: exactly 4 bytes of length,
// then exactly that many bytes. Short reads are accumulated; an early EOF
// or any read error is returned and the stream must be considered lost.
// The returned slice includes the length prefix.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [lengthFieldSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length < headerAfterLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, length)
	}

	frame := make([]byte, lengthFieldSize+int(length))
	copy(frame, prefix[:])
	if _, err := io.ReadFull(r, frame[lengthFieldSize:]); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	return frame, nil
}

// WriteFrame writes an encoded frame in full.
func WriteFrame(w io.Writer, frame []byte) error {
	n, err := w.Write(frame)
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if n != len(frame) {
		return fmt.Errorf("failed to write frame: %w", io.ErrShortWrite)
	}
	return nil
}
