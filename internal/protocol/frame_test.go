package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
	"testing/iotest"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     uint32
		subtype uint32
		pin     string
		payload map[string]any
	}{
		{
			name:    "cert pin request",
			typ:     TypeLogin,
			subtype: SubtypeCertPinReq,
			pin:     PlaceholderPin,
			payload: map[string]any{"id": "user", "pw": "secret", "UUID": "ABCDEF"},
		},
		{
			name:    "empty menu request",
			typ:     TypeLogin,
			subtype: SubtypeMenuReq,
			pin:     "XYZ98765",
			payload: map[string]any{},
		},
		{
			name:    "batched query",
			typ:     TypeDevice,
			subtype: SubtypeDeviceQueryReq,
			pin:     "PIN1",
			payload: map[string]any{
				"type": "query",
				"item": []any{
					map[string]any{"device": "light", "uid": "All"},
					map[string]any{"device": "heating", "uid": "All"},
				},
			},
		},
		{
			name:    "korean text and numbers",
			typ:     TypeEnergy,
			subtype: SubtypeEnergyGraphReq,
			pin:     "12345678",
			payload: map[string]any{"uname": "거실", "value": 12.5, "html": "<a&b>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.typ, tt.subtype, tt.pin, tt.payload)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			f := Decode(raw)
			if f.Type != tt.typ {
				t.Errorf("Type = %d, want %d", f.Type, tt.typ)
			}
			if f.Subtype != tt.subtype {
				t.Errorf("Subtype = %d, want %d", f.Subtype, tt.subtype)
			}
			if f.Error != 0 {
				t.Errorf("Error = %d, want 0", f.Error)
			}
			if f.Pin != PadPin(tt.pin)[:len(f.Pin)] {
				t.Errorf("Pin = %q, want prefix of %q", f.Pin, PadPin(tt.pin))
			}
			if f.IsResponse() {
				t.Error("request frame decoded as response")
			}
			if !reflect.DeepEqual(f.Body, tt.payload) {
				t.Errorf("Body = %#v, want %#v", f.Body, tt.payload)
			}
		})
	}
}

func TestEncodeLengthInvariant(t *testing.T) {
	payloads := []any{
		nil,
		map[string]any{},
		map[string]any{"a": "b"},
		map[string]any{"item": []any{map[string]any{"device": "all", "uid": "all", "arg1": "off"}}},
	}

	for i, p := range payloads {
		raw, err := Encode(TypeDevice, SubtypeDeviceInvokeReq, "PIN", p)
		if err != nil {
			t.Fatalf("payload %d: Encode() error = %v", i, err)
		}
		got := binary.BigEndian.Uint32(raw[0:4])
		if int(got) != len(raw)-4 {
			t.Errorf("payload %d: length field = %d, want %d", i, got, len(raw)-4)
		}
		if int(got) != headerAfterLength+len(raw[HeaderSize:]) {
			t.Errorf("payload %d: length field = %d, want %d + json", i, got, headerAfterLength)
		}
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	raw, err := Encode(TypeGuard, 3, "AB", map[string]any{"mode": "1"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if got := string(raw[4:12]); got != "AB      " {
		t.Errorf("pin field = %q, want %q", got, "AB      ")
	}
	if got := binary.BigEndian.Uint32(raw[12:16]); got != TypeGuard {
		t.Errorf("type field = %d, want %d", got, TypeGuard)
	}
	if got := binary.BigEndian.Uint32(raw[16:20]); got != 3 {
		t.Errorf("subtype field = %d, want 3", got)
	}
	if !bytes.Equal(raw[20:24], DirectionRequest[:]) {
		t.Errorf("direction = % x, want % x", raw[20:24], DirectionRequest[:])
	}
	if got := binary.BigEndian.Uint32(raw[24:28]); got != 0 {
		t.Errorf("reserved field = %d, want 0", got)
	}
	if got := string(raw[HeaderSize:]); got != `{"mode":"1"}` {
		t.Errorf("payload = %s, want compact JSON", got)
	}
}

func TestEncodeResponse(t *testing.T) {
	raw, err := EncodeResponse(TypeLogin, SubtypeCertPinRes, PlaceholderPin, CodeInvalidCredentials, map[string]any{})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}

	f := Decode(raw)
	if !f.IsResponse() {
		t.Error("IsResponse() = false, want true")
	}
	if f.Error != CodeInvalidCredentials {
		t.Errorf("Error = %d, want %d", f.Error, CodeInvalidCredentials)
	}
}

func TestEncodeUnmarshalablePayload(t *testing.T) {
	_, err := Encode(TypeDevice, 1, "PIN", map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Error("Encode() error = nil, want error for channel value")
	}
}

func TestPadPin(t *testing.T) {
	tests := []struct {
		pin  string
		want string
	}{
		{"", "        "},
		{"ABC", "ABC     "},
		{"12345678", "12345678"},
		{"123456789ABC", "12345678"},
	}

	for _, tt := range tests {
		if got := PadPin(tt.pin); got != tt.want {
			t.Errorf("PadPin(%q) = %q, want %q", tt.pin, got, tt.want)
		}
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	for n := 0; n < HeaderSize; n++ {
		f := Decode(make([]byte, n))
		if f.Error != CodeLocal {
			t.Errorf("Decode(%d bytes).Error = %d, want %d", n, f.Error, CodeLocal)
		}
		if f.Body == nil || len(f.Body) != 0 {
			t.Errorf("Decode(%d bytes).Body = %v, want empty map", n, f.Body)
		}
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	raw, _ := Encode(TypeDevice, 1, "PIN", map[string]any{})
	raw = append(raw[:HeaderSize], []byte(`{"broken":`)...)

	f := Decode(raw)
	if f.Error != CodeLocal {
		t.Errorf("Error = %d, want %d", f.Error, CodeLocal)
	}
	if len(f.Body) != 0 {
		t.Errorf("Body = %v, want empty", f.Body)
	}
}

func TestDecodeNonObjectJSON(t *testing.T) {
	raw, _ := Encode(TypeDevice, 1, "PIN", map[string]any{})
	raw = append(raw[:HeaderSize], []byte(`[1,2,3]`)...)

	if f := Decode(raw); f.Error != CodeLocal {
		t.Errorf("Error = %d, want %d", f.Error, CodeLocal)
	}
}

func TestDecodeHeaderOnly(t *testing.T) {
	raw, _ := EncodeResponse(TypeLogin, SubtypeMenuRes, "PIN", 0, nil)
	raw = raw[:HeaderSize]

	f := Decode(raw)
	if f.Error != 0 {
		t.Errorf("Error = %d, want 0", f.Error)
	}
	if f.Body == nil {
		t.Error("Body = nil, want empty map")
	}
}

func TestReadFrame(t *testing.T) {
	first, _ := Encode(TypeDevice, SubtypeDeviceQueryReq, "PIN", map[string]any{"type": "query"})
	second, _ := Encode(TypeGuard, 1, "PIN", map[string]any{})

	t.Run("one byte at a time", func(t *testing.T) {
		r := iotest.OneByteReader(bytes.NewReader(first))
		got, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("ReadFrame() error = %v", err)
		}
		if !bytes.Equal(got, first) {
			t.Errorf("ReadFrame() = % x, want % x", got, first)
		}
	})

	t.Run("back to back frames", func(t *testing.T) {
		r := bytes.NewReader(append(append([]byte{}, first...), second...))
		a, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("first ReadFrame() error = %v", err)
		}
		b, err := ReadFrame(r)
		if err != nil {
			t.Fatalf("second ReadFrame() error = %v", err)
		}
		if !bytes.Equal(a, first) || !bytes.Equal(b, second) {
			t.Error("frames not split at declared lengths")
		}
	})

	t.Run("truncated body", func(t *testing.T) {
		_, err := ReadFrame(bytes.NewReader(first[:len(first)-3]))
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("ReadFrame() error = %v, want ErrUnexpectedEOF", err)
		}
	})

	t.Run("truncated length", func(t *testing.T) {
		_, err := ReadFrame(bytes.NewReader(first[:2]))
		if err == nil {
			t.Error("ReadFrame() error = nil, want error")
		}
	})

	t.Run("length below header", func(t *testing.T) {
		bad := []byte{0, 0, 0, 5, 1, 2, 3, 4, 5}
		_, err := ReadFrame(bytes.NewReader(bad))
		if !errors.Is(err, ErrInvalidLength) {
			t.Errorf("ReadFrame() error = %v, want ErrInvalidLength", err)
		}
	})

	t.Run("length too large", func(t *testing.T) {
		bad := []byte{0x7f, 0xff, 0xff, 0xff}
		_, err := ReadFrame(bytes.NewReader(bad))
		if !errors.Is(err, ErrFrameTooLarge) {
			t.Errorf("ReadFrame() error = %v, want ErrFrameTooLarge", err)
		}
	})
}

func TestWriteFrame(t *testing.T) {
	raw, _ := Encode(TypeElevator, SubtypeElevatorReq, "PIN", nil)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, raw); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), raw) {
		t.Error("WriteFrame() wrote different bytes")
	}
}
