package session

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec turns attribute values into stored bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
}

// JSONCodec is the default codec. Numbers decoded into an untyped
// destination become float64; decode into the original type to round-trip.
type JSONCodec struct{}

// Name returns "json".
func (JSONCodec) Name() string { return "json" }

// Marshal encodes v as JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes JSON data into dst.
func (JSONCodec) Unmarshal(data []byte, dst any) error { return json.Unmarshal(data, dst) }

// GobCodec stores values with encoding/gob. Concrete types held in interface
// values must be registered with gob.Register.
type GobCodec struct{}

// Name returns "gob".
func (GobCodec) Name() string { return "gob" }

// Marshal encodes v with a fresh gob encoder.
func (GobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes gob data into dst.
func (GobCodec) Unmarshal(data []byte, dst any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(dst)
}

// Value is one stored attribute, still encoded.
type Value struct {
	data  []byte
	codec Codec
}

// NewValue wraps encoded data for alternate [Handler] implementations.
func NewValue(data []byte, codec Codec) Value {
	if codec == nil {
		codec = JSONCodec{}
	}
	return Value{data: data, codec: codec}
}

// Bytes returns the encoded form.
func (v Value) Bytes() []byte { return v.data }

// Decode deserializes the value into dst, which must be a pointer.
func (v Value) Decode(dst any) error {
	codec := v.codec
	if codec == nil {
		codec = JSONCodec{}
	}
	if err := codec.Unmarshal(v.data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}
