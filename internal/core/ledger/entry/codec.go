package entry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Serialized entries are a two byte big-endian type tag followed by the
// msgpack body.
const headerSize = 2

var (
	ErrShortEntry   = errors.New("serialized entry too short")
	ErrTypeMismatch = errors.New("entry type mismatch")
)

var msgpack = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.Canonical = true
	h.WriteExt = true
	return h
}()

// Encode serializes an entry.
func Encode(e Entry) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s entry: %w", e.Type(), err)
	}
	var body []byte
	if err := codec.NewEncoderBytes(&body, msgpack).Encode(e); err != nil {
		return nil, fmt.Errorf("encode %s entry: %w", e.Type(), err)
	}
	out := make([]byte, headerSize, headerSize+len(body))
	binary.BigEndian.PutUint16(out, uint16(e.Type()))
	return append(out, body...), nil
}

// Decode deserializes data into e, which must be of the serialized type.
func Decode(data []byte, e Entry) error {
	t, err := TypeOf(data)
	if err != nil {
		return err
	}
	if t != e.Type() {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, t, e.Type())
	}
	if err := codec.NewDecoderBytes(data[headerSize:], msgpack).Decode(e); err != nil {
		return fmt.Errorf("decode %s entry: %w", t, err)
	}
	return nil
}

// TypeOf returns the type tag of a serialized entry.
func TypeOf(data []byte) (Type, error) {
	if len(data) < headerSize {
		return 0, ErrShortEntry
	}
	return Type(binary.BigEndian.Uint16(data)), nil
}
