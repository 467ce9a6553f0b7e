package memo

import (
	"bytes"

	json "github.com/goccy/go-json"
)

// Codec defines how computed values are encoded into the store and decoded
// back out.
//
// Empty reports whether an encoded payload represents "no cacheable result".
// Such results are returned to the caller but never stored. A nil Empty uses the
// JSON rule: an empty payload, null, or the empty string.
type Codec[T any] struct {
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
	Empty  func([]byte) bool
}

// JSONCodec encodes values as JSON.
func JSONCodec[T any]() Codec[T] {
	return Codec[T]{
		Encode: func(v T) ([]byte, error) { return json.Marshal(v) },
		Decode: func(b []byte) (T, error) {
			var out T
			err := json.Unmarshal(b, &out)
			return out, err
		},
	}
}

// BytesCodec stores raw bytes; only a zero-length result is empty.
func BytesCodec() Codec[[]byte] {
	return Codec[[]byte]{
		Encode: func(v []byte) ([]byte, error) { return v, nil },
		Decode: func(b []byte) ([]byte, error) { return cloneBytes(b), nil },
		Empty:  rawEmpty,
	}
}

// StringCodec stores strings as UTF-8 bytes; only "" is empty.
func StringCodec() Codec[string] {
	return Codec[string]{
		Encode: func(v string) ([]byte, error) { return []byte(v), nil },
		Decode: func(b []byte) (string, error) { return string(b), nil },
		Empty:  rawEmpty,
	}
}

func (c Codec[T]) empty(payload []byte) bool {
	if c.Empty != nil {
		return c.Empty(payload)
	}
	return jsonEmpty(payload)
}

var (
	jsonNull        = []byte("null")
	jsonEmptyString = []byte(`""`)
)

func jsonEmpty(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) || bytes.Equal(trimmed, jsonEmptyString)
}

func rawEmpty(payload []byte) bool {
	return len(payload) == 0
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	clone := make([]byte, len(value))
	copy(clone, value)
	return clone
}
