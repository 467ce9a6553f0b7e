package memo

import (
	"bytes"
	"errors"
	"io"

	"github.com/goforj/memo/memocore"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
)

// CompressionCodec represents a value compression algorithm.
type CompressionCodec = memocore.CompressionCodec

const (
	CompressionNone   = memocore.CompressionNone
	CompressionGzip   = memocore.CompressionGzip
	CompressionSnappy = memocore.CompressionSnappy
)

var (
	compressMagic = []byte("CMP1")

	ErrValueTooLarge      = errors.New("memo: value exceeds max size")
	ErrUnsupportedCodec   = errors.New("memo: unsupported compression codec")
	ErrCorruptCompression = errors.New("memo: corrupt compressed payload")
)

const (
	codecTagGzip   = 'g'
	codecTagSnappy = 's'
)

// encodeValue frames value as magic, codec tag, compressed body. Uncompressed
// values pass through unframed so readers can tell the two apart.
func encodeValue(codec CompressionCodec, max int, value []byte) ([]byte, error) {
	if max > 0 && len(value) > max {
		return nil, ErrValueTooLarge
	}
	var out []byte
	switch codec {
	case CompressionNone, "":
		return value, nil
	case CompressionGzip:
		var buf bytes.Buffer
		buf.Write(compressMagic)
		_ = buf.WriteByte(codecTagGzip)
		zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(value); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		out = buf.Bytes()
	case CompressionSnappy:
		out = make([]byte, 0, len(compressMagic)+1+s2.MaxEncodedLen(len(value)))
		out = append(out, compressMagic...)
		out = append(out, codecTagSnappy)
		out = append(out, s2.EncodeSnappy(nil, value)...)
	default:
		return nil, ErrUnsupportedCodec
	}
	if max > 0 && len(out) > max {
		return nil, ErrValueTooLarge
	}
	return out, nil
}

func decodeValue(in []byte) ([]byte, error) {
	if len(in) < len(compressMagic)+1 || !bytes.Equal(in[:len(compressMagic)], compressMagic) {
		return in, nil
	}
	payload := in[len(compressMagic)+1:]
	switch in[len(compressMagic)] {
	case codecTagGzip:
		gr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, ErrCorruptCompression
		}
		defer gr.Close()
		out, err := io.ReadAll(gr)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	case codecTagSnappy:
		out, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, ErrCorruptCompression
		}
		return out, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
