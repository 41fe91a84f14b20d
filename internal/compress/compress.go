// Package compress frames small values with optional LZ4 or Zstd block
// compression.
//
// Frame layout: [type uint8][uncompressed length uvarint][data].
// A value that does not shrink is stored with type None.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	// None stores data verbatim.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Type = 1
	// Zstd uses Zstandard block compression (better ratio).
	Zstd Type = 2
)

// String returns the lower-case algorithm name.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compress(%d)", uint8(t))
	}
}

// ParseType maps a name produced by String back to its Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", s)
	}
}

// MaxDecodedSize bounds the declared size of a frame to reject corrupt input.
const MaxDecodedSize = 64 << 20

// ErrCorrupt is returned when a frame cannot be decoded.
var ErrCorrupt = errors.New("compress: corrupt frame")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// Encode frames data, compressing it with t when that makes it smaller.
func Encode(data []byte, t Type) ([]byte, error) {
	var (
		body []byte
		err  error
	)
	switch t {
	case None:
	case LZ4:
		body, err = encodeLZ4(data)
	case Zstd:
		enc := getZstdEncoder()
		body = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}
	if err != nil {
		return nil, err
	}
	if body == nil || len(body) >= len(data) {
		t, body = None, data
	}

	out := make([]byte, 0, 1+binary.MaxVarintLen64+len(body))
	out = append(out, byte(t))
	out = binary.AppendUvarint(out, uint64(len(data)))
	return append(out, body...), nil
}

func encodeLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return dst[:n], nil
}

// Decode reverses Encode.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, ErrCorrupt
	}
	t := Type(frame[0])
	size, n := binary.Uvarint(frame[1:])
	if n <= 0 || size > MaxDecodedSize {
		return nil, ErrCorrupt
	}
	body := frame[1+n:]

	switch t {
	case None:
		if uint64(len(body)) != size {
			return nil, ErrCorrupt
		}
		return body, nil
	case LZ4:
		out := make([]byte, size)
		m, err := lz4.UncompressBlock(body, out)
		if err != nil || uint64(m) != size {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		return out, nil
	case Zstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		zstdDecoderPool.Put(dec)
		if err != nil || uint64(len(out)) != size {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, ErrCorrupt
	}
}
