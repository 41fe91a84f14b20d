package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned by Binary for values other than stored fields.
var ErrUnsupportedType = errors.New("codec: unsupported type")

// ErrTruncated is returned when binary input ends mid-record.
var ErrTruncated = errors.New("codec: truncated input")

// Binary is a compact length-prefixed encoding of []StoredField:
// repeated [field uvarint][length uvarint][value bytes].
type Binary struct{}

// Marshal encodes a []StoredField.
func (Binary) Marshal(v any) ([]byte, error) {
	fields, ok := v.([]StoredField)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	size := 0
	for _, f := range fields {
		size += 2*binary.MaxVarintLen32 + len(f.Value)
	}
	out := make([]byte, 0, size)
	for _, f := range fields {
		out = AppendField(out, f)
	}
	return out, nil
}

// AppendField appends one encoded field to dst.
func AppendField(dst []byte, f StoredField) []byte {
	dst = binary.AppendUvarint(dst, uint64(f.Field))
	dst = binary.AppendUvarint(dst, uint64(len(f.Value)))
	return append(dst, f.Value...)
}

// Unmarshal decodes into a *[]StoredField, appending to its contents.
func (Binary) Unmarshal(data []byte, v any) error {
	dst, ok := v.(*[]StoredField)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	for len(data) > 0 {
		id, n := binary.Uvarint(data)
		if n <= 0 || id > 1<<32-1 {
			return ErrTruncated
		}
		data = data[n:]
		l, n := binary.Uvarint(data)
		if n <= 0 || l > uint64(len(data)-n) {
			return ErrTruncated
		}
		data = data[n:]
		*dst = append(*dst, StoredField{Field: uint32(id), Value: string(data[:l])})
		data = data[l:]
	}
	return nil
}

// Name returns the unique name of the codec ("binary").
func (Binary) Name() string { return "binary" }
