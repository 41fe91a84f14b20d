// Package keys defines the fixed-width, order-preserving key and value
// encodings of the persisted index layout.
//
// All integers are big-endian so bytewise key order equals numeric order.
package keys

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// DocIDSize is the encoded width of a document id.
	DocIDSize = 8
	// FieldIDSize is the encoded width of a field id.
	FieldIDSize = 4
	// OrdinalSize is the encoded width of a term ordinal.
	OrdinalSize = 4
	// ForwardSize is the width of a forward-index key.
	ForwardSize = DocIDSize + FieldIDSize + OrdinalSize
	// PostingSize is the width of an encoded posting value.
	PostingSize = 8
)

// ErrMalformed is returned when an encoded key or value has the wrong shape.
var ErrMalformed = errors.New("keys: malformed encoding")

// DocID encodes a document id.
func DocID(id uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, DocIDSize), id)
}

// AppendDocID appends the encoded id to dst.
func AppendDocID(dst []byte, id uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, id)
}

// ParseDocID decodes a document id.
func ParseDocID(b []byte) (uint64, error) {
	if len(b) != DocIDSize {
		return 0, ErrMalformed
	}
	return binary.BigEndian.Uint64(b), nil
}

// Uint32 encodes v.
func Uint32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, 4), v)
}

// AppendUint32 appends the encoding of v to dst.
func AppendUint32(dst []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(dst, v)
}

// ParseUint32 decodes a 4-byte value.
func ParseUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, ErrMalformed
	}
	return binary.BigEndian.Uint32(b), nil
}

// Uint64 encodes v.
func Uint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), v)
}

// ParseUint64 decodes an 8-byte value.
func ParseUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, ErrMalformed
	}
	return binary.BigEndian.Uint64(b), nil
}

// Forward encodes a forward-index key (doc, field, ordinal).
func Forward(doc uint64, field, ordinal uint32) []byte {
	k := make([]byte, ForwardSize)
	binary.BigEndian.PutUint64(k, doc)
	binary.BigEndian.PutUint32(k[DocIDSize:], field)
	binary.BigEndian.PutUint32(k[DocIDSize+FieldIDSize:], ordinal)
	return k
}

// ForwardDocPrefix is the prefix shared by every forward entry of doc.
func ForwardDocPrefix(doc uint64) []byte {
	return DocID(doc)
}

// ForwardFieldPrefix is the prefix shared by the forward entries of doc in field.
func ForwardFieldPrefix(doc uint64, field uint32) []byte {
	k := make([]byte, DocIDSize+FieldIDSize)
	binary.BigEndian.PutUint64(k, doc)
	binary.BigEndian.PutUint32(k[DocIDSize:], field)
	return k
}

// ParseForward decodes a forward-index key.
func ParseForward(k []byte) (doc uint64, field, ordinal uint32, err error) {
	if len(k) != ForwardSize {
		return 0, 0, 0, ErrMalformed
	}
	doc = binary.BigEndian.Uint64(k)
	field = binary.BigEndian.Uint32(k[DocIDSize:])
	ordinal = binary.BigEndian.Uint32(k[DocIDSize+FieldIDSize:])
	return doc, field, ordinal, nil
}

// Position encodes a positions key (doc, field, term).
func Position(doc uint64, field uint32, term []byte) []byte {
	k := make([]byte, DocIDSize+FieldIDSize, DocIDSize+FieldIDSize+len(term))
	binary.BigEndian.PutUint64(k, doc)
	binary.BigEndian.PutUint32(k[DocIDSize:], field)
	return append(k, term...)
}

// Posting encodes the value stored for one (term, doc) posting.
func Posting(freq uint32, boost float32) []byte {
	v := make([]byte, PostingSize)
	binary.BigEndian.PutUint32(v, freq)
	binary.BigEndian.PutUint32(v[4:], math.Float32bits(boost))
	return v
}

// ParsePosting decodes a posting value.
func ParsePosting(v []byte) (freq uint32, boost float32, err error) {
	if len(v) != PostingSize {
		return 0, 0, ErrMalformed
	}
	return binary.BigEndian.Uint32(v), math.Float32frombits(binary.BigEndian.Uint32(v[4:])), nil
}

// Positions encodes an ascending list of term ordinals.
func Positions(pos []uint32) []byte {
	v := make([]byte, 0, len(pos)*4)
	for _, p := range pos {
		v = binary.BigEndian.AppendUint32(v, p)
	}
	return v
}

// ParsePositions decodes an ordinal list, appending to dst.
func ParsePositions(dst []uint32, v []byte) ([]uint32, error) {
	if len(v)%4 != 0 {
		return dst, ErrMalformed
	}
	for i := 0; i < len(v); i += 4 {
		dst = append(dst, binary.BigEndian.Uint32(v[i:]))
	}
	return dst, nil
}
