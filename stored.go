package lexigo

import (
	"fmt"

	"github.com/hupe1980/lexigo/codec"
	"github.com/hupe1980/lexigo/internal/compress"
	"github.com/hupe1980/lexigo/internal/hash"
)

// StoredValue is a verbatim field value returned by Searcher.Stored.
type StoredValue struct {
	Field string
	Value string
}

// encodeStored frames stored fields as checksum(compress(codec(fields))).
func encodeStored(c codec.Codec, comp Compression, fields []codec.StoredField) ([]byte, error) {
	raw, err := c.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode stored fields: %w", err)
	}
	framed, err := compress.Encode(raw, compress.Type(comp))
	if err != nil {
		return nil, fmt.Errorf("compress stored fields: %w", err)
	}
	return hash.Seal(framed), nil
}

func decodeStored(c codec.Codec, blob []byte) ([]codec.StoredField, error) {
	framed, ok := hash.Open(blob)
	if !ok {
		return nil, fmt.Errorf("%w: stored blob checksum mismatch", ErrCorrupt)
	}
	raw, err := compress.Decode(framed)
	if err != nil {
		return nil, translateError(err)
	}
	var fields []codec.StoredField
	if err := c.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return fields, nil
}
