// Package codec encodes the stored-field blob of a document.
//
// The codec name is persisted when an index is created, and a reopened index
// decodes with that codec whatever the caller asks for. Blobs written by one
// codec are not readable by another.
package codec

import (
	"slices"
)

// StoredField is one verbatim field value kept for retrieval.
type StoredField struct {
	Field uint32 `json:"f"`
	Value string `json:"v"`
}

// Codec turns a []StoredField into bytes and back. Unmarshal receives a
// *[]StoredField. Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Default is the codec of newly created indexes.
var Default Codec = Binary{}

var builtin = []Codec{Binary{}, JSON{}, GoJSON{}}

// ByName returns the built-in codec persisted under name.
func ByName(name string) (Codec, bool) {
	i := slices.IndexFunc(builtin, func(c Codec) bool { return c.Name() == name })
	if i < 0 {
		return nil, false
	}
	return builtin[i], true
}

// Names lists the built-in codec names.
func Names() []string {
	names := make([]string, len(builtin))
	for i, c := range builtin {
		names[i] = c.Name()
	}
	return names
}
