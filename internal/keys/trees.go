package keys

// Tree names of the persisted layout.
const (
	MetadataTree  = "$metadata"
	FieldsTree    = "$fields"
	ForwardTree   = "forward"
	PositionsTree = "positions"
	StoredTree    = "stored"
	DeletesTree   = "deletes"

	postingPrefix = "@"
)

// Metadata keys.
var (
	MetaIndexID  = []byte("id")
	MetaDocCount = []byte("docs")
	MetaLastDoc  = []byte("last-doc")
	MetaCodec    = []byte("codec")
	MetaDeletes  = []byte("deletes")
)

// PostingTree returns the name of the posting tree of field.
func PostingTree(field string) string {
	return postingPrefix + field
}
