// Package csvsrc implements the streaming CSV tokenizer/parser described in
// spec.md §4.15: a byte-level state machine that reads delimited text
// straight into ColumnBuffers, without routing through encoding/csv. It is
// grounded in the teacher's database/loader.go (chunked stripe construction
// loop, skipBom) and database/inference_format.go (compression and
// delimiter sniffing) - but where the teacher hands rows to encoding/csv.Reader
// and only then types them, spec.md requires re-architecting that into a
// single byte-level scan with inlined per-kind decoders, so this package
// does not import encoding/csv at all.
package csvsrc

import "github.com/vectra-db/vectra/src/vtype"

// DefaultChunkSize is the number of rows buffered per emitted chunk.
const DefaultChunkSize = 16384

// DefaultNullLiterals is the byte-exact set of field values treated as null
// in addition to the empty string, per spec.md §4.15.
var DefaultNullLiterals = []string{"NA", "null", "-", ""}

// Options configures a Reader.
type Options struct {
	Delimiter byte // default ','
	Quote     byte // default '"'
	HasHeader bool
	ChunkSize int // default DefaultChunkSize
	SkipRows  int // extra data rows to skip after any header row
	MaxRows   int // 0 means unlimited

	// Projection maps each target schema column (by position) to the CSV
	// column index supplying it. A nil Projection is the identity mapping
	// (schema column i <- CSV column i).
	Projection []int

	// NullLiterals are byte-exact field values treated as null, besides the
	// empty string (which is always treated as null regardless of this
	// list). Defaults to DefaultNullLiterals when nil.
	NullLiterals []string
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	if o.Quote == 0 {
		o.Quote = '"'
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.NullLiterals == nil {
		o.NullLiterals = DefaultNullLiterals
	}
	return o
}

func (o Options) projectionFor(schema vtype.Schema) []int {
	if o.Projection != nil {
		return o.Projection
	}
	proj := make([]int, schema.Len())
	for i := range proj {
		proj[i] = i
	}
	return proj
}
