// Package chunk implements the row-aligned batch described in spec.md §4.3:
// a schema, a ColumnBuffer per column (all sharing one physicalRowCount), an
// optional shared string dictionary, and an optional selection vector. The
// teacher has no selection vector at all - column/chunk.go's Prune(bitmap)
// eagerly copies the surviving rows into a brand new Chunk - so this package
// generalises that operation into a lazy, composable index list per
// spec.md's DESIGN NOTES ("keep the mutating contract explicit: applySelection
// composes, materialize produces a fresh chunk").
package chunk

import (
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Chunk is a row-aligned group of column buffers, all of length
// physicalRowCount, plus the bookkeeping spec.md §3/§4.3 requires.
type Chunk struct {
	schema      vtype.Schema
	buffers     []vbuf.Buffer
	dictionary  *dict.Dictionary
	sel         []uint32 // nil when no selection is active
	pool        *vbuf.BufferPool
}

// New wraps schema-conformant buffers (one per schema column, in schema
// order) into a chunk with no selection active. All buffers must share the
// same Len(); dic may be nil if the schema has no string column.
func New(schema vtype.Schema, buffers []vbuf.Buffer, dic *dict.Dictionary, pool *vbuf.BufferPool) (*Chunk, error) {
	if len(buffers) != schema.Len() {
		return nil, verr.New(verr.KindSchemaMismatch, "chunk: %d buffers for a %d-column schema", len(buffers), schema.Len())
	}
	if len(buffers) > 0 {
		n := buffers[0].Len()
		for i, b := range buffers {
			if b.Len() != n {
				return nil, verr.New(verr.KindSchemaMismatch, "chunk: buffer %d has length %d, expected %d", i, b.Len(), n)
			}
		}
	}
	return &Chunk{schema: schema, buffers: buffers, dictionary: dic, pool: pool}, nil
}

// Schema returns the chunk's column schema.
func (c *Chunk) Schema() vtype.Schema { return c.schema }

// Dictionary returns the chunk's shared string dictionary, or nil if the
// schema has no string column.
func (c *Chunk) Dictionary() *dict.Dictionary { return c.dictionary }

// Buffer returns the raw column buffer at schema position i, ignoring any
// active selection - hot-path operator code reads through here directly
// (spec.md §4.3: "hot paths go through column buffers directly").
func (c *Chunk) Buffer(i int) vbuf.Buffer { return c.buffers[i] }

// PhysicalRowCount is the shared length of every column buffer, irrespective
// of any active selection.
func (c *Chunk) PhysicalRowCount() int {
	if len(c.buffers) == 0 {
		return 0
	}
	return c.buffers[0].Len()
}

// RowCount is the logical row count: len(sel) if a selection is active,
// else PhysicalRowCount().
func (c *Chunk) RowCount() int {
	if c.sel != nil {
		return len(c.sel)
	}
	return c.PhysicalRowCount()
}

// HasSelection reports whether a selection vector is active.
func (c *Chunk) HasSelection() bool { return c.sel != nil }

// Selection returns the active selection vector, or nil if none is active.
// Callers must not mutate the returned slice.
func (c *Chunk) Selection() []uint32 { return c.sel }

// PhysicalIndex maps a logical row index to its physical buffer index.
func (c *Chunk) PhysicalIndex(logical int) int {
	if c.sel == nil {
		return logical
	}
	return int(c.sel[logical])
}

// ApplySelection composes a new selection sel (indices into the chunk's
// CURRENT logical row space, i.e. 0..RowCount()-1) on top of whatever
// selection is already active, mutating the chunk in place. If no selection
// was active, sel becomes the chunk's physical-index selection directly.
func (c *Chunk) ApplySelection(sel []uint32) {
	if c.sel == nil {
		c.sel = sel
		return
	}
	composed := make([]uint32, len(sel))
	for i, logical := range sel {
		composed[i] = c.sel[logical]
	}
	c.sel = composed
}

// clearSelection drops any active selection, reverting RowCount to
// PhysicalRowCount.
func (c *Chunk) clearSelection() { c.sel = nil }

// Materialize produces an equivalent chunk with no selection active, by
// copying the logically selected rows into freshly acquired buffers. If no
// selection is active, Materialize still returns a new chunk (a defensive
// copy), matching spec.md's invariant that materialize(C).hasSelection() is
// always false.
func (c *Chunk) Materialize() (*Chunk, error) {
	rowCount := c.RowCount()
	sel := c.sel
	if sel == nil {
		sel = identitySelection(rowCount)
	}

	nbuffers := make([]vbuf.Buffer, len(c.buffers))
	for i, b := range c.buffers {
		dst, err := c.acquire(b.Kind(), rowCount, b.Nullable())
		if err != nil {
			return nil, err
		}
		if err := dst.CopySelected(b, sel); err != nil {
			return nil, err
		}
		nbuffers[i] = dst
	}
	return &Chunk{schema: c.schema, buffers: nbuffers, dictionary: c.dictionary, pool: c.pool}, nil
}

func (c *Chunk) acquire(kind vtype.Kind, capacity int, nullable bool) (vbuf.Buffer, error) {
	if c.pool == nil {
		return vbuf.NewBufferPool().Acquire(kind, capacity, nullable, c.dictionary)
	}
	return c.pool.Acquire(kind, capacity, nullable, c.dictionary)
}

// Dispose returns every column buffer to the pool. The chunk must not be
// used afterwards (spec.md §4 item 5 BufferPool lifecycle: "owned by
// exactly one chunk, and returned via dispose()").
func (c *Chunk) Dispose() {
	if c.pool == nil {
		return
	}
	for _, b := range c.buffers {
		c.pool.Release(b)
	}
	c.buffers = nil
}

func identitySelection(n int) []uint32 {
	sel := make([]uint32, n)
	for i := range sel {
		sel[i] = uint32(i)
	}
	return sel
}
