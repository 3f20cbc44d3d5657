// Package operator implements the physical operator set described in
// spec.md §4.5-§4.13: Filter, Project, Transform, Sort, Limit, Unique,
// Aggregate, Join and Concat. Every operator pulls from an upstream Source
// one Chunk at a time and is itself a Source, the same "next chunk" contract
// the teacher's query.Run stripe loop walks by hand (pull one database.Stripe
// at a time, evaluate, filter, append) - this package turns that inlined
// loop into composable, independently testable operators (spec.md §4.14's
// "operators compose via a uniform pull interface").
package operator

import (
	"io"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// rowRef names one logical row by the chunk that physically holds it and
// its physical index within that chunk. Pipeline-breaking operators
// (Sort, Unique keep-last) collect these once they have
// materialized their whole input, rather than copying cells up front.
type rowRef struct {
	chunk *chunk.Chunk
	row   int
}

// collectAll drains src to completion, materializing every chunk (so no
// chunk in the result still carries a selection vector) and flattening
// every logical row into a rowRef slice in input order. Used by Sort and
// Unique's keep-last mode.
func collectAll(src Source) ([]*chunk.Chunk, []rowRef, error) {
	var chunks []*chunk.Chunk
	var rows []rowRef
	for {
		c, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if c.RowCount() == 0 {
			continue
		}
		mc, err := c.Materialize()
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, mc)
		for row := 0; row < mc.PhysicalRowCount(); row++ {
			rows = append(rows, rowRef{chunk: mc, row: row})
		}
	}
	return chunks, rows, nil
}

// Source is the uniform pull contract every physical operator (and every
// chunk producer, e.g. csvsrc.Reader) satisfies. Next returns io.EOF (with a
// nil chunk) once exhausted.
type Source interface {
	Next() (*chunk.Chunk, error)
}

// SourceFunc adapts a plain function to a Source, used by tests and by the
// pipeline driver to wrap a csvsrc.Reader without an adapter type per caller.
type SourceFunc func() (*chunk.Chunk, error)

func (f SourceFunc) Next() (*chunk.Chunk, error) { return f() }

// acquireBuffers allocates one fresh buffer per schema column at the given
// capacity, the same shape chunk.Chunk.acquire produces internally. No
// operator in this package calls it.
func acquireBuffers(schema vtype.Schema, capacity int, pool *vbuf.BufferPool, dic *dict.Dictionary) ([]vbuf.Buffer, error) {
	buffers := make([]vbuf.Buffer, schema.Len())
	for i, col := range schema.Columns {
		b, err := pool.Acquire(col.DType.Kind, capacity, col.DType.Nullable, dic)
		if err != nil {
			return nil, err
		}
		buffers[i] = b
	}
	return buffers, nil
}

// appendValue appends a compiled expr.Value to buf, the per-kind dispatch
// point for operators that synthesise cells from scratch (as opposed to
// copying existing buffer rows via vbuf.Buffer.CopySelected).
func appendValue(buf vbuf.Buffer, v expr.Value) error {
	if v.Null {
		return buf.AppendNull()
	}
	switch b := buf.(type) {
	case *vbuf.BoolBuffer:
		return b.Append(v.B)
	case *vbuf.StringBuffer:
		return b.Append(v.S)
	case *vbuf.NumericBuffer[int8]:
		return b.Append(int8(v.I))
	case *vbuf.NumericBuffer[int16]:
		return b.Append(int16(v.I))
	case *vbuf.NumericBuffer[int32]:
		return b.Append(int32(v.I))
	case *vbuf.NumericBuffer[int64]:
		return b.Append(v.I)
	case *vbuf.NumericBuffer[uint8]:
		return b.Append(uint8(v.I))
	case *vbuf.NumericBuffer[uint16]:
		return b.Append(uint16(v.I))
	case *vbuf.NumericBuffer[uint32]:
		return b.Append(uint32(v.I))
	case *vbuf.NumericBuffer[uint64]:
		return b.Append(uint64(v.I))
	case *vbuf.NumericBuffer[float32]:
		return b.Append(float32(v.F))
	case *vbuf.NumericBuffer[float64]:
		return b.Append(v.F)
	default:
		return verr.New(verr.KindTypeMismatch, "operator: unsupported buffer type %T", buf)
	}
}

// buildRowChunk rebuilds a fresh chunk conforming to schema by copying one
// physical row at a time out of each rowRef's source chunk, column by
// column, via Buffer.CopySelected. Used by operators that reorder rows
// across several materialized source chunks (Sort, and Unique's keep-last
// mode).
func buildRowChunk(schema vtype.Schema, rows []rowRef, pool *vbuf.BufferPool) (*chunk.Chunk, error) {
	if pool == nil {
		pool = vbuf.NewBufferPool()
	}
	var dic *dict.Dictionary
	if len(rows) > 0 {
		dic = rows[0].chunk.Dictionary()
	}
	bufs := make([]vbuf.Buffer, schema.Len())
	for col := 0; col < schema.Len(); col++ {
		cd := schema.Columns[col]
		dst, err := pool.Acquire(cd.DType.Kind, len(rows), cd.DType.Nullable, dic)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if err := dst.CopySelected(r.chunk.Buffer(col), []uint32{uint32(r.row)}); err != nil {
				return nil, verr.Wrap(verr.KindSchemaMismatch, err, "operator: rebuilding column %q", cd.Name)
			}
		}
		bufs[col] = dst
	}
	return chunk.New(schema, bufs, dic, pool)
}

// selectChunk builds a new chunk over c's own buffers (shared by reference,
// never pool-owned by the new chunk) with sel as its selection vector, sel
// holding physical row indices into c. Used by Filter, Limit and Unique's
// streaming keep-first path, all of which narrow rows without copying
// column storage (spec.md §4.5: "produces one output chunk with the same
// buffers and a new selection vector").
func selectChunk(c *chunk.Chunk, sel []uint32) *chunk.Chunk {
	buffers := make([]vbuf.Buffer, c.Schema().Len())
	for i := range buffers {
		buffers[i] = c.Buffer(i)
	}
	nc, _ := chunk.New(c.Schema(), buffers, c.Dictionary(), nil)
	nc.ApplySelection(sel)
	return nc
}

var errDone = io.EOF
