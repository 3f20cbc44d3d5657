package operator

import (
	"io"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Concat stacks N sources vertically (spec.md §4.13). Sources may list
// their columns in different orders but must agree on the column set and
// types; output column order follows the first source. When sources carry
// distinct string dictionaries, Concat rebuilds a merged one and rewrites
// string ids as it passes chunks through.
type Concat struct {
	sources  []Source
	schema   vtype.Schema
	colIndex [][]int // per source, column i of schema -> that source's own column index

	cur      int
	dic      *dict.Dictionary
	perSrcDic []*dict.Dictionary
	needsMerge bool
}

// NewConcat validates that every source's schema is a reordering of the
// first (by name and dtype) and builds the per-source column permutation.
func NewConcat(sources []Source, schemas []vtype.Schema) (*Concat, error) {
	if len(sources) == 0 {
		return nil, verr.New(verr.KindInvalidArgument, "concat: at least one source required")
	}
	if len(sources) != len(schemas) {
		return nil, verr.New(verr.KindInvalidArgument, "concat: sources/schemas length mismatch")
	}
	first := schemas[0]
	colIndex := make([][]int, len(sources))
	for si, s := range schemas {
		if s.Len() != first.Len() {
			return nil, verr.New(verr.KindSchemaMismatch, "concat: source %d has %d columns, want %d", si, s.Len(), first.Len())
		}
		idx := make([]int, first.Len())
		for col, fc := range first.Columns {
			j, desc, err := s.LocateColumn(fc.Name)
			if err != nil {
				return nil, verr.Wrap(verr.KindSchemaMismatch, err, "concat: source %d missing column %q", si, fc.Name)
			}
			if desc.DType.Kind != fc.DType.Kind {
				return nil, verr.New(verr.KindTypeMismatch, "concat: source %d column %q has type %v, want %v", si, fc.Name, desc.DType.Kind, fc.DType.Kind)
			}
			idx[col] = j
		}
		colIndex[si] = idx
	}
	return &Concat{sources: sources, schema: first, colIndex: colIndex, perSrcDic: make([]*dict.Dictionary, len(sources))}, nil
}

func (cc *Concat) Schema() vtype.Schema { return cc.schema }

func (cc *Concat) Next() (*chunk.Chunk, error) {
	for cc.cur < len(cc.sources) {
		c, err := cc.sources[cc.cur].Next()
		if err == io.EOF {
			cc.cur++
			continue
		}
		if err != nil {
			return nil, err
		}
		return cc.reorder(cc.cur, c)
	}
	return nil, errDone
}

// reorder permutes c's buffers into schema column order and, if this
// source's dictionary differs from ones already seen, rebinds every string
// buffer to a merged dictionary so downstream consumers see one consistent
// id space.
func (cc *Concat) reorder(srcIdx int, c *chunk.Chunk) (*chunk.Chunk, error) {
	idx := cc.colIndex[srcIdx]
	bufs := make([]vbuf.Buffer, len(idx))
	for col, j := range idx {
		bufs[col] = c.Buffer(j)
	}
	dic := c.Dictionary()
	if dic != nil {
		if cc.dic == nil {
			cc.dic = dic
		} else if cc.dic != dic {
			merged, translate := dict.Merge(cc.dic, dic)
			cc.dic = merged
			for col, buf := range bufs {
				if sb, ok := buf.(*vbuf.StringBuffer); ok {
					rebindable := sb.Clone().(*vbuf.StringBuffer)
					rebindable.Rebind(merged, translate)
					bufs[col] = rebindable
				}
			}
		}
	}
	nc, err := chunk.New(cc.schema, bufs, cc.dic, nil)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "concat: rebuilding chunk from source %d", srcIdx)
	}
	if c.HasSelection() {
		nc.ApplySelection(c.Selection())
	}
	return nc, nil
}
