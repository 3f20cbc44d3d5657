package operator

import (
	"math"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// vectorFastPathThreshold is the row count at or above which Filter tries its
// unrolled numeric kernel for a leaf Column-op-Literal predicate, per
// spec.md §4.5.
const vectorFastPathThreshold = 10_000

// Filter emits, for each upstream chunk, the same buffers with a selection
// vector over the rows where the compiled predicate holds, in original
// order (spec.md §4.5). It never copies column storage.
type Filter struct {
	upstream Source
	schema   vtype.Schema
	pred     expr.Predicate
	fast     fastPredicate // nil unless the leaf shape and row-count threshold apply
}

// fastPredicate is the unrolled column-vs-literal kernel used above
// vectorFastPathThreshold rows, spec.md component 13 "SIMD-ish vectorized
// filter paths". It returns nil when the chunk's column isn't a plain
// non-nullable Float64/Int32 buffer the unrolled loop can special-case.
type fastPredicate func(c *chunk.Chunk) (sel []uint32, ok bool)

// NewFilter compiles node (which must be boolean-typed) against schema and
// builds a Filter over upstream.
func NewFilter(upstream Source, node expr.Node, schema vtype.Schema) (*Filter, error) {
	pred, err := expr.CompilePredicate(node, schema)
	if err != nil {
		return nil, err
	}
	return &Filter{upstream: upstream, schema: schema, pred: pred, fast: compileFastPredicate(node, schema)}, nil
}

func (f *Filter) Schema() vtype.Schema { return f.schema }

func (f *Filter) Next() (*chunk.Chunk, error) {
	for {
		c, err := f.upstream.Next()
		if err != nil {
			return nil, err
		}
		sel, err := f.selectRows(c)
		if err != nil {
			return nil, verr.Wrap(verr.KindEvalError, err, "filter: predicate evaluation failed")
		}
		if len(sel) == 0 {
			continue
		}
		return selectChunk(c, sel), nil
	}
}

func (f *Filter) selectRows(c *chunk.Chunk) ([]uint32, error) {
	if f.fast != nil && !c.HasSelection() && c.RowCount() >= vectorFastPathThreshold {
		if sel, ok := f.fast(c); ok {
			return sel, nil
		}
	}
	var sel []uint32
	for row := 0; row < c.RowCount(); row++ {
		ok, err := f.pred(c, row)
		if err != nil {
			return nil, err
		}
		if ok {
			sel = append(sel, uint32(c.PhysicalIndex(row)))
		}
	}
	return sel, nil
}

// compileFastPredicate recognises a leaf `Column op Literal` (or
// `Literal op Column`) over a Float64 or Int32 column and returns an
// unrolled-by-8 kernel matching the scalar path bit-for-bit, including
// NaN's "every comparison false except !=" rule.
func compileFastPredicate(node expr.Node, schema vtype.Schema) fastPredicate {
	cmp, ok := node.(*expr.Cmp)
	if !ok {
		return nil
	}
	col, lit, op, flipped := fastPathOperands(cmp)
	if col == nil || lit == nil {
		return nil
	}
	_, desc, err := schema.LocateColumn(col.Name)
	if err != nil {
		return nil
	}
	switch desc.DType.Kind {
	case vtype.KindFloat64:
		if desc.DType.Nullable || lit.IsNil {
			return nil
		}
		threshold := expr.Value{Kind: lit.DType.Kind, I: lit.I64, F: lit.F64}.AsFloat64()
		return func(c *chunk.Chunk) ([]uint32, bool) {
			i, cd, err := c.Schema().LocateColumn(col.Name)
			if err != nil {
				return nil, false
			}
			buf, ok := c.Buffer(i).(*vbuf.NumericBuffer[float64])
			if !ok || cd.DType.Nullable {
				return nil, false
			}
			return vectorFilterFloat64(buf, op, threshold, flipped), true
		}
	case vtype.KindInt32:
		if desc.DType.Nullable || lit.IsNil || !lit.DType.Kind.IsInteger() || lit.DType.Kind == vtype.KindUint64 ||
			lit.I64 < math.MinInt32 || lit.I64 > math.MaxInt32 {
			return nil
		}
		threshold := lit.I64
		return func(c *chunk.Chunk) ([]uint32, bool) {
			i, cd, err := c.Schema().LocateColumn(col.Name)
			if err != nil {
				return nil, false
			}
			buf, ok := c.Buffer(i).(*vbuf.NumericBuffer[int32])
			if !ok || cd.DType.Nullable {
				return nil, false
			}
			return vectorFilterInt32(buf, op, int32(threshold), flipped), true
		}
	default:
		return nil
	}
}

func fastPathOperands(cmp *expr.Cmp) (col *expr.Column, lit *expr.Literal, op expr.CmpOp, flipped bool) {
	if c, ok := cmp.Left.(*expr.Column); ok {
		if l, ok := cmp.Right.(*expr.Literal); ok {
			return c, l, cmp.Op, false
		}
	}
	if c, ok := cmp.Right.(*expr.Column); ok {
		if l, ok := cmp.Left.(*expr.Literal); ok {
			return c, l, cmp.Op, true
		}
	}
	return nil, nil, 0, false
}

func evalCmpFloat64(op expr.CmpOp, a, b float64, flipped bool) bool {
	if flipped {
		a, b = b, a
	}
	switch op {
	case expr.CmpEq:
		return !math.IsNaN(a) && !math.IsNaN(b) && a == b
	case expr.CmpNe:
		return math.IsNaN(a) || math.IsNaN(b) || a != b
	case expr.CmpLt:
		return a < b
	case expr.CmpLe:
		return a <= b
	case expr.CmpGt:
		return a > b
	case expr.CmpGe:
		return a >= b
	}
	return false
}

func evalCmpInt64(op expr.CmpOp, a, b int64, flipped bool) bool {
	if flipped {
		a, b = b, a
	}
	switch op {
	case expr.CmpEq:
		return a == b
	case expr.CmpNe:
		return a != b
	case expr.CmpLt:
		return a < b
	case expr.CmpLe:
		return a <= b
	case expr.CmpGt:
		return a > b
	case expr.CmpGe:
		return a >= b
	}
	return false
}

// vectorFilterFloat64 processes 8 values per iteration per spec.md §4.5.
func vectorFilterFloat64(buf *vbuf.NumericBuffer[float64], op expr.CmpOp, threshold float64, flipped bool) []uint32 {
	n := buf.Len()
	var sel []uint32
	i := 0
	for ; i+8 <= n; i += 8 {
		for j := 0; j < 8; j++ {
			if evalCmpFloat64(op, buf.Get(i+j), threshold, flipped) {
				sel = append(sel, uint32(i+j))
			}
		}
	}
	for ; i < n; i++ {
		if evalCmpFloat64(op, buf.Get(i), threshold, flipped) {
			sel = append(sel, uint32(i))
		}
	}
	return sel
}

func vectorFilterInt32(buf *vbuf.NumericBuffer[int32], op expr.CmpOp, threshold int32, flipped bool) []uint32 {
	n := buf.Len()
	var sel []uint32
	i := 0
	for ; i+8 <= n; i += 8 {
		for j := 0; j < 8; j++ {
			if evalCmpInt64(op, int64(buf.Get(i+j)), int64(threshold), flipped) {
				sel = append(sel, uint32(i+j))
			}
		}
	}
	for ; i < n; i++ {
		if evalCmpInt64(op, int64(buf.Get(i)), int64(threshold), flipped) {
			sel = append(sel, uint32(i))
		}
	}
	return sel
}
