package operator

import (
	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Computed names one added or replaced column: Name is the target column
// (replacing an existing same-named column per spec.md §4.7), E is the
// expression computing its value.
type Computed struct {
	Name string
	E    expr.Node
}

// Transform adds or replaces computed columns. Unlike Project, it can
// synthesise brand-new cell values, so every output chunk is built from
// scratch: the input is first materialized (dropping any selection) so
// every column - touched or not - shares one physical row count, then
// untouched columns are re-exposed by reference and computed ones get
// freshly allocated buffers (spec.md §4.7).
type Transform struct {
	upstream  Source
	inSchema  vtype.Schema
	outSchema vtype.Schema
	kernels   []expr.ValueKernel // parallel to outSchema columns; nil entry = pass-through
	pool      *vbuf.BufferPool
}

// NewTransform compiles each Computed expression against inSchema and
// builds the output schema: existing columns keep their position (replaced
// in place if named by a Computed), new ones are appended in the order given.
func NewTransform(upstream Source, computed []Computed, inSchema vtype.Schema, pool *vbuf.BufferPool) (*Transform, error) {
	cols := append([]vtype.ColumnDescriptor(nil), inSchema.Columns...)
	kernels := make([]expr.ValueKernel, len(cols))

	replace := make(map[string]int, len(cols))
	for i, c := range cols {
		replace[c.Name] = i
	}

	var appendCols []vtype.ColumnDescriptor
	var appendKernels []expr.ValueKernel
	for _, comp := range computed {
		vk, err := expr.Compile(comp.E, inSchema)
		if err != nil {
			return nil, err
		}
		dt, err := expr.InferType(comp.E, inSchema)
		if err != nil {
			return nil, err
		}
		dt.Nullable = true
		if i, ok := replace[comp.Name]; ok {
			cols[i] = vtype.ColumnDescriptor{Name: comp.Name, DType: dt}
			kernels[i] = vk
			continue
		}
		appendCols = append(appendCols, vtype.ColumnDescriptor{Name: comp.Name, DType: dt})
		appendKernels = append(appendKernels, vk)
	}
	cols = append(cols, appendCols...)
	kernels = append(kernels, appendKernels...)

	outSchema, err := vtype.NewSchema(cols)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "transform: invalid output schema")
	}
	return &Transform{upstream: upstream, inSchema: inSchema, outSchema: outSchema, kernels: kernels, pool: pool}, nil
}

func (t *Transform) Schema() vtype.Schema { return t.outSchema }

func (t *Transform) Next() (*chunk.Chunk, error) {
	c, err := t.upstream.Next()
	if err != nil {
		return nil, err
	}
	mc, err := c.Materialize()
	if err != nil {
		return nil, err
	}
	rowCount := mc.PhysicalRowCount()
	bufs := make([]vbuf.Buffer, len(t.kernels))
	for i, vk := range t.kernels {
		if vk == nil {
			bufs[i] = mc.Buffer(passthroughIndex(t.inSchema, t.outSchema, i))
			continue
		}
		dst, err := t.acquire(t.outSchema.Columns[i].DType, rowCount, mc.Dictionary())
		if err != nil {
			return nil, err
		}
		for row := 0; row < rowCount; row++ {
			v, err := vk(mc, row)
			if err != nil {
				return nil, verr.Wrap(verr.KindEvalError, err, "transform: evaluating column %q", t.outSchema.Columns[i].Name)
			}
			if err := appendValue(dst, v); err != nil {
				return nil, err
			}
		}
		bufs[i] = dst
	}
	return chunk.New(t.outSchema, bufs, mc.Dictionary(), t.pool)
}

// passthroughIndex maps an output column position whose kernel is nil back
// to the matching input column position (same name, unchanged type).
func passthroughIndex(in, out vtype.Schema, outIdx int) int {
	idx, _, err := in.LocateColumn(out.Columns[outIdx].Name)
	if err != nil {
		panic("transform: pass-through column missing from input schema")
	}
	return idx
}

func (t *Transform) acquire(dt vtype.DType, capacity int, dic *dict.Dictionary) (vbuf.Buffer, error) {
	if t.pool != nil {
		return t.pool.Acquire(dt.Kind, capacity, dt.Nullable, dic)
	}
	return vbuf.NewBufferPool().Acquire(dt.Kind, capacity, dt.Nullable, dic)
}
