package operator

import (
	"io"

	"github.com/vectra-db/vectra/src/aggstate"
	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// AggSpec is one aggregation in an Aggregate operator's select list:
// Func applied to Input (empty for count() over whole rows), named OutName
// in the output schema.
type AggSpec struct {
	Input   string
	Func    expr.AggFunc
	OutName string
}

// Aggregate is the hash group-by of spec.md §4.11: a key-tuple -> GroupState
// hash map probed row by row, finalised into one output row per group in
// first-seen order.
type Aggregate struct {
	upstream Source
	schema   vtype.Schema
	pool     *vbuf.BufferPool

	keyCols  []string
	keyKinds []expr.ValueKernel
	aggs     []AggSpec
	aggKinds []expr.ValueKernel // nil entry = count() with no input column
	inKinds  []vtype.Kind

	out     []*chunk.Chunk
	outPos  int
	started bool
}

// NewAggregate compiles the group keys and aggregate inputs against schema
// and derives the output schema: key columns (unchanged dtype) followed by
// aggregate result columns (spec.md §4.11).
func NewAggregate(upstream Source, keyCols []string, aggs []AggSpec, schema vtype.Schema, pool *vbuf.BufferPool) (*Aggregate, error) {
	keyKinds := make([]expr.ValueKernel, len(keyCols))
	cols := make([]vtype.ColumnDescriptor, 0, len(keyCols)+len(aggs))
	for i, name := range keyCols {
		vk, err := expr.Compile(&expr.Column{Name: name}, schema)
		if err != nil {
			return nil, err
		}
		keyKinds[i] = vk
		_, desc, err := schema.LocateColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, desc)
	}

	aggKinds := make([]expr.ValueKernel, len(aggs))
	inKinds := make([]vtype.Kind, len(aggs))
	for i, a := range aggs {
		var inputNode expr.Node
		if a.Input != "" {
			inputNode = &expr.Column{Name: a.Input}
		}
		aggNode := aggExprNode(a.Func, inputNode)
		dt, err := expr.InferType(aggNode, schema)
		if err != nil {
			return nil, err
		}
		cols = append(cols, vtype.ColumnDescriptor{Name: a.OutName, DType: dt})
		if a.Input == "" {
			continue
		}
		vk, err := expr.Compile(inputNode, schema)
		if err != nil {
			return nil, err
		}
		aggKinds[i] = vk
		indt, err := expr.InferType(inputNode, schema)
		if err != nil {
			return nil, err
		}
		inKinds[i] = indt.Kind
	}

	outSchema, err := vtype.NewSchema(cols)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "aggregate: invalid output schema")
	}
	return &Aggregate{
		upstream: upstream, schema: outSchema, pool: pool,
		keyCols: keyCols, keyKinds: keyKinds, aggs: aggs, aggKinds: aggKinds, inKinds: inKinds,
	}, nil
}

func aggExprNode(fn expr.AggFunc, input expr.Node) expr.Node {
	if fn == expr.AggCount && input == nil {
		return &expr.Count{}
	}
	return &expr.Agg{Func: fn, E: input}
}

func (a *Aggregate) Schema() vtype.Schema { return a.schema }

func (a *Aggregate) Next() (*chunk.Chunk, error) {
	if !a.started {
		if err := a.run(); err != nil {
			return nil, err
		}
		a.started = true
	}
	if a.outPos >= len(a.out) {
		return nil, errDone
	}
	c := a.out[a.outPos]
	a.outPos++
	return c, nil
}

func (a *Aggregate) run() error {
	table := aggstate.NewTable()
	var sharedDic *dict.Dictionary
	for {
		c, err := a.upstream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if sharedDic == nil {
			sharedDic = c.Dictionary()
		}
		if err := a.probe(table, c); err != nil {
			return err
		}
	}

	if table.Len() == 0 && len(a.keyCols) == 0 {
		table.GroupFor("", nil, a.newAccumulators)
	}
	if table.Len() == 0 {
		return nil
	}

	groups := make([]*aggstate.Group, 0, table.Len())
	table.Each(func(g *aggstate.Group) { groups = append(groups, g) })

	return a.emit(groups, sharedDic)
}

func (a *Aggregate) newAccumulators() []*aggstate.Accumulator {
	accs := make([]*aggstate.Accumulator, len(a.aggs))
	for i, spec := range a.aggs {
		accs[i] = aggstate.NewAccumulator(spec.Func, a.inKinds[i])
	}
	return accs
}

func (a *Aggregate) probe(table *aggstate.Table, c *chunk.Chunk) error {
	for row := 0; row < c.RowCount(); row++ {
		keyValues := make([]expr.Value, len(a.keyKinds))
		for i, k := range a.keyKinds {
			v, err := k(c, row)
			if err != nil {
				return verr.Wrap(verr.KindEvalError, err, "aggregate: evaluating group key %q", a.keyCols[i])
			}
			keyValues[i] = v
		}
		key := aggstate.BuildKey(keyValues)
		g := table.GroupFor(key, keyValues, a.newAccumulators)
		for i, spec := range a.aggs {
			if spec.Input == "" {
				g.Accs[i].AddRowCount()
				continue
			}
			v, err := a.aggKinds[i](c, row)
			if err != nil {
				return verr.Wrap(verr.KindEvalError, err, "aggregate: evaluating input to %s(%s)", spec.Func, spec.Input)
			}
			if err := g.Accs[i].Add(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Aggregate) emit(groups []*aggstate.Group, dic *dict.Dictionary) error {
	const batch = 16384
	for start := 0; start < len(groups); start += batch {
		end := start + batch
		if end > len(groups) {
			end = len(groups)
		}
		c, err := a.buildChunk(groups[start:end], dic)
		if err != nil {
			return err
		}
		a.out = append(a.out, c)
	}
	return nil
}

func (a *Aggregate) buildChunk(groups []*aggstate.Group, dic *dict.Dictionary) (*chunk.Chunk, error) {
	bufs := make([]vbuf.Buffer, a.schema.Len())
	nKeys := len(a.keyCols)
	for col := 0; col < a.schema.Len(); col++ {
		cd := a.schema.Columns[col]
		dst, err := a.pool.Acquire(cd.DType.Kind, len(groups), cd.DType.Nullable, dic)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			var v expr.Value
			var err error
			if col < nKeys {
				v = g.KeyValues[col]
			} else {
				v, err = g.Accs[col-nKeys].Result()
			}
			if err != nil {
				return nil, err
			}
			if err := appendValue(dst, v); err != nil {
				return nil, err
			}
		}
		bufs[col] = dst
	}
	return chunk.New(a.schema, bufs, dic, a.pool)
}
