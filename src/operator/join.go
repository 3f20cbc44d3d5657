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

// JoinKind selects inner or left outer semantics (spec.md §4.12).
type JoinKind uint8

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// Join implements the hash-build/probe equi-join of spec.md §4.12: the
// right side is materialized entirely into a hash table keyed by its join
// columns; the left side streams through, probing for matches.
type Join struct {
	left, right        Source
	leftKeys, rightKeys []string
	kind                JoinKind
	pool                *vbuf.BufferPool

	schema       vtype.Schema
	leftReaders  []expr.ValueKernel // one per output left-origin column, reading the left chunk
	rightReaders []expr.ValueKernel // one per output right-origin column, reading the right chunk
	rightKeyKind []expr.ValueKernel
	leftKeyKind  []expr.ValueKernel
	rightKeyIdx  map[string]bool // right schema column names excluded from output (join keys)

	built    bool
	table    map[aggstate.GroupKey][]rowRef
	rightDic *dict.Dictionary

	pending []*chunk.Chunk
	pendPos int
	done    bool
}

// NewJoin validates the key lists and builds the output schema: all left
// columns, then right columns excluding the join keys, with `_x`/`_y`
// suffixes applied to any remaining name collision.
func NewJoin(left, right Source, leftKeys, rightKeys []string, kind JoinKind, leftSchema, rightSchema vtype.Schema, pool *vbuf.BufferPool) (*Join, error) {
	if len(leftKeys) == 0 || len(leftKeys) != len(rightKeys) {
		return nil, verr.New(verr.KindInvalidArgument, "join: leftKeys and rightKeys must be non-empty and equal length")
	}
	if pool == nil {
		pool = vbuf.NewBufferPool()
	}
	leftKeyKind := make([]expr.ValueKernel, len(leftKeys))
	for i, name := range leftKeys {
		vk, err := expr.Compile(&expr.Column{Name: name}, leftSchema)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "join: left key %q", name)
		}
		leftKeyKind[i] = vk
	}
	rightKeyKind := make([]expr.ValueKernel, len(rightKeys))
	rightKeySet := make(map[string]bool, len(rightKeys))
	for i, name := range rightKeys {
		vk, err := expr.Compile(&expr.Column{Name: name}, rightSchema)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "join: right key %q", name)
		}
		rightKeyKind[i] = vk
		rightKeySet[name] = true
		lt, err := expr.InferType(&expr.Column{Name: leftKeys[i]}, leftSchema)
		if err != nil {
			return nil, err
		}
		rt, err := expr.InferType(&expr.Column{Name: name}, rightSchema)
		if err != nil {
			return nil, err
		}
		if lt.Kind != rt.Kind && !(lt.Kind.IsNumeric() && rt.Kind.IsNumeric()) {
			return nil, verr.New(verr.KindTypeMismatch, "join: key %q/%q have incomparable types %v/%v", leftKeys[i], name, lt.Kind, rt.Kind)
		}
	}

	leftNames := make(map[string]bool, leftSchema.Len())
	for _, c := range leftSchema.Columns {
		leftNames[c.Name] = true
	}

	var cols []vtype.ColumnDescriptor
	var leftReaders, rightReaders []expr.ValueKernel
	for _, c := range leftSchema.Columns {
		vk, _ := expr.Compile(&expr.Column{Name: c.Name}, leftSchema)
		name := c.Name
		if leftNames[name] && rightHasNonKeyCollision(rightSchema, rightKeySet, name) {
			name += "_x"
		}
		cols = append(cols, vtype.ColumnDescriptor{Name: name, DType: vtype.DType{Kind: c.DType.Kind, Nullable: true}})
		leftReaders = append(leftReaders, vk)
	}
	for _, c := range rightSchema.Columns {
		if rightKeySet[c.Name] {
			continue
		}
		vk, _ := expr.Compile(&expr.Column{Name: c.Name}, rightSchema)
		name := c.Name
		if leftNames[name] {
			name += "_y"
		}
		cols = append(cols, vtype.ColumnDescriptor{Name: name, DType: vtype.DType{Kind: c.DType.Kind, Nullable: true}})
		rightReaders = append(rightReaders, vk)
	}

	schema, err := vtype.NewSchema(cols)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "join: invalid output schema")
	}

	return &Join{
		left: left, right: right, leftKeys: leftKeys, rightKeys: rightKeys, kind: kind, pool: pool,
		schema: schema, leftReaders: leftReaders, rightReaders: rightReaders,
		leftKeyKind: leftKeyKind, rightKeyKind: rightKeyKind, rightKeyIdx: rightKeySet,
	}, nil
}

func rightHasNonKeyCollision(rightSchema vtype.Schema, rightKeys map[string]bool, name string) bool {
	_, _, err := rightSchema.LocateColumn(name)
	return err == nil && !rightKeys[name]
}

func (j *Join) Schema() vtype.Schema { return j.schema }

func (j *Join) Next() (*chunk.Chunk, error) {
	if !j.built {
		if err := j.buildRight(); err != nil {
			return nil, err
		}
		j.built = true
	}
	for j.pendPos >= len(j.pending) {
		if j.done {
			return nil, errDone
		}
		if err := j.probeNext(); err != nil {
			return nil, err
		}
	}
	c := j.pending[j.pendPos]
	j.pendPos++
	return c, nil
}

func (j *Join) buildRight() error {
	j.table = make(map[aggstate.GroupKey][]rowRef)
	for {
		c, err := j.right.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if j.rightDic == nil {
			j.rightDic = c.Dictionary()
		}
		mc, err := c.Materialize()
		if err != nil {
			return err
		}
		for row := 0; row < mc.PhysicalRowCount(); row++ {
			key, isNull, err := j.keyFor(j.rightKeyKind, mc, row)
			if err != nil {
				return err
			}
			if isNull {
				continue
			}
			j.table[key] = append(j.table[key], rowRef{chunk: mc, row: row})
		}
	}
}

func (j *Join) keyFor(kinds []expr.ValueKernel, c *chunk.Chunk, row int) (aggstate.GroupKey, bool, error) {
	values := make([]expr.Value, len(kinds))
	for i, k := range kinds {
		v, err := k(c, row)
		if err != nil {
			return "", false, err
		}
		if v.Null {
			return "", true, nil
		}
		values[i] = v
	}
	return aggstate.BuildKey(values), false, nil
}

const joinBatchSize = 16384

// probeNext pulls whole left chunks and accumulates their output rows until
// at least joinBatchSize rows are collected or the left side is exhausted
// (which marks done), then flushes them as one pending chunk.
func (j *Join) probeNext() error {
	var outRows []joinRow
	for len(outRows) < joinBatchSize {
		c, err := j.left.Next()
		if err == io.EOF {
			j.done = true
			break
		}
		if err != nil {
			return err
		}
		for row := 0; row < c.RowCount(); row++ {
			key, isNull, err := j.keyFor(j.leftKeyKind, c, row)
			if err != nil {
				return err
			}
			var matches []rowRef
			if !isNull {
				matches = j.table[key]
			}
			if len(matches) == 0 {
				if j.kind == JoinLeft {
					outRows = append(outRows, joinRow{left: c, leftRow: row})
				}
				continue
			}
			for _, m := range matches {
				outRows = append(outRows, joinRow{left: c, leftRow: row, right: m.chunk, rightRow: m.row, matched: true})
			}
		}
	}
	if len(outRows) == 0 {
		return nil
	}
	chunk, err := j.buildOutput(outRows)
	if err != nil {
		return err
	}
	j.pending = append(j.pending, chunk)
	return nil
}

type joinRow struct {
	left     *chunk.Chunk
	leftRow  int
	right    *chunk.Chunk
	rightRow int
	matched  bool
}

func (j *Join) buildOutput(rows []joinRow) (*chunk.Chunk, error) {
	bufs := make([]vbuf.Buffer, j.schema.Len())
	nLeft := len(j.leftReaders)
	for col := 0; col < j.schema.Len(); col++ {
		cd := j.schema.Columns[col]
		dst, err := j.pool.Acquire(cd.DType.Kind, len(rows), true, j.rightDic)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			var v expr.Value
			var err error
			if col < nLeft {
				v, err = j.leftReaders[col](r.left, r.leftRow)
			} else if r.matched {
				v, err = j.rightReaders[col-nLeft](r.right, r.rightRow)
			} else {
				v = expr.Value{Kind: cd.DType.Kind, Null: true}
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
	return chunk.New(j.schema, bufs, j.rightDic, j.pool)
}
