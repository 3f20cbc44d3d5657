package operator

import (
	"sort"

	"github.com/vectra-db/vectra/src/aggstate"
	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Unique deduplicates rows by a key column subset, per spec.md §4.10.
// Keep-first streams chunk by chunk; keep-last must buffer the whole
// input because a later duplicate can still replace an earlier one.
type Unique struct {
	upstream  Source
	schema    vtype.Schema
	keys      []expr.ValueKernel
	keepFirst bool

	seen map[aggstate.GroupKey]struct{} // keep-first only

	out     []*chunk.Chunk
	outPos  int
	started bool
}

// NewUnique builds a Unique operator over the named key columns (all
// columns, in schema order, if keyCols is empty).
func NewUnique(upstream Source, keyCols []string, keepFirst bool, schema vtype.Schema) (*Unique, error) {
	if len(keyCols) == 0 {
		keyCols = schema.Names()
	}
	kernels := make([]expr.ValueKernel, len(keyCols))
	for i, name := range keyCols {
		vk, err := expr.Compile(&expr.Column{Name: name}, schema)
		if err != nil {
			return nil, err
		}
		kernels[i] = vk
	}
	u := &Unique{upstream: upstream, schema: schema, keys: kernels, keepFirst: keepFirst}
	if keepFirst {
		u.seen = make(map[aggstate.GroupKey]struct{})
	}
	return u, nil
}

func (u *Unique) Schema() vtype.Schema { return u.schema }

func (u *Unique) Next() (*chunk.Chunk, error) {
	if u.keepFirst {
		return u.nextFirst()
	}
	return u.nextLast()
}

func (u *Unique) nextFirst() (*chunk.Chunk, error) {
	for {
		c, err := u.upstream.Next()
		if err != nil {
			return nil, err
		}
		var sel []uint32
		for row := 0; row < c.RowCount(); row++ {
			key, err := u.keyFor(c, row)
			if err != nil {
				return nil, err
			}
			if _, ok := u.seen[key]; ok {
				continue
			}
			u.seen[key] = struct{}{}
			sel = append(sel, uint32(c.PhysicalIndex(row)))
		}
		if len(sel) == 0 {
			continue
		}
		return selectChunk(c, sel), nil
	}
}

func (u *Unique) nextLast() (*chunk.Chunk, error) {
	if !u.started {
		if err := u.runLast(); err != nil {
			return nil, err
		}
		u.started = true
	}
	if u.outPos >= len(u.out) {
		return nil, errDone
	}
	c := u.out[u.outPos]
	u.outPos++
	return c, nil
}

// runLast keeps, for each key, the last row that carried it, and emits the
// kept rows in the order those rows themselves appeared in the input - not
// the order their key first appeared. For input A,B,A with keep-last
// semantics the kept B and the kept (second) A retain their own input
// positions, so the output is B,A.
func (u *Unique) runLast() error {
	_, rows, err := collectAll(u.upstream)
	if err != nil {
		return err
	}
	kept := make(map[aggstate.GroupKey]rowRef)
	lastSeenAt := make(map[aggstate.GroupKey]int)
	for i, r := range rows {
		key, err := u.keyFor(r.chunk, r.row)
		if err != nil {
			return err
		}
		kept[key] = r
		lastSeenAt[key] = i
	}
	order := make([]aggstate.GroupKey, 0, len(kept))
	for k := range kept {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool { return lastSeenAt[order[i]] < lastSeenAt[order[j]] })
	finalRows := make([]rowRef, len(order))
	for i, k := range order {
		finalRows[i] = kept[k]
	}
	return u.emit(finalRows)
}

func (u *Unique) keyFor(c *chunk.Chunk, row int) (aggstate.GroupKey, error) {
	values := make([]expr.Value, len(u.keys))
	for i, k := range u.keys {
		v, err := k(c, row)
		if err != nil {
			return "", err
		}
		values[i] = v
	}
	return aggstate.BuildKey(values), nil
}

func (u *Unique) emit(rows []rowRef) error {
	const batch = 16384
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		c, err := buildRowChunk(u.schema, rows[start:end], nil)
		if err != nil {
			return err
		}
		u.out = append(u.out, c)
	}
	return nil
}
