package operator

import (
	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/vtype"
)

// Limit emits exactly Count logical rows starting at cumulative logical
// offset Start across the upstream stream, per spec.md §4.8. Once Count
// rows have been emitted it returns io.EOF without pulling upstream again.
type Limit struct {
	upstream Source
	schema   vtype.Schema
	start    int64
	count    int64

	consumed int64 // cumulative logical rows seen from upstream so far
	emitted  int64
	done     bool
}

// NewLimit builds a Limit over upstream; start and count must be >= 0.
func NewLimit(upstream Source, schema vtype.Schema, start, count int64) *Limit {
	return &Limit{upstream: upstream, schema: schema, start: start, count: count}
}

func (l *Limit) Schema() vtype.Schema { return l.schema }

func (l *Limit) Next() (*chunk.Chunk, error) {
	if l.done || l.emitted >= l.count {
		return nil, errDone
	}
	for {
		c, err := l.upstream.Next()
		if err != nil {
			l.done = true
			return nil, err
		}
		n := int64(c.RowCount())
		loStart := l.start - l.consumed
		if loStart < 0 {
			loStart = 0
		}
		loEnd := l.start + l.count - l.consumed
		if loEnd > n {
			loEnd = n
		}
		l.consumed += n
		if loEnd <= loStart {
			if l.consumed >= l.start+l.count {
				l.done = true
				return nil, errDone
			}
			continue
		}
		sel := make([]uint32, 0, loEnd-loStart)
		for row := loStart; row < loEnd; row++ {
			sel = append(sel, uint32(c.PhysicalIndex(int(row))))
		}
		l.emitted += int64(len(sel))
		if l.emitted >= l.count {
			l.done = true
		}
		return selectChunk(c, sel), nil
	}
}
