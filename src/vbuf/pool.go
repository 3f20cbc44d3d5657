package vbuf

import (
	"sync"

	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/membudget"
	"github.com/vectra-db/vectra/src/vtype"
)

// poolKey identifies a class of recyclable buffer. Capacity is part of the
// key because a Buffer's storage is fixed-size; a pool never hands out a
// buffer smaller than requested, but distinct capacities are kept in
// separate freelists so a pipeline running at a steady chunk size does not
// thrash between odd-sized allocations.
type poolKey struct {
	kind     vtype.Kind
	capacity int
	nullable bool
}

// BufferPool recycles Buffers across chunks, the way the pipeline's chunk
// lifecycle requires (spec.md component list item "BufferPool": "buffers
// are acquired from the pool by operators/parsers, owned by exactly one
// chunk, and returned via dispose()"). The teacher never pools chunk.go's
// Chunk* structs - each batch of column.NewTypedColumnsFromSchema allocates
// fresh - but it does preallocate slices with a generous defaultChunkCap up
// front in the same spirit of avoiding per-row growth; BufferPool pushes
// that idea one step further into an explicit acquire/release recycler.
type BufferPool struct {
	mu       sync.Mutex
	free     map[poolKey][]Buffer
	stats    Stats
	reserver membudget.Reserver
}

// Stats tracks pool activity for diagnostics; it is not part of spec.md's
// invariants and exists purely for observability (consulted by the demo CLI
// and tests, not by any operator's correctness).
type Stats struct {
	Acquired  int64
	Recycled  int64
	Allocated int64
}

// NewBufferPool creates an empty pool with no memory budget attached - every
// Acquire succeeds regardless of size, matching membudget.Noop's contract.
func NewBufferPool() *BufferPool {
	return NewBufferPoolWithBudget(membudget.Noop())
}

// NewBufferPoolWithBudget creates an empty pool that consults reserver
// before any large allocation (spec.md §5: "column buffers of size ≥ 64
// KiB"), the pool-level wiring DESIGN.md's membudget entry used to describe
// as missing.
func NewBufferPoolWithBudget(reserver membudget.Reserver) *BufferPool {
	if reserver == nil {
		reserver = membudget.Noop()
	}
	return &BufferPool{free: make(map[poolKey][]Buffer), reserver: reserver}
}

// bufferBytes estimates a buffer's backing storage in bytes, the figure
// Reserve/Release account against - capacity times the kind's fixed element
// width, the same width ColumnBuffer already reserves per row.
func bufferBytes(kind vtype.Kind, capacity int) int {
	return capacity * kind.ElementWidth()
}

// Acquire returns a Buffer of the requested shape, either recycled from a
// prior Release or freshly allocated. dic is only consulted when kind is
// KindString; it is ignored (and may be nil) otherwise. Acquiring a buffer
// of size ≥ 64 KiB consults the pool's Reserver first; a denial surfaces as
// a KindOutOfBudget error and no buffer is returned.
func (p *BufferPool) Acquire(kind vtype.Kind, capacity int, nullable bool, dic *dict.Dictionary) (Buffer, error) {
	nbytes := bufferBytes(kind, capacity)
	if err := p.reserver.Reserve(nbytes); err != nil {
		return nil, err
	}

	key := poolKey{kind: kind, capacity: capacity, nullable: nullable}

	p.mu.Lock()
	if bufs := p.free[key]; len(bufs) > 0 {
		b := bufs[len(bufs)-1]
		p.free[key] = bufs[:len(bufs)-1]
		p.stats.Acquired++
		p.mu.Unlock()
		if sb, ok := b.(*StringBuffer); ok {
			sb.dic = dic
		}
		b.Reset()
		return b, nil
	}
	p.stats.Allocated++
	p.stats.Acquired++
	p.mu.Unlock()

	return newBuffer(kind, capacity, nullable, dic), nil
}

// Release returns b to the pool for future Acquire calls of the same shape,
// and gives its reserved bytes (if any) back to the Reserver. Callers must
// not use b after Release; violating this is a programmer error, not a
// recoverable one, matching the teacher's convention that misuse of an
// already-returned resource panics rather than corrupts state silently.
func (p *BufferPool) Release(b Buffer) {
	key := poolKey{kind: b.Kind(), capacity: b.Capacity(), nullable: b.Nullable()}
	p.reserver.Release(bufferBytes(b.Kind(), b.Capacity()))
	b.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Recycled++
	p.free[key] = append(p.free[key], b)
}

// Stats returns a snapshot of pool activity counters.
func (p *BufferPool) StatsSnapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func newBuffer(kind vtype.Kind, capacity int, nullable bool, dic *dict.Dictionary) Buffer {
	switch kind {
	case vtype.KindBool:
		return NewBoolBuffer(capacity, nullable)
	case vtype.KindInt8:
		return NewNumericBuffer[int8](kind, capacity, nullable)
	case vtype.KindInt16:
		return NewNumericBuffer[int16](kind, capacity, nullable)
	case vtype.KindInt32:
		return NewNumericBuffer[int32](kind, capacity, nullable)
	case vtype.KindInt64:
		return NewNumericBuffer[int64](kind, capacity, nullable)
	case vtype.KindUint8:
		return NewNumericBuffer[uint8](kind, capacity, nullable)
	case vtype.KindUint16:
		return NewNumericBuffer[uint16](kind, capacity, nullable)
	case vtype.KindUint32:
		return NewNumericBuffer[uint32](kind, capacity, nullable)
	case vtype.KindUint64:
		return NewNumericBuffer[uint64](kind, capacity, nullable)
	case vtype.KindFloat32:
		return NewNumericBuffer[float32](kind, capacity, nullable)
	case vtype.KindFloat64:
		return NewNumericBuffer[float64](kind, capacity, nullable)
	case vtype.KindTimestamp:
		return NewNumericBuffer[int64](kind, capacity, nullable)
	case vtype.KindDate:
		return NewNumericBuffer[int64](kind, capacity, nullable)
	case vtype.KindString:
		d := dic
		if d == nil {
			d = dict.New()
		}
		return NewStringBuffer(capacity, nullable, d)
	default:
		panic("vbuf: unsupported kind")
	}
}
