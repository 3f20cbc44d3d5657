// Package vbuf implements the ColumnBuffer described in spec.md §4.1: a
// fixed-capacity, byte-backed column with an optional null bitmap, plus the
// BufferPool recycler from §4 item 5.
//
// The teacher's column.ChunkInts/ChunkFloats/ChunkBools/ChunkStrings (in
// column/chunk.go) are append-only growable slices with no capacity limit
// and no pooling; vbuf keeps their shape (typed slice + nullability bitmap,
// one struct family per physical representation, append/get/prune
// primitives) but regeneralises them into the fixed-capacity, poolable
// buffers spec.md requires. Per DESIGN NOTES ("generate one compile-time
// specialised path per physical kind"), the numeric families are built with
// a Go generic so each instantiation monomorphises into one specialised
// path, and the dynamic Kind dispatch only happens once, at buffer
// construction - never per row.
package vbuf

import (
	"github.com/vectra-db/vectra/src/bitmap"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Buffer is the capacity-bounded, typed column storage unit. Concrete
// implementations are NumericBuffer[T] (one instantiation per integer/float
// kind), BoolBuffer and StringBuffer (which stores dictionary ids as int32
// under the hood, per spec.md §3).
type Buffer interface {
	Kind() vtype.Kind
	Nullable() bool
	Len() int
	Capacity() int
	IsNull(i int) bool
	SetNull(i int)
	SetNotNull(i int)
	AppendNull() error
	// CopySelected appends len(sel) rows picked from src by logical index,
	// growing this buffer's length by len(sel). src must share this
	// buffer's Kind.
	CopySelected(src Buffer, sel []uint32) error
	// Clone returns an independent copy sharing no backing storage.
	Clone() Buffer
	// Reset clears length (and null bits) back to zero without releasing
	// the underlying storage, so the pool can recycle it.
	Reset()
}

func capacityExceeded(kind vtype.Kind, capacity int) error {
	return verr.New(verr.KindCapacityExceeded, "vbuf: append past capacity %d for kind %v", capacity, kind)
}

// numeric is the set of physical Go types a NumericBuffer can hold.
type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// NumericBuffer is a fixed-capacity buffer for any integer, float, Date or
// Timestamp kind - every one of those kinds reinterprets a flat []T with no
// further transformation (spec.md §4.4 cast semantics: "to/from Date/Timestamp
// reinterprets the stored 64-bit integer unchanged").
type NumericBuffer[T numeric] struct {
	kind     vtype.Kind
	data     []T
	length   int
	nullable bool
	nulls    *bitmap.Bitmap
}

// NewNumericBuffer allocates a buffer of the given capacity for kind.
func NewNumericBuffer[T numeric](kind vtype.Kind, capacity int, nullable bool) *NumericBuffer[T] {
	if capacity < 0 {
		panic("vbuf: negative capacity")
	}
	b := &NumericBuffer[T]{kind: kind, data: make([]T, capacity), nullable: nullable}
	if nullable {
		b.nulls = bitmap.NewBitmap(capacity)
	}
	return b
}

func (b *NumericBuffer[T]) Kind() vtype.Kind { return b.kind }
func (b *NumericBuffer[T]) Nullable() bool   { return b.nullable }
func (b *NumericBuffer[T]) Len() int         { return b.length }
func (b *NumericBuffer[T]) Capacity() int    { return len(b.data) }

// Append writes v at the current length and advances it. Appending past
// capacity is a CapacityExceeded error (spec.md §4.1), never a panic - the
// pool sizes buffers so this should not happen in normal pipeline use.
func (b *NumericBuffer[T]) Append(v T) error {
	if b.length >= len(b.data) {
		return capacityExceeded(b.kind, len(b.data))
	}
	b.data[b.length] = v
	b.length++
	return nil
}

func (b *NumericBuffer[T]) AppendNull() error {
	if b.length >= len(b.data) {
		return capacityExceeded(b.kind, len(b.data))
	}
	if b.nulls == nil {
		b.nulls = bitmap.NewBitmap(len(b.data))
	}
	b.nulls.Set(b.length, true)
	b.length++
	return nil
}

// Get reads the value at logical position i. The value at a null position
// is unspecified (spec.md §4.1: "values at null positions are arbitrary").
func (b *NumericBuffer[T]) Get(i int) T { return b.data[i] }

func (b *NumericBuffer[T]) IsNull(i int) bool {
	return b.nulls != nil && b.nulls.Get(i)
}

func (b *NumericBuffer[T]) SetNull(i int) {
	if b.nulls == nil {
		b.nulls = bitmap.NewBitmap(len(b.data))
	}
	b.nulls.Set(i, true)
}

func (b *NumericBuffer[T]) SetNotNull(i int) {
	if b.nulls != nil {
		b.nulls.Set(i, false)
	}
}

func (b *NumericBuffer[T]) CopySelected(src Buffer, sel []uint32) error {
	sb, ok := src.(*NumericBuffer[T])
	if !ok || sb.kind != b.kind {
		return verr.New(verr.KindSchemaMismatch, "vbuf: CopySelected kind mismatch")
	}
	for _, pos := range sel {
		if b.length >= len(b.data) {
			return capacityExceeded(b.kind, len(b.data))
		}
		b.data[b.length] = sb.data[pos]
		if sb.IsNull(int(pos)) {
			b.SetNull(b.length)
		}
		b.length++
	}
	return nil
}

func (b *NumericBuffer[T]) Clone() Buffer {
	nb := &NumericBuffer[T]{
		kind:     b.kind,
		data:     append([]T(nil), b.data...),
		length:   b.length,
		nullable: b.nullable,
	}
	if b.nulls != nil {
		nb.nulls = b.nulls.Clone()
	}
	return nb
}

func (b *NumericBuffer[T]) Reset() {
	b.length = 0
	if b.nulls != nil {
		b.nulls = bitmap.NewBitmap(len(b.data))
	}
}

// BoolBuffer bit-packs its values (per spec.md §3, boolean element width is
// 1 byte "by convention" for accounting purposes, but the natural Go
// representation is a bitmap, matching the teacher's ChunkBools).
type BoolBuffer struct {
	capacity int
	length   int
	nullable bool
	data     *bitmap.Bitmap
	nulls    *bitmap.Bitmap
}

func NewBoolBuffer(capacity int, nullable bool) *BoolBuffer {
	b := &BoolBuffer{capacity: capacity, nullable: nullable, data: bitmap.NewBitmap(capacity)}
	if nullable {
		b.nulls = bitmap.NewBitmap(capacity)
	}
	return b
}

func (b *BoolBuffer) Kind() vtype.Kind { return vtype.KindBool }
func (b *BoolBuffer) Nullable() bool   { return b.nullable }
func (b *BoolBuffer) Len() int         { return b.length }
func (b *BoolBuffer) Capacity() int    { return b.capacity }

func (b *BoolBuffer) Append(v bool) error {
	if b.length >= b.capacity {
		return capacityExceeded(vtype.KindBool, b.capacity)
	}
	b.data.Set(b.length, v)
	b.length++
	return nil
}

func (b *BoolBuffer) AppendNull() error {
	if b.length >= b.capacity {
		return capacityExceeded(vtype.KindBool, b.capacity)
	}
	if b.nulls == nil {
		b.nulls = bitmap.NewBitmap(b.capacity)
	}
	b.nulls.Set(b.length, true)
	b.length++
	return nil
}

func (b *BoolBuffer) Get(i int) bool { return b.data.Get(i) }

func (b *BoolBuffer) IsNull(i int) bool { return b.nulls != nil && b.nulls.Get(i) }

func (b *BoolBuffer) SetNull(i int) {
	if b.nulls == nil {
		b.nulls = bitmap.NewBitmap(b.capacity)
	}
	b.nulls.Set(i, true)
}

func (b *BoolBuffer) SetNotNull(i int) {
	if b.nulls != nil {
		b.nulls.Set(i, false)
	}
}

func (b *BoolBuffer) CopySelected(src Buffer, sel []uint32) error {
	sb, ok := src.(*BoolBuffer)
	if !ok {
		return verr.New(verr.KindSchemaMismatch, "vbuf: CopySelected kind mismatch")
	}
	for _, pos := range sel {
		if b.length >= b.capacity {
			return capacityExceeded(vtype.KindBool, b.capacity)
		}
		b.data.Set(b.length, sb.data.Get(int(pos)))
		if sb.IsNull(int(pos)) {
			b.SetNull(b.length)
		}
		b.length++
	}
	return nil
}

func (b *BoolBuffer) Clone() Buffer {
	nb := &BoolBuffer{capacity: b.capacity, length: b.length, nullable: b.nullable, data: b.data.Clone()}
	if b.nulls != nil {
		nb.nulls = b.nulls.Clone()
	}
	return nb
}

func (b *BoolBuffer) Reset() {
	b.length = 0
	b.data = bitmap.NewBitmap(b.capacity)
	if b.nulls != nil {
		b.nulls = bitmap.NewBitmap(b.capacity)
	}
}
