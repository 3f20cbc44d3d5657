package chunk

import "github.com/vectra-db/vectra/src/vbuf"

// Equal reports whether a and b have the same schema and, row for row in
// logical order, the same nullability and values. It is grounded in the
// teacher's column.ChunksEqual, generalised to walk logical rows through a
// chunk's selection rather than comparing two Chunk implementations' raw
// slices directly - vectra's Chunk is a single concrete type, so there is no
// type switch, only a per-Kind value comparison.
func Equal(a, b *Chunk) bool {
	if !a.schema.Equal(b.schema) {
		return false
	}
	if a.RowCount() != b.RowCount() {
		return false
	}
	for col := 0; col < a.schema.Len(); col++ {
		ba, bb := a.buffers[col], b.buffers[col]
		if ba.Kind() != bb.Kind() {
			return false
		}
		for row := 0; row < a.RowCount(); row++ {
			pa, pb := a.PhysicalIndex(row), b.PhysicalIndex(row)
			na, nb := ba.IsNull(pa), bb.IsNull(pb)
			if na != nb {
				return false
			}
			if na {
				continue
			}
			if !cellEqual(ba, bb, pa, pb) {
				return false
			}
		}
	}
	return true
}

func cellEqual(ba, bb vbuf.Buffer, pa, pb int) bool {
	switch t := ba.(type) {
	case *vbuf.BoolBuffer:
		return t.Get(pa) == bb.(*vbuf.BoolBuffer).Get(pb)
	case *vbuf.StringBuffer:
		return t.GetString(pa) == bb.(*vbuf.StringBuffer).GetString(pb)
	case *vbuf.NumericBuffer[int8]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[int8]).Get(pb)
	case *vbuf.NumericBuffer[int16]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[int16]).Get(pb)
	case *vbuf.NumericBuffer[int32]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[int32]).Get(pb)
	case *vbuf.NumericBuffer[int64]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[int64]).Get(pb)
	case *vbuf.NumericBuffer[uint8]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[uint8]).Get(pb)
	case *vbuf.NumericBuffer[uint16]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[uint16]).Get(pb)
	case *vbuf.NumericBuffer[uint32]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[uint32]).Get(pb)
	case *vbuf.NumericBuffer[uint64]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[uint64]).Get(pb)
	case *vbuf.NumericBuffer[float32]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[float32]).Get(pb)
	case *vbuf.NumericBuffer[float64]:
		return t.Get(pa) == bb.(*vbuf.NumericBuffer[float64]).Get(pb)
	default:
		panic("chunk: unsupported buffer kind in Equal")
	}
}
