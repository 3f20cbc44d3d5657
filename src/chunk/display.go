package chunk

import (
	"encoding/json"

	"github.com/vectra-db/vectra/src/vbuf"
)

// MarshalJSON renders the chunk's logical rows as an array of objects keyed
// by column name, the way the teacher's per-Chunk MarshalJSON renders one
// column's values (column/chunk.go). Null cells marshal to JSON null.
// String cells are resolved strictly through the chunk's dictionary - this
// is the display path spec.md's supplemented features call out explicitly,
// since it is the one place a raw dictionary id must never leak out.
func (c *Chunk) MarshalJSON() ([]byte, error) {
	names := c.schema.Names()
	rows := make([]map[string]interface{}, 0, c.RowCount())
	for logical := 0; logical < c.RowCount(); logical++ {
		row := make(map[string]interface{}, len(names))
		phys := c.PhysicalIndex(logical)
		for col, name := range names {
			row[name] = cellValue(c.buffers[col], phys)
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}

// cellValue extracts a JSON-friendly value for a single physical cell,
// returning nil for a null cell regardless of kind.
func cellValue(b vbuf.Buffer, phys int) interface{} {
	if b.IsNull(phys) {
		return nil
	}
	switch t := b.(type) {
	case *vbuf.BoolBuffer:
		return t.Get(phys)
	case *vbuf.StringBuffer:
		return t.GetString(phys)
	case *vbuf.NumericBuffer[int8]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[int16]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[int32]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[int64]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[uint8]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[uint16]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[uint32]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[uint64]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[float32]:
		return t.Get(phys)
	case *vbuf.NumericBuffer[float64]:
		return t.Get(phys)
	default:
		panic("chunk: unsupported buffer kind in cellValue")
	}
}
