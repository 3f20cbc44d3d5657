package operator

import (
	"io"
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/vtype"
)

// idSchema is a 2-column (id int64, name string) schema used across most
// operator tests, mirroring expr_test.go's buildTestChunk approach of one
// small shared fixture per package.
func idSchema(t *testing.T) vtype.Schema {
	t.Helper()
	s, err := vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "id", DType: vtype.DType{Kind: vtype.KindInt64}},
		{Name: "name", DType: vtype.DType{Kind: vtype.KindString, Nullable: true}},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func buildIDChunk(t *testing.T, schema vtype.Schema, d *dict.Dictionary, ids []int64, names []string) *chunk.Chunk {
	t.Helper()
	if d == nil {
		d = dict.New()
	}
	idBuf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, len(ids), false)
	nameBuf := vbuf.NewStringBuffer(len(names), true, d)
	for i := range ids {
		if err := idBuf.Append(ids[i]); err != nil {
			t.Fatalf("append id: %v", err)
		}
		if names[i] == "" {
			if err := nameBuf.AppendNull(); err != nil {
				t.Fatalf("append null name: %v", err)
			}
			continue
		}
		if err := nameBuf.Append(names[i]); err != nil {
			t.Fatalf("append name: %v", err)
		}
	}
	c, err := chunk.New(schema, []vbuf.Buffer{idBuf, nameBuf}, d, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

// sliceSource replays a fixed slice of chunks, then io.EOF.
type sliceSource struct {
	chunks []*chunk.Chunk
	pos    int
}

func (s *sliceSource) Next() (*chunk.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func drain(t *testing.T, src Source) []*chunk.Chunk {
	t.Helper()
	var out []*chunk.Chunk
	for {
		c, err := src.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("drain: %v", err)
		}
		out = append(out, c)
	}
}

func totalRows(chunks []*chunk.Chunk) int {
	n := 0
	for _, c := range chunks {
		n += c.RowCount()
	}
	return n
}

// collectIDs flattens the "id" column of every chunk in logical order.
func collectIDs(t *testing.T, schema vtype.Schema, chunks []*chunk.Chunk) []int64 {
	t.Helper()
	idx, _, err := schema.LocateColumn("id")
	if err != nil {
		t.Fatalf("locate id: %v", err)
	}
	var out []int64
	for _, c := range chunks {
		buf := c.Buffer(idx).(*vbuf.NumericBuffer[int64])
		for row := 0; row < c.RowCount(); row++ {
			phys := c.PhysicalIndex(row)
			out = append(out, buf.Get(phys))
		}
	}
	return out
}
