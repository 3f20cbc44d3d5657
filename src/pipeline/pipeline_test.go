package pipeline

import (
	"io"
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/operator"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/vtype"
)

func testSchema(t *testing.T) vtype.Schema {
	t.Helper()
	s, err := vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "id", DType: vtype.DType{Kind: vtype.KindInt64}},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func testChunk(t *testing.T, schema vtype.Schema, ids []int64) *chunk.Chunk {
	t.Helper()
	buf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, len(ids), false)
	for _, v := range ids {
		if err := buf.Append(v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	c, err := chunk.New(schema, []vbuf.Buffer{buf}, dict.New(), nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

type staticSource struct {
	chunks []*chunk.Chunk
	pos    int
}

func (s *staticSource) Next() (*chunk.Chunk, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func TestExecuteMaterializesAllChunks(t *testing.T) {
	schema := testSchema(t)
	src := &staticSource{chunks: []*chunk.Chunk{
		testChunk(t, schema, []int64{1, 2}),
		testChunk(t, schema, []int64{3}),
	}}
	filtered, err := operator.NewFilter(src, &expr.Cmp{Op: expr.CmpGe, Left: &expr.Column{Name: "id"}, Right: expr.NewLiteralInt(2)}, schema)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}

	p := New(filtered, schema, nil, nil)
	result, err := p.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	total := 0
	for _, c := range result.Chunks {
		total += c.RowCount()
	}
	if total != 2 {
		t.Errorf("expected 2 rows (id>=2), got %d", total)
	}
}

func TestExecuteRespectsCancellation(t *testing.T) {
	schema := testSchema(t)
	src := &staticSource{chunks: []*chunk.Chunk{
		testChunk(t, schema, []int64{1}),
		testChunk(t, schema, []int64{2}),
	}}
	token := &CancelToken{}
	token.Cancel()

	p := New(src, schema, token, nil)
	_, err := p.Execute()
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestExecuteAsyncPullsOneChunkAtATime(t *testing.T) {
	schema := testSchema(t)
	src := &staticSource{chunks: []*chunk.Chunk{
		testChunk(t, schema, []int64{1}),
		testChunk(t, schema, []int64{2}),
	}}
	p := New(src, schema, nil, nil)
	result := p.ExecuteAsync()

	var seen int
	for {
		c, err := result.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen += c.RowCount()
	}
	if seen != 2 {
		t.Errorf("expected 2 total rows, got %d", seen)
	}
}
