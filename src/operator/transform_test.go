package operator

import (
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
)

func TestTransformAddsComputedColumn(t *testing.T) {
	schema := idSchema(t)
	c := buildIDChunk(t, schema, nil, []int64{1, 2, 3}, []string{"a", "b", "c"})
	src := &sliceSource{chunks: []*chunk.Chunk{c}}

	doubled := &expr.Arith{Op: expr.ArithMul, Left: &expr.Column{Name: "id"}, Right: expr.NewLiteralInt(2)}
	tr, err := NewTransform(src, []Computed{{Name: "doubled", E: doubled}}, schema, vbuf.NewBufferPool())
	if err != nil {
		t.Fatalf("NewTransform: %v", err)
	}
	if tr.Schema().Len() != 3 {
		t.Fatalf("expected 3 output columns, got %d", tr.Schema().Len())
	}
	out := drain(t, tr)
	idx, _, err := tr.Schema().LocateColumn("doubled")
	if err != nil {
		t.Fatalf("locate doubled: %v", err)
	}
	buf := out[0].Buffer(idx).(*vbuf.NumericBuffer[int64])
	want := []int64{2, 4, 6}
	for i, w := range want {
		if got := buf.Get(i); got != w {
			t.Errorf("row %d: got %d, want %d", i, got, w)
		}
	}
}

func TestTransformReplacesExistingColumn(t *testing.T) {
	schema := idSchema(t)
	c := buildIDChunk(t, schema, nil, []int64{1, 2}, []string{"a", "b"})
	src := &sliceSource{chunks: []*chunk.Chunk{c}}

	incr := &expr.Arith{Op: expr.ArithAdd, Left: &expr.Column{Name: "id"}, Right: expr.NewLiteralInt(10)}
	tr, err := NewTransform(src, []Computed{{Name: "id", E: incr}}, schema, vbuf.NewBufferPool())
	if err != nil {
		t.Fatalf("NewTransform: %v", err)
	}
	if tr.Schema().Len() != 2 {
		t.Fatalf("expected replace in place, got %d columns", tr.Schema().Len())
	}
	out := drain(t, tr)
	ids := collectIDs(t, tr.Schema(), out)
	want := []int64{11, 12}
	for i, w := range want {
		if ids[i] != w {
			t.Errorf("row %d: got %d, want %d", i, ids[i], w)
		}
	}
}
