package operator

import (
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/expr"
)

func TestFilterScalarPath(t *testing.T) {
	schema := idSchema(t)
	c := buildIDChunk(t, schema, nil, []int64{1, 2, 3, 4, 5}, []string{"a", "b", "c", "d", "e"})
	src := &sliceSource{chunks: []*chunk.Chunk{c}}

	f, err := NewFilter(src, &expr.Cmp{Op: expr.CmpGt, Left: &expr.Column{Name: "id"}, Right: expr.NewLiteralInt(2)}, schema)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	out := drain(t, f)
	got := collectIDs(t, schema, out)
	want := []int64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFilterEmptyResultSkipped(t *testing.T) {
	schema := idSchema(t)
	c := buildIDChunk(t, schema, nil, []int64{1, 2}, []string{"a", "b"})
	src := &sliceSource{chunks: []*chunk.Chunk{c}}

	f, err := NewFilter(src, &expr.Cmp{Op: expr.CmpGt, Left: &expr.Column{Name: "id"}, Right: expr.NewLiteralInt(100)}, schema)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	out := drain(t, f)
	if len(out) != 0 {
		t.Errorf("expected no chunks, got %d", len(out))
	}
}
