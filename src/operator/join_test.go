package operator

import (
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/vtype"
)

func custOrderSchemas(t *testing.T) (custSchema, orderSchema vtype.Schema) {
	t.Helper()
	var err error
	custSchema, err = vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "id", DType: vtype.DType{Kind: vtype.KindInt64}},
		{Name: "name", DType: vtype.DType{Kind: vtype.KindString, Nullable: true}},
	})
	if err != nil {
		t.Fatalf("custSchema: %v", err)
	}
	orderSchema, err = vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "customer_id", DType: vtype.DType{Kind: vtype.KindInt64}},
		{Name: "total", DType: vtype.DType{Kind: vtype.KindInt64}},
	})
	if err != nil {
		t.Fatalf("orderSchema: %v", err)
	}
	return custSchema, orderSchema
}

func buildOrderChunk(t *testing.T, schema vtype.Schema, custIDs []int64, totals []int64) *chunk.Chunk {
	t.Helper()
	idBuf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, len(custIDs), false)
	totalBuf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, len(totals), false)
	for i := range custIDs {
		if err := idBuf.Append(custIDs[i]); err != nil {
			t.Fatalf("append custID: %v", err)
		}
		if err := totalBuf.Append(totals[i]); err != nil {
			t.Fatalf("append total: %v", err)
		}
	}
	c, err := chunk.New(schema, []vbuf.Buffer{idBuf, totalBuf}, dict.New(), nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

func TestJoinInner(t *testing.T) {
	custSchema, orderSchema := custOrderSchemas(t)
	custs := buildIDChunk(t, custSchema, nil, []int64{1, 2, 3}, []string{"alice", "bob", "carol"})
	orders := buildOrderChunk(t, orderSchema, []int64{1, 1, 2}, []int64{100, 200, 50})

	left := &sliceSource{chunks: []*chunk.Chunk{custs}}
	right := &sliceSource{chunks: []*chunk.Chunk{orders}}

	j, err := NewJoin(left, right, []string{"id"}, []string{"customer_id"}, JoinInner, custSchema, orderSchema, vbuf.NewBufferPool())
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	out := drain(t, j)
	if totalRows(out) != 3 {
		t.Fatalf("expected 3 matched rows, got %d", totalRows(out))
	}
	totalIdx, _, err := j.Schema().LocateColumn("total")
	if err != nil {
		t.Fatalf("locate total: %v", err)
	}
	var totals []int64
	for _, c := range out {
		buf := c.Buffer(totalIdx).(*vbuf.NumericBuffer[int64])
		for row := 0; row < c.RowCount(); row++ {
			totals = append(totals, buf.Get(c.PhysicalIndex(row)))
		}
	}
	if len(totals) != 3 {
		t.Fatalf("got %v", totals)
	}
}

func TestJoinMatchesMixedWidthNumericKeys(t *testing.T) {
	leftSchema, err := vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "id", DType: vtype.DType{Kind: vtype.KindInt32}},
		{Name: "name", DType: vtype.DType{Kind: vtype.KindString, Nullable: true}},
	})
	if err != nil {
		t.Fatalf("leftSchema: %v", err)
	}
	rightSchema, err := vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "customer_id", DType: vtype.DType{Kind: vtype.KindFloat64}},
		{Name: "total", DType: vtype.DType{Kind: vtype.KindInt64}},
	})
	if err != nil {
		t.Fatalf("rightSchema: %v", err)
	}

	idBuf := vbuf.NewNumericBuffer[int32](vtype.KindInt32, 2, false)
	_ = idBuf.Append(1)
	_ = idBuf.Append(2)
	nameBuf := vbuf.NewStringBuffer(2, true, dict.New())
	_ = nameBuf.Append("alice")
	_ = nameBuf.Append("bob")
	custs, err := chunk.New(leftSchema, []vbuf.Buffer{idBuf, nameBuf}, dict.New(), nil)
	if err != nil {
		t.Fatalf("chunk.New left: %v", err)
	}

	custIDBuf := vbuf.NewNumericBuffer[float64](vtype.KindFloat64, 2, false)
	_ = custIDBuf.Append(1)
	_ = custIDBuf.Append(2)
	totalBuf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, 2, false)
	_ = totalBuf.Append(100)
	_ = totalBuf.Append(50)
	orders, err := chunk.New(rightSchema, []vbuf.Buffer{custIDBuf, totalBuf}, dict.New(), nil)
	if err != nil {
		t.Fatalf("chunk.New right: %v", err)
	}

	left := &sliceSource{chunks: []*chunk.Chunk{custs}}
	right := &sliceSource{chunks: []*chunk.Chunk{orders}}

	j, err := NewJoin(left, right, []string{"id"}, []string{"customer_id"}, JoinInner, leftSchema, rightSchema, vbuf.NewBufferPool())
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	out := drain(t, j)
	if totalRows(out) != 2 {
		t.Fatalf("expected an Int32 key to match a numerically equal Float64 key, got %d rows", totalRows(out))
	}
}

func TestJoinLeftUnmatchedRowIsNull(t *testing.T) {
	custSchema, orderSchema := custOrderSchemas(t)
	custs := buildIDChunk(t, custSchema, nil, []int64{1, 2}, []string{"alice", "bob"})
	orders := buildOrderChunk(t, orderSchema, []int64{1}, []int64{100})

	left := &sliceSource{chunks: []*chunk.Chunk{custs}}
	right := &sliceSource{chunks: []*chunk.Chunk{orders}}

	j, err := NewJoin(left, right, []string{"id"}, []string{"customer_id"}, JoinLeft, custSchema, orderSchema, vbuf.NewBufferPool())
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	out := drain(t, j)
	if totalRows(out) != 2 {
		t.Fatalf("expected 2 rows (1 matched, 1 unmatched), got %d", totalRows(out))
	}
	totalIdx, _, err := j.Schema().LocateColumn("total")
	if err != nil {
		t.Fatalf("locate total: %v", err)
	}
	var sawNull bool
	for _, c := range out {
		buf := c.Buffer(totalIdx)
		for row := 0; row < c.RowCount(); row++ {
			if buf.IsNull(c.PhysicalIndex(row)) {
				sawNull = true
			}
		}
	}
	if !sawNull {
		t.Error("expected the unmatched left row's right-side column to be null")
	}
}
