package expr

import (
	"math"
	"testing"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

func buildTestChunk(t *testing.T) *chunk.Chunk {
	t.Helper()
	schema, err := vtype.NewSchema([]vtype.ColumnDescriptor{
		{Name: "a", DType: vtype.DType{Kind: vtype.KindInt64}},
		{Name: "b", DType: vtype.DType{Kind: vtype.KindFloat64, Nullable: true}},
		{Name: "name", DType: vtype.DType{Kind: vtype.KindString, Nullable: true}},
		{Name: "flag", DType: vtype.DType{Kind: vtype.KindBool}},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	d := dict.New()
	aBuf := vbuf.NewNumericBuffer[int64](vtype.KindInt64, 4, false)
	bBuf := vbuf.NewNumericBuffer[float64](vtype.KindFloat64, 4, true)
	nameBuf := vbuf.NewStringBuffer(4, true, d)
	flagBuf := vbuf.NewBoolBuffer(4, false)

	ints := []int64{1, 2, 3, 4}
	floats := []float64{1.5, math.NaN(), 0, -2.5}
	names := []string{"alpha", "beta", "", "gamma"}
	flags := []bool{true, false, true, false}

	for i := 0; i < 4; i++ {
		_ = aBuf.Append(ints[i])
		if i == 2 {
			_ = bBuf.AppendNull()
		} else {
			_ = bBuf.Append(floats[i])
		}
		if i == 2 {
			_ = nameBuf.AppendNull()
		} else {
			_ = nameBuf.Append(names[i])
		}
		_ = flagBuf.Append(flags[i])
	}

	c, err := chunk.New(schema, []vbuf.Buffer{aBuf, bBuf, nameBuf, flagBuf}, d, nil)
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}
	return c
}

func TestCompileColumnAndLiteral(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Column{Name: "a"}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 2)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.I != 3 {
		t.Errorf("expected 3, got %d", v.I)
	}
}

func TestCompilePredicateCmp(t *testing.T) {
	c := buildTestChunk(t)
	pred, err := CompilePredicate(&Cmp{Op: CmpGt, Left: &Column{Name: "a"}, Right: NewLiteralInt(2)}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var got []bool
	for i := 0; i < c.RowCount(); i++ {
		b, err := pred(c, i)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		got = append(got, b)
	}
	want := []bool{false, false, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNaNComparisonSemantics(t *testing.T) {
	c := buildTestChunk(t) // row 1's "b" is NaN
	cases := []struct {
		op   CmpOp
		want bool
	}{
		{CmpEq, false},
		{CmpNe, true},
		{CmpLt, false},
		{CmpLe, false},
		{CmpGt, false},
		{CmpGe, false},
	}
	for _, tc := range cases {
		vk, err := Compile(&Cmp{Op: tc.op, Left: &Column{Name: "b"}, Right: NewLiteralFloat(1.0)}, c.Schema())
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		v, err := vk(c, 1)
		if err != nil {
			t.Fatalf("eval: %v", err)
		}
		if v.B != tc.want {
			t.Errorf("op %d: got %v, want %v", tc.op, v.B, tc.want)
		}
	}
}

func TestArithPromotion(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Arith{Op: ArithAdd, Left: &Column{Name: "a"}, Right: &Column{Name: "b"}}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.Kind != vtype.KindFloat64 {
		t.Fatalf("expected promoted float64, got %v", v.Kind)
	}
	if v.F != 2.5 {
		t.Errorf("expected 2.5, got %v", v.F)
	}
}

func TestArithNullPropagation(t *testing.T) {
	c := buildTestChunk(t) // row 2's "b" is null
	vk, err := Compile(&Arith{Op: ArithAdd, Left: &Column{Name: "a"}, Right: &Column{Name: "b"}}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 2)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !v.Null {
		t.Fatalf("expected null result when an operand is null")
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Arith{Op: ArithDiv, Left: &Column{Name: "a"}, Right: NewLiteralInt(0)}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := vk(c, 0); err == nil {
		t.Fatal("expected a DivisionByZero error")
	}
}

func TestFloatDivisionByZeroIsIEEE754(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Arith{Op: ArithDiv, Left: &Column{Name: "b"}, Right: NewLiteralFloat(0)}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !math.IsInf(v.F, 1) {
		t.Errorf("expected +Inf, got %v", v.F)
	}
}

func TestLogicalAndNullPropagation(t *testing.T) {
	c := buildTestChunk(t)
	// flag AND b > 0 AND isNotNull(b) -- row 2 has flag=true, b=null, so the
	// middle branch is null and the last one is false
	expr := &Logical{Op: LogicalAnd, Args: []Node{
		&Column{Name: "flag"},
		&Cmp{Op: CmpGt, Left: &Column{Name: "b"}, Right: NewLiteralFloat(0)},
		&NullCheck{E: &Column{Name: "b"}, IsNull: false}, // isNotNull(b) -> false at row 2
	}}
	vk, err := Compile(expr, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 2)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.Null {
		t.Fatalf("AND short-circuits to false on a false branch even if another is null")
	}
	if v.B {
		t.Fatalf("expected false")
	}
}

func TestNot(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Not{E: &Column{Name: "flag"}}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.B {
		t.Fatalf("expected !true == false")
	}
}

func TestBetween(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Between{E: &Column{Name: "a"}, Low: NewLiteralInt(2), High: NewLiteralInt(3)}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for i, want := range []bool{false, true, true, false} {
		v, err := vk(c, i)
		if err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
		if v.B != want {
			t.Errorf("row %d: got %v want %v", i, v.B, want)
		}
	}
}

func TestNullCheck(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&NullCheck{E: &Column{Name: "name"}, IsNull: true}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 2)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !v.B {
		t.Fatalf("expected isNull(name) true at row 2")
	}
}

func TestCoalesce(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Coalesce{Args: []Node{&Column{Name: "name"}, NewLiteralString("fallback")}}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 2)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.S != "fallback" {
		t.Errorf("expected fallback, got %q", v.S)
	}
}

func TestCoalesceEmptyRejectedAtValidation(t *testing.T) {
	c := buildTestChunk(t)
	if _, err := Compile(&Coalesce{Args: nil}, c.Schema()); err == nil {
		t.Fatal("expected coalesce([]) to be rejected at validation time")
	}
}

func TestCastBoolToInt(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: &Column{Name: "flag"}, Kind: vtype.KindInt64}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.I != 1 {
		t.Errorf("expected true->1, got %d", v.I)
	}
}

func TestCastFloatToIntTruncatesTowardZero(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: &Column{Name: "b"}, Kind: vtype.KindInt64}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 3) // b[3] == -2.5
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.I != -2 {
		t.Errorf("expected truncation toward zero to -2, got %d", v.I)
	}
}

func TestCastIntToString(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: &Column{Name: "a"}, Kind: vtype.KindString}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0) // a[0] == 1
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.S != "1" {
		t.Errorf("expected \"1\", got %q", v.S)
	}
}

func TestCastBoolToString(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: &Column{Name: "flag"}, Kind: vtype.KindString}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0) // flag[0] == true
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.S != "true" {
		t.Errorf("expected \"true\", got %q", v.S)
	}
}

func TestCastStringToIntParsesValue(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: NewLiteralString("42"), Kind: vtype.KindInt64}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.I != 42 {
		t.Errorf("expected 42, got %d", v.I)
	}
}

func TestCastStringToFloatParsesValue(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: NewLiteralString("3.5"), Kind: vtype.KindFloat64}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, err := vk(c, 0)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if v.F != 3.5 {
		t.Errorf("expected 3.5, got %v", v.F)
	}
}

func TestCastStringToIntRejectsUnparseableText(t *testing.T) {
	c := buildTestChunk(t)
	vk, err := Compile(&Cast{E: &Column{Name: "name"}, Kind: vtype.KindInt64}, c.Schema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := vk(c, 0); err == nil { // name[0] == "alpha"
		t.Fatal("expected casting a non-numeric string to int64 to fail")
	} else if verr.KindOf(err) != verr.KindInvalidInteger {
		t.Errorf("expected KindInvalidInteger, got %v", verr.KindOf(err))
	}
}

func TestStringOps(t *testing.T) {
	c := buildTestChunk(t)
	cases := []struct {
		op   StringOpKind
		pat  string
		row  int
		want bool
	}{
		{StringContains, "lph", 0, true},
		{StringContains, "zzz", 0, false},
		{StringStartsWith, "bet", 1, true},
		{StringEndsWith, "mma", 3, true},
		{StringEndsWith, "xyz", 3, false},
	}
	for _, tc := range cases {
		vk, err := Compile(&StringOp{Op: tc.op, E: &Column{Name: "name"}, Pattern: tc.pat}, c.Schema())
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		v, err := vk(c, tc.row)
		if err != nil {
			t.Fatalf("eval: %v", err)
		}
		if v.B != tc.want {
			t.Errorf("pattern %q row %d: got %v want %v", tc.pat, tc.row, v.B, tc.want)
		}
	}
}

func TestTypeMismatchOnIncompatibleComparison(t *testing.T) {
	c := buildTestChunk(t)
	_, err := Compile(&Cmp{Op: CmpEq, Left: &Column{Name: "name"}, Right: &Column{Name: "a"}}, c.Schema())
	if err == nil {
		t.Fatal("expected a type mismatch between string and int comparison")
	}
}

func TestColumnNotFound(t *testing.T) {
	c := buildTestChunk(t)
	_, err := Compile(&Column{Name: "missing"}, c.Schema())
	if err == nil {
		t.Fatal("expected a schema mismatch for an unknown column")
	}
}

func TestAggregateNodeRejectedAsStandaloneValueKernel(t *testing.T) {
	c := buildTestChunk(t)
	_, err := Compile(&Agg{Func: AggSum, E: &Column{Name: "a"}}, c.Schema())
	if err == nil {
		t.Fatal("expected Agg to be rejected as a standalone value kernel")
	}
}
