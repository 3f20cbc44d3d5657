// Package expr implements the expression AST, type inference, and compiler
// described in spec.md §4.4. It is grounded in the teacher's
// query/expr/expression.go (the Expression interface, Children(), tree-walk
// helpers like ColumnsUsed) and query/expr/eval.go (a dtype-switched
// recursive evaluator) - but the teacher evaluates a whole chunk at a time
// into a brand new column.Chunk, whereas this package compiles an AST once
// into row-level closures that a hot loop calls once per logical row,
// matching spec.md §4.4's "compilation picks one closure per physical type
// to avoid runtime dispatch inside hot loops".
//
// There is no parser here: the teacher's query/expr/tokeniser.go + parser.go
// turn a SQL-ish string into this same tree shape, but spec.md places SQL
// parsing out of scope (§1 Non-goals) - ASTs are built programmatically via
// the constructor functions below, the way the teacher's façade layer (not
// the kernel) would call ParseStringExpr before handing a tree to Evaluate.
package expr

import "github.com/vectra-db/vectra/src/vtype"

// CmpOp is a comparison operator kind for Cmp nodes.
type CmpOp uint8

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// ArithOp is an arithmetic operator kind for Arith nodes.
type ArithOp uint8

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

// LogicalOp combines boolean children.
type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// StringOpKind is a string predicate kind for StringOp nodes.
type StringOpKind uint8

const (
	StringContains StringOpKind = iota
	StringStartsWith
	StringEndsWith
)

// AggFunc is an aggregate function kind for Agg nodes.
type AggFunc uint8

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggFirst
	AggLast
)

func (f AggFunc) String() string {
	names := [...]string{"count", "sum", "avg", "min", "max", "first", "last"}
	if int(f) >= len(names) {
		return "unknown"
	}
	return names[f]
}

// Node is an immutable AST node, per spec.md §4.4's tagged-node list.
type Node interface {
	Children() []Node
}

// Column references a schema column by name.
type Column struct{ Name string }

func (n *Column) Children() []Node { return nil }

// Literal is a constant value. DType is the value's inferred static type;
// use NewLiteral* constructors rather than building one by hand.
type Literal struct {
	DType vtype.DType
	I64   int64
	F64   float64
	B     bool
	S     string
	IsNil bool
}

func (n *Literal) Children() []Node { return nil }

func NewLiteralInt(v int64) *Literal {
	return &Literal{DType: vtype.DType{Kind: vtype.KindInt64}, I64: v}
}
func NewLiteralFloat(v float64) *Literal {
	return &Literal{DType: vtype.DType{Kind: vtype.KindFloat64}, F64: v}
}
func NewLiteralBool(v bool) *Literal {
	return &Literal{DType: vtype.DType{Kind: vtype.KindBool}, B: v}
}
func NewLiteralString(v string) *Literal {
	return &Literal{DType: vtype.DType{Kind: vtype.KindString}, S: v}
}
func NewLiteralNull() *Literal {
	return &Literal{DType: vtype.DType{Kind: vtype.KindInvalid, Nullable: true}, IsNil: true}
}

// Cmp is a binary comparison, op ∈ {=,≠,<,≤,>,≥}.
type Cmp struct {
	Op          CmpOp
	Left, Right Node
}

func (n *Cmp) Children() []Node { return []Node{n.Left, n.Right} }

// Between tests Low ≤ E ≤ High.
type Between struct{ E, Low, High Node }

func (n *Between) Children() []Node { return []Node{n.E, n.Low, n.High} }

// NullCheck tests isNull or isNotNull.
type NullCheck struct {
	E      Node
	IsNull bool
}

func (n *NullCheck) Children() []Node { return []Node{n.E} }

// Logical combines any number of boolean children with AND or OR.
type Logical struct {
	Op   LogicalOp
	Args []Node
}

func (n *Logical) Children() []Node { return n.Args }

// Not negates a boolean child.
type Not struct{ E Node }

func (n *Not) Children() []Node { return []Node{n.E} }

// Arith is a binary arithmetic operation.
type Arith struct {
	Op          ArithOp
	Left, Right Node
}

func (n *Arith) Children() []Node { return []Node{n.Left, n.Right} }

// Neg negates a numeric child.
type Neg struct{ E Node }

func (n *Neg) Children() []Node { return []Node{n.E} }

// StringOp tests a string child against a literal pattern.
type StringOp struct {
	Op      StringOpKind
	E       Node
	Pattern string
}

func (n *StringOp) Children() []Node { return []Node{n.E} }

// Agg is an aggregate function applied to an expression; used inside an
// Aggregate operator's aggregation list (compileValue rejects it as a
// standalone value kernel). InferType does not check for nested
// aggregations.
type Agg struct {
	Func AggFunc
	E    Node
}

func (n *Agg) Children() []Node { return []Node{n.E} }

// Count counts rows (E == nil) or non-null values of E.
type Count struct{ E Node }

func (n *Count) Children() []Node {
	if n.E == nil {
		return nil
	}
	return []Node{n.E}
}

// Alias names the result of E for output schema purposes.
type Alias struct {
	E    Node
	Name string
}

func (n *Alias) Children() []Node { return []Node{n.E} }

// Cast reinterprets E's value as kind.
type Cast struct {
	E    Node
	Kind vtype.Kind
}

func (n *Cast) Children() []Node { return []Node{n.E} }

// Coalesce returns the first non-null argument's value.
type Coalesce struct{ Args []Node }

func (n *Coalesce) Children() []Node { return n.Args }
