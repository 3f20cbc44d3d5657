package expr

import (
	"math"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Predicate is a compiled boolean kernel over one logical row, per spec.md
// §4.4: "(chunk, logicalRowIndex) -> bool". Null propagation rule: a null
// referenced cell makes the predicate false, except explicit isNull checks.
type Predicate func(c *chunk.Chunk, row int) (bool, error)

// ValueKernel is a compiled scalar kernel over one logical row, used by
// Transform and as an aggregate's input expression.
type ValueKernel func(c *chunk.Chunk, row int) (Value, error)

// Compile type-checks n against schema and produces its value kernel, the
// way the teacher's Evaluate recursively dispatches on expr.etype - but
// compiled once, ahead of time, into a single closure tree instead of a
// switch re-entered on every call (spec.md §4.4: "compilation picks one
// closure per physical type to avoid runtime dispatch inside hot loops").
func Compile(n Node, schema vtype.Schema) (ValueKernel, error) {
	if _, err := InferType(n, schema); err != nil {
		return nil, err
	}
	return compileValue(n, schema)
}

// CompilePredicate type-checks n (which must be boolean-typed) and produces
// its predicate kernel, used by the Filter operator.
func CompilePredicate(n Node, schema vtype.Schema) (Predicate, error) {
	dt, err := InferType(n, schema)
	if err != nil {
		return nil, err
	}
	if dt.Kind != vtype.KindBool {
		return nil, verr.New(verr.KindTypeMismatch, "expr: predicate must be boolean, got %v", dt.Kind)
	}
	vk, err := compileValue(n, schema)
	if err != nil {
		return nil, err
	}
	return func(c *chunk.Chunk, row int) (bool, error) {
		v, err := vk(c, row)
		if err != nil {
			return false, err
		}
		if v.Null {
			return false, nil
		}
		return v.B, nil
	}, nil
}

func compileValue(n Node, schema vtype.Schema) (ValueKernel, error) {
	switch t := n.(type) {
	case *Column:
		idx, col, err := schema.LocateColumn(t.Name)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "expr: column %q not found", t.Name)
		}
		kind := col.DType.Kind
		return func(c *chunk.Chunk, row int) (Value, error) {
			return readCell(c.Buffer(idx), c.PhysicalIndex(row), kind), nil
		}, nil

	case *Literal:
		lit := literalValue(t)
		return func(*chunk.Chunk, int) (Value, error) { return lit, nil }, nil

	case *Cmp:
		return compileCmp(t, schema)

	case *Between:
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		lo, err := compileValue(t.Low, schema)
		if err != nil {
			return nil, err
		}
		hi, err := compileValue(t.High, schema)
		if err != nil {
			return nil, err
		}
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			lv, err := lo(c, row)
			if err != nil {
				return Value{}, err
			}
			hv, err := hi(c, row)
			if err != nil {
				return Value{}, err
			}
			if ev.Null || lv.Null || hv.Null {
				return Value{Kind: vtype.KindBool, Null: true}, nil
			}
			if (ev.Kind.IsFloat() && math.IsNaN(ev.F)) || (lv.Kind.IsFloat() && math.IsNaN(lv.F)) || (hv.Kind.IsFloat() && math.IsNaN(hv.F)) {
				return Value{Kind: vtype.KindBool, B: false}, nil
			}
			b := compareNumericOrString(ev, lv) >= 0 && compareNumericOrString(ev, hv) <= 0
			return Value{Kind: vtype.KindBool, B: b}, nil
		}, nil

	case *NullCheck:
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		isNull := t.IsNull
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: vtype.KindBool, B: ev.Null == isNull}, nil
		}, nil

	case *Logical:
		kernels := make([]ValueKernel, len(t.Args))
		for i, a := range t.Args {
			vk, err := compileValue(a, schema)
			if err != nil {
				return nil, err
			}
			kernels[i] = vk
		}
		isAnd := t.Op == LogicalAnd
		return func(c *chunk.Chunk, row int) (Value, error) {
			sawNull := false
			for _, k := range kernels {
				v, err := k(c, row)
				if err != nil {
					return Value{}, err
				}
				if v.Null {
					sawNull = true
					continue
				}
				if isAnd && !v.B {
					return Value{Kind: vtype.KindBool, B: false}, nil
				}
				if !isAnd && v.B {
					return Value{Kind: vtype.KindBool, B: true}, nil
				}
			}
			if sawNull {
				return Value{Kind: vtype.KindBool, Null: true}, nil
			}
			return Value{Kind: vtype.KindBool, B: isAnd}, nil
		}, nil

	case *Not:
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			if ev.Null {
				return Value{Kind: vtype.KindBool, Null: true}, nil
			}
			return Value{Kind: vtype.KindBool, B: !ev.B}, nil
		}, nil

	case *Arith:
		return compileArith(t, schema)

	case *Neg:
		dt, err := InferType(t.E, schema)
		if err != nil {
			return nil, err
		}
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		isFloat := dt.Kind.IsFloat()
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			if ev.Null {
				return Value{Kind: dt.Kind, Null: true}, nil
			}
			if isFloat {
				return Value{Kind: dt.Kind, F: -ev.AsFloat64()}, nil
			}
			return Value{Kind: dt.Kind, I: -ev.I}, nil
		}, nil

	case *StringOp:
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		pattern := t.Pattern
		op := t.Op
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			if ev.Null {
				return Value{Kind: vtype.KindBool, Null: true}, nil
			}
			return Value{Kind: vtype.KindBool, B: matchStringOp(op, ev.S, pattern)}, nil
		}, nil

	case *Alias:
		return compileValue(t.E, schema)

	case *Cast:
		dt, err := InferType(t.E, schema)
		if err != nil {
			return nil, err
		}
		e, err := compileValue(t.E, schema)
		if err != nil {
			return nil, err
		}
		from, to := dt.Kind, t.Kind
		return func(c *chunk.Chunk, row int) (Value, error) {
			ev, err := e(c, row)
			if err != nil {
				return Value{}, err
			}
			if ev.Null {
				return Value{Kind: to, Null: true}, nil
			}
			return castValue(ev, from, to)
		}, nil

	case *Coalesce:
		kernels := make([]ValueKernel, len(t.Args))
		for i, a := range t.Args {
			vk, err := compileValue(a, schema)
			if err != nil {
				return nil, err
			}
			kernels[i] = vk
		}
		return func(c *chunk.Chunk, row int) (Value, error) {
			for _, k := range kernels {
				v, err := k(c, row)
				if err != nil {
					return Value{}, err
				}
				if !v.Null {
					return v, nil
				}
			}
			return Value{Null: true}, nil
		}, nil

	case *Agg, *Count:
		return nil, verr.New(verr.KindTypeMismatch, "expr: aggregate nodes compile only as an Aggregate operator's input expression, not as a standalone value kernel")

	default:
		return nil, verr.New(verr.KindTypeMismatch, "expr: unsupported node type %T", n)
	}
}

func literalValue(lit *Literal) Value {
	if lit.IsNil {
		return Value{Kind: lit.DType.Kind, Null: true}
	}
	switch lit.DType.Kind {
	case vtype.KindBool:
		return Value{Kind: vtype.KindBool, B: lit.B}
	case vtype.KindFloat32, vtype.KindFloat64:
		return Value{Kind: lit.DType.Kind, F: lit.F64}
	case vtype.KindString:
		return Value{Kind: vtype.KindString, S: lit.S}
	default:
		return Value{Kind: lit.DType.Kind, I: lit.I64}
	}
}

// readCell extracts a physical cell as a Value, dispatching once per
// distinct concrete Buffer type (monomorphic per spec.md's DESIGN NOTES).
func readCell(b vbuf.Buffer, phys int, kind vtype.Kind) Value {
	if b.IsNull(phys) {
		return Value{Kind: kind, Null: true}
	}
	switch t := b.(type) {
	case *vbuf.BoolBuffer:
		return Value{Kind: kind, B: t.Get(phys)}
	case *vbuf.StringBuffer:
		return Value{Kind: kind, S: t.GetString(phys)}
	case *vbuf.NumericBuffer[int8]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[int16]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[int32]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[int64]:
		return Value{Kind: kind, I: t.Get(phys)}
	case *vbuf.NumericBuffer[uint8]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[uint16]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[uint32]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[uint64]:
		return Value{Kind: kind, I: int64(t.Get(phys))}
	case *vbuf.NumericBuffer[float32]:
		return Value{Kind: kind, F: float64(t.Get(phys))}
	case *vbuf.NumericBuffer[float64]:
		return Value{Kind: kind, F: t.Get(phys)}
	default:
		panic("expr: unsupported buffer kind in readCell")
	}
}

func matchStringOp(op StringOpKind, s, pattern string) bool {
	switch op {
	case StringContains:
		return indexOf(s, pattern) >= 0
	case StringStartsWith:
		return len(s) >= len(pattern) && s[:len(pattern)] == pattern
	case StringEndsWith:
		return len(s) >= len(pattern) && s[len(s)-len(pattern):] == pattern
	default:
		return false
	}
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
