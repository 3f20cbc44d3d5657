package expr

import (
	"math"
	"strconv"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

func compileCmp(t *Cmp, schema vtype.Schema) (ValueKernel, error) {
	left, err := compileValue(t.Left, schema)
	if err != nil {
		return nil, err
	}
	right, err := compileValue(t.Right, schema)
	if err != nil {
		return nil, err
	}
	lt, err := InferType(t.Left, schema)
	if err != nil {
		return nil, err
	}
	op := t.Op
	isString := lt.Kind == vtype.KindString
	return func(c *chunk.Chunk, row int) (Value, error) {
		lv, err := left(c, row)
		if err != nil {
			return Value{}, err
		}
		rv, err := right(c, row)
		if err != nil {
			return Value{}, err
		}
		if lv.Null || rv.Null {
			return Value{Kind: vtype.KindBool, Null: true}, nil
		}
		var result bool
		if isString {
			result = compareStrCmp(op, lv.S, rv.S)
		} else if op == CmpEq || op == CmpNe {
			result = compareEqCmp(op, lv, rv)
		} else {
			result = compareOrderedCmp(op, lv.AsFloat64(), rv.AsFloat64())
		}
		return Value{Kind: vtype.KindBool, B: result}, nil
	}, nil
}

// compareOrderedCmp implements spec.md §4.4's NaN rule: every comparison
// with NaN is false, except ≠ which is true. IEEE 754 float comparisons in
// Go already satisfy this for <,<=,>,>=; only = and ≠ need special care,
// handled by the caller via compareEqCmp.
func compareOrderedCmp(op CmpOp, a, b float64) bool {
	switch op {
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	}
	return false
}

func compareEqCmp(op CmpOp, a, b Value) bool {
	af, bf := a.AsFloat64(), b.AsFloat64()
	if a.Kind.IsFloat() || b.Kind.IsFloat() {
		if math.IsNaN(af) || math.IsNaN(bf) {
			return op == CmpNe
		}
	}
	if a.Kind == vtype.KindBool || b.Kind == vtype.KindBool {
		eq := a.B == b.B
		if op == CmpEq {
			return eq
		}
		return !eq
	}
	eq := af == bf
	if op == CmpEq {
		return eq
	}
	return !eq
}

func compareStrCmp(op CmpOp, a, b string) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	}
	return false
}

// compareNumericOrString returns -1/0/1, used by Between's inclusive range
// check. It does not special-case NaN: a NaN operand compares neither less
// nor greater and so yields 0, which is why Between's kernel returns false
// for a NaN operand before calling it (consistent with Cmp's NaN rule).
func compareNumericOrString(a, b Value) int {
	if a.Kind == vtype.KindString {
		switch {
		case a.S < b.S:
			return -1
		case a.S > b.S:
			return 1
		default:
			return 0
		}
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func compileArith(t *Arith, schema vtype.Schema) (ValueKernel, error) {
	left, err := compileValue(t.Left, schema)
	if err != nil {
		return nil, err
	}
	right, err := compileValue(t.Right, schema)
	if err != nil {
		return nil, err
	}
	resultType, err := InferType(t, schema)
	if err != nil {
		return nil, err
	}
	op := t.Op
	isFloat := resultType.Kind.IsFloat()
	return func(c *chunk.Chunk, row int) (Value, error) {
		lv, err := left(c, row)
		if err != nil {
			return Value{}, err
		}
		rv, err := right(c, row)
		if err != nil {
			return Value{}, err
		}
		if lv.Null || rv.Null {
			return Value{Kind: resultType.Kind, Null: true}, nil
		}
		if isFloat {
			f, err := applyFloatArith(op, lv.AsFloat64(), rv.AsFloat64())
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: resultType.Kind, F: f}, nil
		}
		i, err := applyIntArith(op, lv.I, rv.I)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: resultType.Kind, I: i}, nil
	}, nil
}

func applyFloatArith(op ArithOp, a, b float64) (float64, error) {
	switch op {
	case ArithAdd:
		return a + b, nil
	case ArithSub:
		return a - b, nil
	case ArithMul:
		return a * b, nil
	case ArithDiv:
		return a / b, nil // IEEE 754: a/0 -> +-Inf or NaN, per spec.md §4.4
	case ArithMod:
		return math.Mod(a, b), nil
	}
	return 0, verr.New(verr.KindInvalidArgument, "expr: unsupported arithmetic operator")
}

func applyIntArith(op ArithOp, a, b int64) (int64, error) {
	switch op {
	case ArithAdd:
		return a + b, nil
	case ArithSub:
		return a - b, nil
	case ArithMul:
		return a * b, nil
	case ArithDiv:
		if b == 0 {
			return 0, verr.New(verr.KindDivisionByZero, "expr: integer division by zero")
		}
		return a / b, nil
	case ArithMod:
		if b == 0 {
			return 0, verr.New(verr.KindDivisionByZero, "expr: integer modulo by zero")
		}
		return a % b, nil
	}
	return 0, verr.New(verr.KindInvalidArgument, "expr: unsupported arithmetic operator")
}

// castValue implements spec.md §4.4's cast semantics: int<->float truncates
// toward zero; bool<->numeric maps false/true to 0/1 and non-zero to true;
// Date/Timestamp reinterpret the stored integer unchanged; string casts
// require the dictionary, in the sense that a Value's S field here already
// holds the fully resolved string (readCell resolves a string cell through
// the chunk's dictionary before a kernel ever sees it) - so this function's
// job is the format/parse half: render a scalar as text, or parse text back
// into a scalar, erroring rather than returning a zero value when the text
// doesn't parse as the target kind.
func castValue(v Value, from, to vtype.Kind) (Value, error) {
	if to == from {
		return v, nil
	}
	if to == vtype.KindString {
		return Value{Kind: to, S: formatCast(v, from)}, nil
	}
	if from == vtype.KindString {
		return parseCast(v.S, to)
	}
	if to == vtype.KindBool {
		if from.IsFloat() {
			return Value{Kind: to, B: v.F != 0}, nil
		}
		return Value{Kind: to, B: v.I != 0}, nil
	}
	if from == vtype.KindBool {
		i := int64(0)
		if v.B {
			i = 1
		}
		if to.IsFloat() {
			return Value{Kind: to, F: float64(i)}, nil
		}
		return Value{Kind: to, I: i}, nil
	}
	if to.IsFloat() {
		if from.IsFloat() {
			return Value{Kind: to, F: v.F}, nil
		}
		return Value{Kind: to, F: float64(v.I)}, nil
	}
	// to is an integer (or Date/Timestamp reinterpreted as a 64-bit count)
	if from.IsFloat() {
		return Value{Kind: to, I: int64(v.F)}, nil // truncates toward zero
	}
	return Value{Kind: to, I: v.I}, nil
}

// formatCast renders a non-string Value as text, the same physical-type
// dispatch castValue's numeric branches already use.
func formatCast(v Value, from vtype.Kind) string {
	switch {
	case from == vtype.KindBool:
		return strconv.FormatBool(v.B)
	case from.IsFloat():
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	default: // integer, Date, Timestamp: the stored 64-bit count, unchanged
		return strconv.FormatInt(v.I, 10)
	}
}

// parseCast parses s into to's physical representation, failing with an
// InvalidInteger/InvalidFloat/InvalidArgument error (spec.md §7's taxonomy,
// the same kinds csvsrc's field decoders raise) rather than defaulting to a
// zero value on unparseable text.
func parseCast(s string, to vtype.Kind) (Value, error) {
	switch {
	case to == vtype.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, verr.New(verr.KindInvalidArgument, "expr: cannot cast %q to bool", s)
		}
		return Value{Kind: to, B: b}, nil
	case to.IsFloat():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, verr.New(verr.KindInvalidFloat, "expr: cannot cast %q to %v", s, to)
		}
		return Value{Kind: to, F: f}, nil
	default: // integer, Date, Timestamp
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, verr.New(verr.KindInvalidInteger, "expr: cannot cast %q to %v", s, to)
		}
		return Value{Kind: to, I: i}, nil
	}
}
