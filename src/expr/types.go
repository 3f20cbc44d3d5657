package expr

import (
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// InferType walks n against schema and returns its static DType, or a
// TypeMismatch error naming the offending node (spec.md §4.4). It is
// grounded in the teacher's comparableTypes/coalesceType helpers in
// query/expr/expression.go, generalised from the teacher's five dtypes to
// vectra's full Kind set and its wider promotion ladder (int widths promote
// to the widest operand, not just int→float).
func InferType(n Node, schema vtype.Schema) (vtype.DType, error) {
	switch t := n.(type) {
	case *Column:
		_, col, err := schema.LocateColumn(t.Name)
		if err != nil {
			return vtype.DType{}, verr.Wrap(verr.KindSchemaMismatch, err, "expr: column %q not found", t.Name)
		}
		return col.DType, nil

	case *Literal:
		return t.DType, nil

	case *Cmp:
		lt, err := InferType(t.Left, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		rt, err := InferType(t.Right, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if !comparable(lt.Kind, rt.Kind) {
			return vtype.DType{}, typeMismatch("comparison", lt, rt)
		}
		return vtype.DType{Kind: vtype.KindBool, Nullable: lt.Nullable || rt.Nullable}, nil

	case *Between:
		et, err := InferType(t.E, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		lot, err := InferType(t.Low, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		hit, err := InferType(t.High, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if !comparable(et.Kind, lot.Kind) || !comparable(et.Kind, hit.Kind) {
			return vtype.DType{}, typeMismatch("between", et, lot)
		}
		return vtype.DType{Kind: vtype.KindBool, Nullable: true}, nil

	case *NullCheck:
		if _, err := InferType(t.E, schema); err != nil {
			return vtype.DType{}, err
		}
		return vtype.DType{Kind: vtype.KindBool}, nil

	case *Logical:
		nullable := false
		for _, a := range t.Args {
			at, err := InferType(a, schema)
			if err != nil {
				return vtype.DType{}, err
			}
			if at.Kind != vtype.KindBool {
				return vtype.DType{}, typeMismatch("logical operand", at, at)
			}
			nullable = nullable || at.Nullable
		}
		return vtype.DType{Kind: vtype.KindBool, Nullable: nullable}, nil

	case *Not:
		et, err := InferType(t.E, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if et.Kind != vtype.KindBool {
			return vtype.DType{}, typeMismatch("not operand", et, et)
		}
		return vtype.DType{Kind: vtype.KindBool, Nullable: et.Nullable}, nil

	case *Arith:
		lt, err := InferType(t.Left, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		rt, err := InferType(t.Right, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if !lt.Kind.IsNumeric() || !rt.Kind.IsNumeric() {
			return vtype.DType{}, typeMismatch("arithmetic operand", lt, rt)
		}
		k, err := promote(lt.Kind, rt.Kind)
		if err != nil {
			return vtype.DType{}, err
		}
		return vtype.DType{Kind: k, Nullable: lt.Nullable || rt.Nullable}, nil

	case *Neg:
		et, err := InferType(t.E, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if !et.Kind.IsNumeric() {
			return vtype.DType{}, typeMismatch("negation operand", et, et)
		}
		return et, nil

	case *StringOp:
		et, err := InferType(t.E, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if et.Kind != vtype.KindString {
			return vtype.DType{}, typeMismatch("string operator operand", et, et)
		}
		return vtype.DType{Kind: vtype.KindBool, Nullable: et.Nullable}, nil

	case *Agg:
		et, err := InferType(t.E, schema)
		if err != nil {
			return vtype.DType{}, err
		}
		if err := requireAggDomain(t.Func, et.Kind); err != nil {
			return vtype.DType{}, err
		}
		switch t.Func {
		case AggCount:
			return vtype.DType{Kind: vtype.KindInt64}, nil
		case AggSum:
			if et.Kind.IsFloat() {
				return vtype.DType{Kind: vtype.KindFloat64, Nullable: true}, nil
			}
			return vtype.DType{Kind: vtype.KindInt64, Nullable: true}, nil
		case AggAvg:
			return vtype.DType{Kind: vtype.KindFloat64, Nullable: true}, nil
		default: // min, max, first, last
			return vtype.DType{Kind: et.Kind, Nullable: true}, nil
		}

	case *Count:
		if t.E != nil {
			if _, err := InferType(t.E, schema); err != nil {
				return vtype.DType{}, err
			}
		}
		return vtype.DType{Kind: vtype.KindInt64}, nil

	case *Alias:
		return InferType(t.E, schema)

	case *Cast:
		if _, err := InferType(t.E, schema); err != nil {
			return vtype.DType{}, err
		}
		return vtype.DType{Kind: t.Kind, Nullable: true}, nil

	case *Coalesce:
		if len(t.Args) == 0 {
			return vtype.DType{}, verr.New(verr.KindTypeMismatch, "expr: coalesce() requires at least one argument")
		}
		first, err := InferType(t.Args[0], schema)
		if err != nil {
			return vtype.DType{}, err
		}
		for _, a := range t.Args[1:] {
			at, err := InferType(a, schema)
			if err != nil {
				return vtype.DType{}, err
			}
			if at.Kind != first.Kind && at.Kind != vtype.KindInvalid && first.Kind != vtype.KindInvalid {
				return vtype.DType{}, typeMismatch("coalesce argument", first, at)
			}
		}
		return vtype.DType{Kind: first.Kind}, nil

	default:
		return vtype.DType{}, verr.New(verr.KindTypeMismatch, "expr: unsupported node type %T", n)
	}
}

func typeMismatch(what string, a, b vtype.DType) error {
	return verr.New(verr.KindTypeMismatch, "expr: %s: incompatible types %v and %v", what, a, b)
}

// comparable mirrors the teacher's comparableTypes, generalised: any two
// numeric kinds compare, any two string kinds compare, booleans compare
// with booleans, and Invalid (null literal) compares with anything.
func comparable(a, b vtype.Kind) bool {
	if a == b {
		return true
	}
	if a == vtype.KindInvalid || b == vtype.KindInvalid {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return false
}

// promote mirrors the teacher's coalesceType, generalised to the wider Kind
// ladder: mixed int/float widens to float; among same-category kinds the
// wider element width wins.
func promote(a, b vtype.Kind) (vtype.Kind, error) {
	if a == b {
		return a, nil
	}
	af, bf := a.IsFloat(), b.IsFloat()
	if af && bf {
		return widerFloat(a, b), nil
	}
	if af != bf {
		if af {
			return a, nil
		}
		return b, nil
	}
	// both integer: widen to the larger element width, preferring signed
	if a.ElementWidth() == b.ElementWidth() {
		if a == vtype.KindUint8 || a == vtype.KindUint16 || a == vtype.KindUint32 || a == vtype.KindUint64 {
			return b, nil
		}
		return a, nil
	}
	if a.ElementWidth() > b.ElementWidth() {
		return a, nil
	}
	return b, nil
}

func widerFloat(a, b vtype.Kind) vtype.Kind {
	if a == vtype.KindFloat64 || b == vtype.KindFloat64 {
		return vtype.KindFloat64
	}
	return vtype.KindFloat32
}

func requireAggDomain(f AggFunc, k vtype.Kind) error {
	switch f {
	case AggSum, AggAvg:
		if !k.IsNumeric() {
			return verr.New(verr.KindTypeMismatch, "expr: %s requires a numeric input, got %v", f, k)
		}
	}
	return nil
}
