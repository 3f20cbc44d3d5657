// Package aggstate implements the per-group running aggregate state used by
// the Aggregate/GroupBy operator (spec.md §4.11). It is grounded in the
// teacher's column/aggregations.go AggState/NewAggregator/updateFuncs
// pattern: one accumulator per aggregate function, updated one row at a
// time, with a type-specific code path chosen once and reused across rows.
// The teacher dispatches per chunk-wide dtype (ints/floats/dates/...) fed
// by a whole Chunk; aggstate works one compiled expr.Value at a time since
// vectra's GroupBy probes its input through expr.ValueKernel, not a bulk
// column scan.
package aggstate

import (
	"math"

	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Accumulator holds one group's running state for one aggregate expression,
// per spec.md §4.11: "GroupState carries running scalars per aggregate -
// running sum + count for avg, min/max seen, first/last seen, count."
type Accumulator struct {
	fn        expr.AggFunc
	inputKind vtype.Kind
	count     int64

	sumI int64
	sumF float64

	haveExtreme bool
	extremeI    int64
	extremeF    float64
	extremeS    string
	extremeKind vtype.Kind

	first, last     expr.Value
	haveFirst       bool
}

// NewAccumulator creates an empty accumulator for fn over an input of the
// given kind (ignored for count()).
func NewAccumulator(fn expr.AggFunc, inputKind vtype.Kind) *Accumulator {
	return &Accumulator{fn: fn, inputKind: inputKind}
}

// Add folds one non-counting-only row's value into the accumulator. Null
// values are skipped for every function and do not contribute to count,
// per spec.md §4.11's "Null inputs are skipped ... and do not contribute to
// count."
func (a *Accumulator) Add(v expr.Value) error {
	if v.Null {
		return nil
	}
	a.count++
	switch a.fn {
	case expr.AggSum, expr.AggAvg:
		if v.Kind.IsFloat() {
			a.sumF += v.F
		} else {
			next := a.sumI + v.I
			if (v.I > 0 && next < a.sumI) || (v.I < 0 && next > a.sumI) {
				return verr.New(verr.KindOverflow, "aggstate: sum overflows int64")
			}
			a.sumI = next
		}
	case expr.AggMin:
		return a.updateExtreme(v, true)
	case expr.AggMax:
		return a.updateExtreme(v, false)
	case expr.AggFirst:
		if !a.haveFirst {
			a.first = v
			a.haveFirst = true
		}
	case expr.AggLast:
		a.last = v
		a.haveFirst = true
	}
	return nil
}

// AddRowCount increments the bare row counter used by count() with no input
// expression - it counts every row, including ones whose other aggregate
// inputs were null.
func (a *Accumulator) AddRowCount() { a.count++ }

func (a *Accumulator) updateExtreme(v expr.Value, wantMin bool) error {
	if !a.haveExtreme {
		a.setExtreme(v)
		return nil
	}
	less := compareLess(v, a)
	if (wantMin && less) || (!wantMin && !less && !valueEqualsExtreme(v, a)) {
		a.setExtreme(v)
	}
	return nil
}

func (a *Accumulator) setExtreme(v expr.Value) {
	a.haveExtreme = true
	a.extremeKind = v.Kind
	switch {
	case v.Kind == vtype.KindString:
		a.extremeS = v.S
	case v.Kind.IsFloat():
		a.extremeF = v.F
	default:
		a.extremeI = v.I
	}
}

func compareLess(v expr.Value, a *Accumulator) bool {
	if v.Kind == vtype.KindString {
		return v.S < a.extremeS
	}
	if v.Kind.IsFloat() || a.extremeKind.IsFloat() {
		return v.AsFloat64() < asFloat(a)
	}
	return v.I < a.extremeI
}

func valueEqualsExtreme(v expr.Value, a *Accumulator) bool {
	if v.Kind == vtype.KindString {
		return v.S == a.extremeS
	}
	if v.Kind.IsFloat() || a.extremeKind.IsFloat() {
		return v.AsFloat64() == asFloat(a)
	}
	return v.I == a.extremeI
}

func asFloat(a *Accumulator) float64 {
	if a.extremeKind.IsFloat() {
		return a.extremeF
	}
	return float64(a.extremeI)
}

// Count returns the number of non-null values folded in (or, for count(),
// every row seen via AddRowCount).
func (a *Accumulator) Count() int64 { return a.count }

// Result finalises the accumulator into the aggregate's output value, per
// spec.md §4.11's numeric semantics: sum over ints accumulates as Int64,
// avg is always Float64 (NaN on zero count), min/max/first/last on an
// empty group resolve to null, count() never nulls.
func (a *Accumulator) Result() (expr.Value, error) {
	switch a.fn {
	case expr.AggCount:
		return expr.Value{Kind: vtype.KindInt64, I: a.count}, nil
	case expr.AggSum:
		if a.inputKind.IsFloat() {
			return expr.Value{Kind: vtype.KindFloat64, F: a.sumF}, nil
		}
		return expr.Value{Kind: vtype.KindInt64, I: a.sumI}, nil
	case expr.AggAvg:
		total := a.sumF
		if !a.inputKind.IsFloat() {
			total = float64(a.sumI)
		}
		if a.count == 0 {
			return expr.Value{Kind: vtype.KindFloat64, F: math.NaN()}, nil
		}
		return expr.Value{Kind: vtype.KindFloat64, F: total / float64(a.count)}, nil
	case expr.AggMin, expr.AggMax:
		if !a.haveExtreme {
			return expr.Value{Kind: a.inputKind, Null: true}, nil
		}
		switch {
		case a.extremeKind == vtype.KindString:
			return expr.Value{Kind: vtype.KindString, S: a.extremeS}, nil
		case a.extremeKind.IsFloat():
			return expr.Value{Kind: a.extremeKind, F: a.extremeF}, nil
		default:
			return expr.Value{Kind: a.extremeKind, I: a.extremeI}, nil
		}
	case expr.AggFirst:
		if !a.haveFirst {
			return expr.Value{Kind: a.inputKind, Null: true}, nil
		}
		return a.first, nil
	case expr.AggLast:
		if !a.haveFirst {
			return expr.Value{Kind: a.inputKind, Null: true}, nil
		}
		return a.last, nil
	default:
		return expr.Value{}, verr.New(verr.KindInvalidArgument, "aggstate: unsupported aggregate function %v", a.fn)
	}
}
