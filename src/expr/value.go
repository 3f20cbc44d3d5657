package expr

import "github.com/vectra-db/vectra/src/vtype"

// Value is a typed scalar result from a compiled value kernel. Only the
// field matching Kind is meaningful. This mirrors the teacher's pattern of
// returning a freshly built column.Chunk from Evaluate, shrunk down to a
// single cell since vectra's compiler produces row-level kernels rather than
// whole-chunk evaluators (spec.md §4.4).
type Value struct {
	Kind vtype.Kind
	Null bool
	I    int64
	F    float64
	B    bool
	S    string
}

// AsFloat64 widens an Int or Float value to float64; used by arithmetic and
// comparison kernels operating at the promoted kind.
func (v Value) AsFloat64() float64 {
	if v.Kind.IsFloat() {
		return v.F
	}
	return float64(v.I)
}
