package aggstate

import (
	"encoding/binary"
	"math"

	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vtype"
)

// GroupKey is a byte-encoded group-by key tuple, suitable as a Go map key.
// Grounded in the teacher's use of fnv hashing over concatenated bytes in
// aggregations.go's string adder; vectra encodes the full tuple (not just a
// hash) so two distinct tuples never collide into the same map bucket.
type GroupKey string

// Tag bytes prefixing each encoded value in a GroupKey. Numeric values all
// share one tag regardless of their specific Kind/width - see the comment
// on the numeric case below for why.
const (
	keyTagNull    byte = 0xFF
	keyTagBool    byte = 0xFE
	keyTagString  byte = 0xFD
	keyTagNumeric byte = 0xFC
)

// BuildKey encodes an ordered tuple of group-by values into a GroupKey.
// Each value is tagged so that distinct categories (or a null vs. a zero
// value) never encode to the same bytes.
func BuildKey(values []expr.Value) GroupKey {
	buf := make([]byte, 0, 9*len(values))
	var scratch [8]byte
	for _, v := range values {
		if v.Null {
			buf = append(buf, keyTagNull)
			continue
		}
		switch {
		case v.Kind.IsNumeric():
			// Int and Float columns of any width are all tagged and
			// encoded alike, via the canonical AsFloat64 view Cmp
			// already uses for cross-kind numeric equality (ops.go's
			// compareEqCmp) - a join key built from an Int32 column and
			// one built from an Int64 (or Float64) column must hash
			// identically when the values are numerically equal, since
			// NewJoin's own validation allows joining them.
			binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(v.AsFloat64()))
			buf = append(buf, keyTagNumeric)
			buf = append(buf, scratch[:]...)
		case v.Kind == vtype.KindString:
			buf = append(buf, keyTagString)
			buf = append(buf, byte(len(v.S)), byte(len(v.S)>>8), byte(len(v.S)>>16), byte(len(v.S)>>24))
			buf = append(buf, v.S...)
		case v.Kind == vtype.KindBool:
			buf = append(buf, keyTagBool)
			b := byte(0)
			if v.B {
				b = 1
			}
			buf = append(buf, b)
		default: // Date, Timestamp: reinterpreted as a 64-bit count
			binary.LittleEndian.PutUint64(scratch[:], uint64(v.I))
			buf = append(buf, byte(v.Kind))
			buf = append(buf, scratch[:]...)
		}
	}
	return GroupKey(buf)
}

// Group holds one group's key values and its per-aggregate accumulators, in
// the order the group was first seen (spec.md §4.11: "emit groups in first-
// seen order").
type Group struct {
	KeyValues []expr.Value
	Accs      []*Accumulator
}

// Table is the hash map group-by driver: key-tuple -> Group, plus the
// insertion order needed for deterministic, spec-compliant emission.
type Table struct {
	groups map[GroupKey]*Group
	order  []GroupKey
}

// NewTable creates an empty group table.
func NewTable() *Table {
	return &Table{groups: make(map[GroupKey]*Group)}
}

// GroupFor returns the Group for key, creating it (via newAccs, called only
// on first sight of this key) if it does not exist yet.
func (t *Table) GroupFor(key GroupKey, keyValues []expr.Value, newAccs func() []*Accumulator) *Group {
	g, ok := t.groups[key]
	if ok {
		return g
	}
	g = &Group{KeyValues: keyValues, Accs: newAccs()}
	t.groups[key] = g
	t.order = append(t.order, key)
	return g
}

// Len returns the number of distinct groups seen so far.
func (t *Table) Len() int { return len(t.order) }

// Each iterates groups in first-seen (insertion) order.
func (t *Table) Each(fn func(g *Group)) {
	for _, k := range t.order {
		fn(t.groups[k])
	}
}
