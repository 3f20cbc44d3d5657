// Package dict implements the string dictionary described in spec.md §4.2:
// a bijective, append-only mapping between strings and a dense, non-negative
// id space. The teacher (kokes/smda) never interns strings this way -
// ChunkStrings stores raw bytes with an offsets slice - so this package has
// no direct teacher analogue to adapt; it is built fresh, but in the
// teacher's small-interface, map-backed style (see column.AggState's use of
// a plain Go map for distinct-tracking in aggregations.go).
package dict

// NullIndex is the reserved sentinel id denoting "no string"; Lookup reports
// it as not found. Rows of a string column marked null in their bitmap
// ignore whatever id is stored alongside them; appending a null cell does
// not write NullIndex into it.
const NullIndex int32 = -1

// Dictionary interns strings into compact, dense int32 ids. Interning is
// idempotent: interning the same string twice returns the same id. A
// Dictionary is shared by reference across every chunk produced by the same
// source, and across chunks derived from it by the pipeline, unless an
// operator (Concat) must build a merged one. It is not safe for
// concurrent use - per spec.md §5, a pipeline is single-threaded and
// dictionaries are not synchronized.
type Dictionary struct {
	ids     map[string]int32
	strings []string
}

// New creates an empty dictionary.
func New() *Dictionary {
	return &Dictionary{ids: make(map[string]int32)}
}

// Intern returns s's id, assigning it the next dense id if s has not been
// seen by this dictionary before.
func (d *Dictionary) Intern(s string) int32 {
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := int32(len(d.strings))
	d.strings = append(d.strings, s)
	d.ids[s] = id
	return id
}

// InternBytes is Intern for a byte slice, avoiding a string allocation on
// the lookup path when the id already exists.
func (d *Dictionary) InternBytes(b []byte) int32 {
	if id, ok := d.ids[string(b)]; ok { // string(b) here does not escape, per Go's map-lookup optimisation
		return id
	}
	return d.Intern(string(b))
}

// Lookup resolves an id back to its string. ok is false for NullIndex or any
// id this dictionary never assigned.
func (d *Dictionary) Lookup(id int32) (string, bool) {
	if id < 0 || int(id) >= len(d.strings) {
		return "", false
	}
	return d.strings[id], true
}

// MustLookup panics if id is out of range; used on hot paths downstream of
// validation that already guarantees the id is one this dictionary minted.
func (d *Dictionary) MustLookup(id int32) string {
	s, ok := d.Lookup(id)
	if !ok {
		panic("dict: id out of range")
	}
	return s
}

// Len returns the number of distinct strings interned so far.
func (d *Dictionary) Len() int { return len(d.strings) }

// Clone produces an independent copy, used when an operator needs to extend
// a dictionary without mutating the one shared by other chunks upstream.
func (d *Dictionary) Clone() *Dictionary {
	nd := &Dictionary{
		ids:     make(map[string]int32, len(d.ids)),
		strings: append([]string(nil), d.strings...),
	}
	for k, v := range d.ids {
		nd.ids[k] = v
	}
	return nd
}

// Merge builds a new dictionary containing every string from d and other,
// returning it along with a translation table mapping other's ids to the
// merged dictionary's ids. Used by Concat when two chunk streams
// carry distinct dictionaries and must be reconciled (spec.md §4.12, §4.13).
func Merge(d, other *Dictionary) (merged *Dictionary, otherToMerged []int32) {
	merged = d.Clone()
	otherToMerged = make([]int32, len(other.strings))
	for id, s := range other.strings {
		otherToMerged[id] = merged.Intern(s)
	}
	return merged, otherToMerged
}
