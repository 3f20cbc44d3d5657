package vbuf

import (
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vtype"
)

// StringBuffer stores dictionary ids (physical type Int32, per spec.md §3)
// plus a reference to the dictionary those ids resolve against. All string
// comparison, sort and hash operations work on the ids; the dictionary is
// only consulted for display (spec.md DESIGN NOTES: "implement display
// strictly through dictionary lookup for string columns").
type StringBuffer struct {
	ids *NumericBuffer[int32]
	dic *dict.Dictionary
}

// NewStringBuffer allocates a string buffer of the given capacity, backed
// by dic (shared, not copied - interning a new value mutates dic in place).
func NewStringBuffer(capacity int, nullable bool, dic *dict.Dictionary) *StringBuffer {
	return &StringBuffer{ids: NewNumericBuffer[int32](vtype.KindString, capacity, nullable), dic: dic}
}

func (b *StringBuffer) Kind() vtype.Kind { return vtype.KindString }
func (b *StringBuffer) Nullable() bool   { return b.ids.Nullable() }
func (b *StringBuffer) Len() int         { return b.ids.Len() }
func (b *StringBuffer) Capacity() int    { return b.ids.Capacity() }

// Dictionary returns the dictionary this buffer's ids resolve against.
func (b *StringBuffer) Dictionary() *dict.Dictionary { return b.dic }

// Append interns s and appends its id.
func (b *StringBuffer) Append(s string) error {
	return b.ids.Append(b.dic.Intern(s))
}

// AppendID appends a pre-resolved dictionary id directly, used when copying
// ids that already belong to this buffer's dictionary (e.g. after a Merge).
func (b *StringBuffer) AppendID(id int32) error {
	return b.ids.Append(id)
}

func (b *StringBuffer) AppendNull() error { return b.ids.AppendNull() }

// GetID returns the raw dictionary id at position i (dict.NullIndex-valued
// storage is possible but meaningless at null positions).
func (b *StringBuffer) GetID(i int) int32 { return b.ids.Get(i) }

// GetString resolves position i's value through the dictionary. Callers
// must check IsNull first; this does not special-case null positions.
func (b *StringBuffer) GetString(i int) string {
	return b.dic.MustLookup(b.ids.Get(i))
}

func (b *StringBuffer) IsNull(i int) bool  { return b.ids.IsNull(i) }
func (b *StringBuffer) SetNull(i int)      { b.ids.SetNull(i) }
func (b *StringBuffer) SetNotNull(i int)   { b.ids.SetNotNull(i) }

func (b *StringBuffer) CopySelected(src Buffer, sel []uint32) error {
	sb, ok := src.(*StringBuffer)
	if !ok {
		return b.ids.CopySelected(src, sel) // surfaces the same SchemaMismatch error
	}
	if sb.dic == b.dic {
		return b.ids.CopySelected(sb.ids, sel)
	}
	// source uses a different dictionary: re-intern each string into ours
	for _, pos := range sel {
		if sb.IsNull(int(pos)) {
			if err := b.AppendNull(); err != nil {
				return err
			}
			continue
		}
		if err := b.Append(sb.GetString(int(pos))); err != nil {
			return err
		}
	}
	return nil
}

func (b *StringBuffer) Clone() Buffer {
	return &StringBuffer{ids: b.ids.Clone().(*NumericBuffer[int32]), dic: b.dic}
}

func (b *StringBuffer) Reset() { b.ids.Reset() }

// Rebind swaps the dictionary a string buffer's ids resolve against,
// translating every existing id through translate. Used by Concat
// after a dict.Merge to move a chunk's string columns onto the merged
// dictionary (spec.md §4.12, §4.13).
func (b *StringBuffer) Rebind(merged *dict.Dictionary, translate []int32) {
	for i := 0; i < b.ids.Len(); i++ {
		if b.IsNull(i) {
			continue
		}
		old := b.ids.Get(i)
		b.ids.data[i] = translate[old]
	}
	b.dic = merged
}
