package dict

import (
	"encoding/binary"
	"io"
)

// Serialize writes d's strings in insertion order, the order Intern
// originally assigned their ids. Deserialize replays that same order
// through Intern, reproducing identical ids without writing them explicitly.
func Serialize(w io.Writer, d *Dictionary) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(d.strings))); err != nil {
		return err
	}
	for _, s := range d.strings {
		if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize is the inverse of Serialize.
func Deserialize(r io.Reader) (*Dictionary, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	d := New()
	for i := int32(0); i < n; i++ {
		var slen int32
		if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
			return nil, err
		}
		buf := make([]byte, slen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		d.Intern(string(buf))
	}
	return d, nil
}
