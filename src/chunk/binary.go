package chunk

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// MarshalBinary serializes c's dictionary (if any) and every column buffer
// in schema order. The schema itself is not written - a caller holds it
// already, the same way Deserialize below takes it as a parameter rather
// than round-tripping it. A selection vector, if active, is materialized
// away first: the wire format always describes physical rows, matching
// spec.md's invariant that materialize(C).hasSelection() is always false.
//
// This is the binary wire format of SPEC_FULL.md §3 "Supplemented
// features" (no operator calls it), grounded in the teacher's
// ChunkInts.MarshalBinary / ChunkFloats.MarshalBinary wire layout: a
// length-prefixed value slice followed by a bitmap header.
func (c *Chunk) MarshalBinary() ([]byte, error) {
	src := c
	if c.HasSelection() {
		mc, err := c.Materialize()
		if err != nil {
			return nil, err
		}
		src = mc
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int32(src.PhysicalRowCount())); err != nil {
		return nil, err
	}
	hasDict := src.dictionary != nil
	if err := writeBool(&buf, hasDict); err != nil {
		return nil, err
	}
	if hasDict {
		if err := dict.Serialize(&buf, src.dictionary); err != nil {
			return nil, err
		}
	}
	for _, b := range src.buffers {
		if err := writeBuffer(&buf, b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Deserialize rebuilds a chunk conforming to schema from bytes written by
// MarshalBinary. The result has no pool (its buffers cannot be recycled via
// Dispose) and no selection vector.
func Deserialize(schema vtype.Schema, data []byte) (*Chunk, error) {
	r := bytes.NewReader(data)
	var rowCount int32
	if err := binary.Read(r, binary.LittleEndian, &rowCount); err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "chunk: reading row count")
	}
	hasDict, err := readBool(r)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "chunk: reading dictionary flag")
	}
	var dic *dict.Dictionary
	if hasDict {
		dic, err = dict.Deserialize(r)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "chunk: reading dictionary")
		}
	}

	buffers := make([]vbuf.Buffer, schema.Len())
	for i, col := range schema.Columns {
		b, err := readBuffer(r, col.DType.Kind, dic)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "chunk: reading column %q", col.Name)
		}
		buffers[i] = b
	}
	return New(schema, buffers, dic, nil)
}

func writeBuffer(w io.Writer, b vbuf.Buffer) error {
	switch buf := b.(type) {
	case *vbuf.BoolBuffer:
		return buf.WriteBinary(w)
	case *vbuf.StringBuffer:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[int8]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[int16]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[int32]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[int64]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[uint8]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[uint16]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[uint32]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[uint64]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[float32]:
		return buf.WriteBinary(w)
	case *vbuf.NumericBuffer[float64]:
		return buf.WriteBinary(w)
	default:
		return verr.New(verr.KindTypeMismatch, "chunk: unsupported buffer type %T", b)
	}
}

func readBuffer(r io.Reader, kind vtype.Kind, dic *dict.Dictionary) (vbuf.Buffer, error) {
	switch kind {
	case vtype.KindBool:
		return vbuf.ReadBoolBuffer(r)
	case vtype.KindString:
		return vbuf.ReadStringBuffer(r, dic)
	case vtype.KindInt8:
		return vbuf.ReadNumericBuffer[int8](r, kind)
	case vtype.KindInt16:
		return vbuf.ReadNumericBuffer[int16](r, kind)
	case vtype.KindInt32:
		return vbuf.ReadNumericBuffer[int32](r, kind)
	case vtype.KindInt64, vtype.KindTimestamp, vtype.KindDate:
		return vbuf.ReadNumericBuffer[int64](r, kind)
	case vtype.KindUint8:
		return vbuf.ReadNumericBuffer[uint8](r, kind)
	case vtype.KindUint16:
		return vbuf.ReadNumericBuffer[uint16](r, kind)
	case vtype.KindUint32:
		return vbuf.ReadNumericBuffer[uint32](r, kind)
	case vtype.KindUint64:
		return vbuf.ReadNumericBuffer[uint64](r, kind)
	case vtype.KindFloat32:
		return vbuf.ReadNumericBuffer[float32](r, kind)
	case vtype.KindFloat64:
		return vbuf.ReadNumericBuffer[float64](r, kind)
	default:
		return nil, verr.New(verr.KindTypeMismatch, "chunk: unsupported kind %v", kind)
	}
}

func writeBool(w io.Writer, v bool) error {
	var b byte
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}
