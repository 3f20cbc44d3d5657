package csvsrc

import (
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// appendField decodes field (the raw bytes between two delimiters) and
// appends it to buf, the per-kind dispatch point spec.md §4.15 calls for:
// "decode it into a typed value using per-kind byte decoders". field already
// excludes surrounding quotes; nullLiterals classifies it as null first.
func appendField(buf vbuf.Buffer, dtype vtype.DType, field []byte, nullLiterals []string) error {
	if isNullLiteral(field, nullLiterals) {
		if dtype.Nullable {
			return buf.AppendNull()
		}
		return appendZero(buf)
	}
	switch b := buf.(type) {
	case *vbuf.BoolBuffer:
		v, err := decodeBool(field)
		if err != nil {
			return err
		}
		return b.Append(v)
	case *vbuf.StringBuffer:
		return b.Append(string(field))
	case *vbuf.NumericBuffer[int8]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(int8(v))
	case *vbuf.NumericBuffer[int16]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(int16(v))
	case *vbuf.NumericBuffer[int32]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(int32(v))
	case *vbuf.NumericBuffer[int64]:
		v, err := decodeBigInt(field, true)
		if err != nil {
			return err
		}
		return b.Append(v)
	case *vbuf.NumericBuffer[uint8]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(uint8(v))
	case *vbuf.NumericBuffer[uint16]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(uint16(v))
	case *vbuf.NumericBuffer[uint32]:
		v, err := decodeIntInline(field)
		if err != nil {
			return err
		}
		return b.Append(uint32(v))
	case *vbuf.NumericBuffer[uint64]:
		v, err := decodeBigInt(field, false)
		if err != nil {
			return err
		}
		return b.Append(uint64(v))
	case *vbuf.NumericBuffer[float32]:
		v, err := decodeFloat(field, 32)
		if err != nil {
			return err
		}
		return b.Append(float32(v))
	case *vbuf.NumericBuffer[float64]:
		v, err := decodeFloat(field, 64)
		if err != nil {
			return err
		}
		return b.Append(v)
	default:
		return verr.New(verr.KindTypeMismatch, "csvsrc: unsupported buffer type %T", buf)
	}
}

// appendZero appends the target kind's zero default, used for a
// non-nullable column's missing or empty field.
func appendZero(buf vbuf.Buffer) error {
	switch b := buf.(type) {
	case *vbuf.BoolBuffer:
		return b.Append(false)
	case *vbuf.StringBuffer:
		return b.Append("")
	case *vbuf.NumericBuffer[int8]:
		return b.Append(0)
	case *vbuf.NumericBuffer[int16]:
		return b.Append(0)
	case *vbuf.NumericBuffer[int32]:
		return b.Append(0)
	case *vbuf.NumericBuffer[int64]:
		return b.Append(0)
	case *vbuf.NumericBuffer[uint8]:
		return b.Append(0)
	case *vbuf.NumericBuffer[uint16]:
		return b.Append(0)
	case *vbuf.NumericBuffer[uint32]:
		return b.Append(0)
	case *vbuf.NumericBuffer[uint64]:
		return b.Append(0)
	case *vbuf.NumericBuffer[float32]:
		return b.Append(0)
	case *vbuf.NumericBuffer[float64]:
		return b.Append(0)
	default:
		return verr.New(verr.KindTypeMismatch, "csvsrc: unsupported buffer type %T", buf)
	}
}
