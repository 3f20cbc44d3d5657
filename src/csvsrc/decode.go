package csvsrc

import (
	"strconv"

	"github.com/vectra-db/vectra/src/verr"
)

// decodeIntInline parses a signed decimal integer directly from bytes
// without routing through strconv, per spec.md §4.15's "inlined integer
// parsers that operate directly on bytes". Used for every integer kind
// narrower than 64 bits; Int64/Uint64 go through strconv (see decodeBigInt)
// since validating bit-width overflow by hand buys nothing over ParseInt.
func decodeIntInline(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, verr.New(verr.KindInvalidInteger, "csvsrc: empty integer field")
	}
	neg := false
	i := 0
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		i++
	}
	if i == len(b) {
		return 0, verr.New(verr.KindInvalidInteger, "csvsrc: invalid integer %q", b)
	}
	var v int64
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, verr.New(verr.KindInvalidInteger, "csvsrc: invalid integer %q", b)
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

// decodeBigInt parses Int64/Uint64/Timestamp/Date fields via strconv, per
// spec.md §4.15's note that BigInt-width kinds use string decode.
func decodeBigInt(b []byte, signed bool) (int64, error) {
	s := string(b)
	if signed {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, verr.New(verr.KindInvalidInteger, "csvsrc: invalid integer %q", b)
		}
		return v, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, verr.New(verr.KindInvalidInteger, "csvsrc: invalid integer %q", b)
	}
	return int64(v), nil
}

func decodeFloat(b []byte, bitSize int) (float64, error) {
	v, err := strconv.ParseFloat(string(b), bitSize)
	if err != nil {
		return 0, verr.New(verr.KindInvalidFloat, "csvsrc: invalid float %q", b)
	}
	return v, nil
}

// decodeBool recognises the same literal set as vtype's inference path
// (spec.md §4.15: "1/T/t/Y/y" true, "0/F/f/N/n" false).
func decodeBool(b []byte) (bool, error) {
	switch string(b) {
	case "1", "T", "t", "Y", "y", "true", "TRUE", "True":
		return true, nil
	case "0", "F", "f", "N", "n", "false", "FALSE", "False":
		return false, nil
	}
	return false, verr.New(verr.KindInvalidArgument, "csvsrc: invalid boolean %q", b)
}

// isNullLiteral reports whether field exactly matches one of literals or is
// empty (the empty field is always null, regardless of literals).
func isNullLiteral(field []byte, literals []string) bool {
	if len(field) == 0 {
		return true
	}
	for _, lit := range literals {
		if lit == "" {
			continue // the empty string case was already handled above
		}
		if string(field) == lit {
			return true
		}
	}
	return false
}
