// Package vtype defines vectra's physical type system: the Kind enum, the
// (Kind, nullable) DType pair, and the Schema that describes a chunk's
// columns. It is grounded in kokes/smda's src/column/schema.go (Dtype enum,
// byte-level parseInt/parseFloat/parseBool, TypeGuesser), generalised from
// smda's five dtypes to the full physical Kind set spec.md §3 requires
// (signed/unsigned integer widths, both float widths, Timestamp/Date as
// distinct 64-bit epoch counts, String as a dictionary-backed Int32).
package vtype

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind identifies the physical representation of a column's values.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindTimestamp // signed 64-bit epoch count (e.g. microseconds)
	KindDate      // signed 64-bit day count
	KindString    // dictionary index, physical type Int32
	kindMax
)

func (k Kind) String() string {
	names := [...]string{
		"invalid", "bool", "int8", "int16", "int32", "int64",
		"uint8", "uint16", "uint32", "uint64", "float32", "float64",
		"timestamp", "date", "string",
	}
	if int(k) >= len(names) {
		return "unknown"
	}
	return names[k]
}

// ElementWidth returns the fixed per-row byte width a ColumnBuffer reserves
// for this kind. Boolean is 1 by convention (bit-packed null tracking lives
// in a separate bitmap, not in the value buffer); BigInt-width kinds are 8.
func (k Kind) ElementWidth() int {
	switch k {
	case KindBool, KindInt8, KindUint8:
		return 1
	case KindInt16, KindUint16:
		return 2
	case KindInt32, KindUint32, KindFloat32, KindString:
		return 4
	case KindInt64, KindUint64, KindFloat64, KindTimestamp, KindDate:
		return 8
	default:
		panic(fmt.Sprintf("vtype: no element width for kind %v", k))
	}
}

// IsNumeric reports whether a kind participates in arithmetic/numeric comparisons.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat32, KindFloat64:
		return true
	}
	return false
}

// IsInteger reports whether a kind is one of the signed/unsigned integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

// IsFloat reports whether a kind is Float32 or Float64.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// DType is a physical kind plus its nullability.
type DType struct {
	Kind     Kind
	Nullable bool
}

func (dt DType) String() string {
	if dt.Nullable {
		return dt.Kind.String() + "?"
	}
	return dt.Kind.String()
}

// Equal compares two dtypes structurally.
func (dt DType) Equal(other DType) bool {
	return dt.Kind == other.Kind && dt.Nullable == other.Nullable
}

var errEmptyName = errors.New("vtype: column name must not be empty after trimming")
var errDuplicateName = errors.New("vtype: duplicate column name (case-insensitive)")
var errInvalidKind = errors.New("vtype: unsupported kind")
var errEmptySchema = errors.New("vtype: schema must have at least one column")

// isNull reports whether a raw field value should be treated as the absence
// of a value. Null-literal matching beyond the empty string is configured
// per-parse (see csvsrc), not here.
func isNull(s string) bool {
	return s == ""
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// parseBool recognises the same tight literal set the teacher's loader used,
// extended per spec.md §4.15 to 1/T/t/Y/y as true (and 0/F/f/N/n as false).
func parseBool(s string) (bool, error) {
	switch s {
	case "1", "T", "t", "Y", "y", "true", "TRUE", "True":
		return true, nil
	case "0", "F", "f", "N", "n", "false", "FALSE", "False":
		return false, nil
	}
	return false, errors.New("vtype: not a bool")
}

// guessType picks the narrowest Kind a raw string value is compatible with.
// It does not consider nullability; isNull is the caller's concern.
func guessType(s string) Kind {
	if _, err := parseBool(s); err == nil {
		return KindBool
	}
	if _, err := parseInt(s); err == nil {
		return KindInt64
	}
	if _, err := parseFloat(s); err == nil {
		return KindFloat64
	}
	return KindString
}
