package vtype

import (
	"errors"
	"fmt"
	"strings"
)

// ColumnDescriptor names a single column and its physical dtype.
type ColumnDescriptor struct {
	Name  string
	DType DType
}

// Schema is an ordered list of column descriptors plus a name lookup index.
// Column names are unique within a schema; lookup is case-sensitive, but
// construction rejects names that collide under case-insensitive comparison
// (spec.md §3, §6).
type Schema struct {
	Columns []ColumnDescriptor
	index   map[string]int
}

// NewSchema validates and builds a Schema from an ordered column list.
func NewSchema(cols []ColumnDescriptor) (Schema, error) {
	if len(cols) == 0 {
		return Schema{}, errEmptySchema
	}
	index := make(map[string]int, len(cols))
	seenFold := make(map[string]string, len(cols))
	for i, c := range cols {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return Schema{}, fmt.Errorf("%w: column %d", errEmptyName, i)
		}
		if c.DType.Kind <= KindInvalid || c.DType.Kind >= kindMax {
			return Schema{}, fmt.Errorf("%w: column %q has kind %v", errInvalidKind, name, c.DType.Kind)
		}
		fold := strings.ToLower(name)
		if prev, ok := seenFold[fold]; ok {
			return Schema{}, fmt.Errorf("%w: %q collides with %q", errDuplicateName, name, prev)
		}
		seenFold[fold] = name
		index[name] = i
		cols[i].Name = name
	}
	return Schema{Columns: cols, index: index}, nil
}

// Len returns the number of columns.
func (s Schema) Len() int { return len(s.Columns) }

// LocateColumn returns the index and descriptor for an exact (case-sensitive) name match.
func (s Schema) LocateColumn(name string) (int, ColumnDescriptor, error) {
	idx, ok := s.index[name]
	if !ok {
		return -1, ColumnDescriptor{}, fmt.Errorf("%w: column %q not found", errSchemaMismatch, name)
	}
	return idx, s.Columns[idx], nil
}

// LocateColumnCaseInsensitive is a convenience for callers (e.g. the CSV
// header matcher) that only have a case-folded name in hand.
func (s Schema) LocateColumnCaseInsensitive(name string) (int, ColumnDescriptor, error) {
	fold := strings.ToLower(name)
	for i, c := range s.Columns {
		if strings.ToLower(c.Name) == fold {
			return i, c, nil
		}
	}
	return -1, ColumnDescriptor{}, fmt.Errorf("%w: column %q not found", errSchemaMismatch, name)
}

// Names returns the ordered column names.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Equal compares two schemas up to column order: the same (name, dtype)
// pairs must be present in both, regardless of position.
func (s Schema) Equal(other Schema) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for _, c := range s.Columns {
		_, oc, err := other.LocateColumn(c.Name)
		if err != nil || !oc.DType.Equal(c.DType) {
			return false
		}
	}
	return true
}

var errSchemaMismatch = errors.New("vtype: schema mismatch")
