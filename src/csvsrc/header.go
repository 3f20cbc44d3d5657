package csvsrc

import (
	"strings"

	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// validateHeader matches a parsed header row against schema, building the
// CSV-column -> schema-column inverse projection. An explicit
// Options.Projection bypasses name matching entirely (the caller has already
// committed to a fixed column order); otherwise every schema column must
// appear among the header fields, matched case-sensitively first and
// case-insensitively as a fallback, per spec.md §4.15's "match against
// schema names as a set, in order after projection".
func validateHeader(headerFields []string, schema vtype.Schema, opts Options) ([]int, error) {
	if opts.Projection != nil {
		return projectionToInverse(opts.Projection, schema.Len()), nil
	}

	byName := make(map[string]int, len(headerFields))
	byFold := make(map[string]int, len(headerFields))
	for i, name := range headerFields {
		byName[name] = i
		byFold[strings.ToLower(name)] = i
	}

	inv := make([]int, len(headerFields))
	for i := range inv {
		inv[i] = -1
	}
	for schemaIdx, col := range schema.Columns {
		csvIdx, ok := byName[col.Name]
		if !ok {
			csvIdx, ok = byFold[strings.ToLower(col.Name)]
		}
		if !ok {
			return nil, verr.New(verr.KindSchemaMismatch, "csvsrc: header is missing column %q", col.Name)
		}
		inv[csvIdx] = schemaIdx
	}
	return inv, nil
}
