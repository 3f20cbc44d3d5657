package operator

import (
	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// Mapping names one output column: Target is the output name, Source is
// the input schema column it reads from (equal to Target for a plain
// subset selection, different for a rename).
type Mapping struct {
	Source string
	Target string
}

// Project reorders, renames or subsets an input schema's columns without
// copying column storage (spec.md §4.6): output buffers are the same
// objects as the matching input buffers, just referenced under the
// mapping's target position.
type Project struct {
	upstream  Source
	outSchema vtype.Schema
	srcIndex  []int // outSchema column i reads input column srcIndex[i]
}

// NewProject validates mappings against inSchema and builds the output
// schema in mapping order.
func NewProject(upstream Source, mappings []Mapping, inSchema vtype.Schema) (*Project, error) {
	cols := make([]vtype.ColumnDescriptor, len(mappings))
	srcIndex := make([]int, len(mappings))
	for i, m := range mappings {
		idx, desc, err := inSchema.LocateColumn(m.Source)
		if err != nil {
			return nil, verr.Wrap(verr.KindSchemaMismatch, err, "project: source column %q not found", m.Source)
		}
		srcIndex[i] = idx
		cols[i] = vtype.ColumnDescriptor{Name: m.Target, DType: desc.DType}
	}
	outSchema, err := vtype.NewSchema(cols)
	if err != nil {
		return nil, verr.Wrap(verr.KindSchemaMismatch, err, "project: invalid output schema")
	}
	return &Project{upstream: upstream, outSchema: outSchema, srcIndex: srcIndex}, nil
}

func (p *Project) Schema() vtype.Schema { return p.outSchema }

func (p *Project) Next() (*chunk.Chunk, error) {
	c, err := p.upstream.Next()
	if err != nil {
		return nil, err
	}
	bufs := make([]vbuf.Buffer, len(p.srcIndex))
	for i, si := range p.srcIndex {
		bufs[i] = c.Buffer(si)
	}
	nc, err := chunk.New(p.outSchema, bufs, c.Dictionary(), nil)
	if err != nil {
		return nil, err
	}
	if c.HasSelection() {
		nc.ApplySelection(c.Selection())
	}
	return nc, nil
}
