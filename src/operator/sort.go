package operator

import (
	"math"
	"sort"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/expr"
	"github.com/vectra-db/vectra/src/vbuf"
	"github.com/vectra-db/vectra/src/vtype"
)

// SortKey is one ordering clause: sort by Column, Ascending or descending.
type SortKey struct {
	Column    string
	Ascending bool
}

// Sort is the pipeline-breaking stable multi-key sort of spec.md §4.9: it
// collects the entire input, sorts a row-index space with a comparator
// that walks the key list, then rebuilds output chunks via CopySelected.
type Sort struct {
	upstream Source
	schema   vtype.Schema
	keys     []SortKey
	keyKinds []expr.ValueKernel
	pool     *vbuf.BufferPool
	batch    int

	out     []*chunk.Chunk
	outPos  int
	started bool
}

// NewSort compiles each key column against schema.
func NewSort(upstream Source, keys []SortKey, schema vtype.Schema, pool *vbuf.BufferPool, batchSize int) (*Sort, error) {
	kernels := make([]expr.ValueKernel, len(keys))
	for i, k := range keys {
		vk, err := expr.Compile(&expr.Column{Name: k.Column}, schema)
		if err != nil {
			return nil, err
		}
		kernels[i] = vk
	}
	if batchSize <= 0 {
		batchSize = 16384
	}
	return &Sort{upstream: upstream, schema: schema, keys: keys, keyKinds: kernels, pool: pool, batch: batchSize}, nil
}

func (s *Sort) Schema() vtype.Schema { return s.schema }

func (s *Sort) Next() (*chunk.Chunk, error) {
	if !s.started {
		if err := s.run(); err != nil {
			return nil, err
		}
		s.started = true
	}
	if s.outPos >= len(s.out) {
		return nil, errDone
	}
	c := s.out[s.outPos]
	s.outPos++
	return c, nil
}

func (s *Sort) run() error {
	_, rows, err := collectAll(s.upstream)
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return s.less(rows[i], rows[j])
	})
	return s.emit(rows)
}

// less implements spec.md §4.9's comparator: walk keys left to right until
// a difference is found; nulls sort first ascending/last descending; NaN
// sorts greater than every non-NaN float.
func (s *Sort) less(a, b rowRef) bool {
	for i, k := range s.keys {
		va, err := s.keyKinds[i](a.chunk, a.row)
		if err != nil {
			continue
		}
		vb, err := s.keyKinds[i](b.chunk, b.row)
		if err != nil {
			continue
		}
		c := compareSortValues(va, vb)
		if !k.Ascending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func compareSortValues(a, b expr.Value) int {
	if a.Null && b.Null {
		return 0
	}
	if a.Null {
		return -1
	}
	if b.Null {
		return 1
	}
	if a.Kind == vtype.KindString {
		switch {
		case a.S < b.S:
			return -1
		case a.S > b.S:
			return 1
		default:
			return 0
		}
	}
	if a.Kind == vtype.KindBool {
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	}
	af, bf := a.AsFloat64(), b.AsFloat64()
	aNaN, bNaN := math.IsNaN(af), math.IsNaN(bf)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1 // NaN sorts greater than all non-NaN floats
	case bNaN:
		return -1
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func (s *Sort) emit(rows []rowRef) error {
	for start := 0; start < len(rows); start += s.batch {
		end := start + s.batch
		if end > len(rows) {
			end = len(rows)
		}
		c, err := buildRowChunk(s.schema, rows[start:end], s.pool)
		if err != nil {
			return err
		}
		s.out = append(s.out, c)
	}
	return nil
}
