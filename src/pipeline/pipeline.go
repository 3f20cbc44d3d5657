// Package pipeline implements the driver of spec.md §4.14: it holds an
// ordered operator chain over a chunk source and pulls it to completion (or
// to cancellation), the same "feed a chunk through a fixed operator stack"
// shape as the teacher's query.Run stripe loop, generalised so the stack is
// built from the operator package's composable Sources instead of one
// hand-inlined filter/aggregate pass.
package pipeline

import (
	"io"
	"sync/atomic"

	"github.com/vectra-db/vectra/src/chunk"
	"github.com/vectra-db/vectra/src/dict"
	"github.com/vectra-db/vectra/src/membudget"
	"github.com/vectra-db/vectra/src/operator"
	"github.com/vectra-db/vectra/src/verr"
	"github.com/vectra-db/vectra/src/vtype"
)

// CancelToken is the "cancellation flag" of spec.md §5: a pipeline checks
// it between chunks and after each pipeline-breaking operator finishes
// buffering. Safe for one goroutine to Cancel while another drives Execute.
type CancelToken struct {
	flag int32
}

// Cancel marks the token as set. Idempotent.
func (t *CancelToken) Cancel() { atomic.StoreInt32(&t.flag, 1) }

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool { return atomic.LoadInt32(&t.flag) != 0 }

// Pipeline holds the tail operator of a chain built by the caller (each
// operator.New* constructor wires itself to its upstream directly, so the
// "ordered list of operators" of spec.md §4.14 is just the chain rooted at
// root) plus the schema it produces, its cancel token and its budget.
type Pipeline struct {
	root    operator.Source
	schema  vtype.Schema
	cancel  *CancelToken
	budget  membudget.Reserver
}

// New builds a driver over root, which must already reflect the full
// operator chain (e.g. a Filter wrapping a Project wrapping a csvsrc
// adapter). cancel and budget may both be nil, in which case cancellation
// is never observed and allocations are never budget-checked. budget should
// be the same Reserver passed to vbuf.NewBufferPoolWithBudget when the
// caller built root's chunk/operator pools, so the limit this pipeline run
// reports is the one actually enforced at every buffer acquisition along
// its chain (spec.md §5).
func New(root operator.Source, schema vtype.Schema, cancel *CancelToken, budget membudget.Reserver) *Pipeline {
	if budget == nil {
		budget = membudget.Noop()
	}
	return &Pipeline{root: root, schema: schema, cancel: cancel, budget: budget}
}

// Budget returns the Reserver this pipeline was built with, so a facade can
// share one Reserver between the BufferPool(s) backing root and the
// Pipeline itself rather than configuring the limit twice.
func (p *Pipeline) Budget() membudget.Reserver { return p.budget }

// Result is what Execute/ExecuteAsync hand back: the output schema, the
// (possibly newly merged) dictionary of the last chunk produced, and either
// a materialised chunk vector or a pull-based iterator, caller's choice
// (spec.md §4.14).
type Result struct {
	Schema     vtype.Schema
	Dictionary *dict.Dictionary
	Chunks     []*chunk.Chunk
	// Next pulls the next chunk from the pipeline's chain directly, without
	// Execute having materialised anything. Present only when produced by
	// ExecuteAsync; returns io.EOF once exhausted.
	Next func() (*chunk.Chunk, error)
}

// Execute drains the pipeline in the current goroutine, checking cancel
// between every chunk, and returns a Result holding every produced chunk.
func (p *Pipeline) Execute() (*Result, error) {
	var chunks []*chunk.Chunk
	var lastDic *dict.Dictionary
	for {
		if p.cancel != nil && p.cancel.Cancelled() {
			p.disposeAll(chunks)
			return nil, verr.New(verr.KindCancelled, "pipeline: cancelled")
		}
		c, err := p.root.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.disposeAll(chunks)
			return nil, err
		}
		if c.RowCount() == 0 {
			continue
		}
		lastDic = c.Dictionary()
		chunks = append(chunks, c)
	}
	return &Result{Schema: p.schema, Dictionary: lastDic, Chunks: chunks}, nil
}

// ExecuteAsync mirrors Execute but never buffers the whole output: it
// returns immediately with a Result whose Next function pulls one chunk at
// a time, checking cancel on each call. Intended for a caller driving chunk
// consumption from its own suspendable producer (e.g. incremental file
// reads) rather than wanting every chunk materialised up front.
func (p *Pipeline) ExecuteAsync() *Result {
	next := func() (*chunk.Chunk, error) {
		if p.cancel != nil && p.cancel.Cancelled() {
			return nil, verr.New(verr.KindCancelled, "pipeline: cancelled")
		}
		return p.root.Next()
	}
	return &Result{Schema: p.schema, Next: next}
}

func (p *Pipeline) disposeAll(chunks []*chunk.Chunk) {
	for _, c := range chunks {
		c.Dispose()
	}
}
