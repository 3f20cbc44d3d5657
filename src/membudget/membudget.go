// Package membudget is the in-core side of the memory-budget bookkeeper:
// spec.md §1 names the bookkeeper itself an external collaborator, so this
// package carries only the Reserver contract the core consumes
// (reserve(n)/release(n)) plus a small counting implementation good enough
// to exercise it end to end. The teacher has no analogous abstraction at
// all - a global byte counter per task is foreign to a single-process
// query tool - so this is built fresh, in the teacher's small-interface
// style (see vbuf.BufferPool for the same shape: one mutex, one map, a
// handful of plain methods).
package membudget

import (
	"sync"

	"github.com/vectra-db/vectra/src/verr"
)

// largeAllocationThreshold is spec.md §5's "column buffers of size ≥ 64 KiB"
// line; callers acquiring a buffer below this size never need to consult a
// Reserver at all.
const largeAllocationThreshold = 64 * 1024

// Reserver is consulted before large allocations. Reserve returns
// verr.KindOutOfBudget when the request would push the task over its
// share of the budget; Release gives bytes back once a buffer is disposed.
type Reserver interface {
	Reserve(bytes int) error
	Release(bytes int)
}

// Config mirrors spec.md §6's "memory" configuration block.
type Config struct {
	GlobalLimitBytes    int64
	MaxTaskSharePercent float64
	Enabled             bool
}

// DefaultConfig matches the documented defaults: a 1 GiB global limit, each
// task capped at 70% of it, enforcement on.
func DefaultConfig() Config {
	return Config{
		GlobalLimitBytes:    1 << 30,
		MaxTaskSharePercent: 0.7,
		Enabled:             true,
	}
}

// Budget is a counting Reserver: a process-wide byte counter shared across
// tasks, plus a per-task cap derived from MaxTaskSharePercent. A disabled
// Budget (Config.Enabled == false) never denies a reservation.
type Budget struct {
	cfg Config

	mu        sync.Mutex
	globalUsed int64
}

// NewBudget constructs a Budget from cfg. A zero GlobalLimitBytes with
// Enabled set is treated as "no budget configured" and never denies.
func NewBudget(cfg Config) *Budget {
	return &Budget{cfg: cfg}
}

// NewTask returns a Reserver scoped to one task, tracking its own usage
// against min(taskLimit, remaining global headroom) without needing to
// know about sibling tasks beyond the shared counter.
func (b *Budget) NewTask() *TaskBudget {
	limit := int64(0)
	if b.cfg.Enabled && b.cfg.GlobalLimitBytes > 0 {
		limit = int64(float64(b.cfg.GlobalLimitBytes) * b.cfg.MaxTaskSharePercent)
	}
	return &TaskBudget{parent: b, taskLimit: limit}
}

// TaskBudget is the Reserver handed to a single pipeline run.
type TaskBudget struct {
	parent    *Budget
	taskLimit int64

	mu       sync.Mutex
	taskUsed int64
}

// Reserve accounts for an allocation of bytes against both the task's own
// cap and the shared global counter, rolling back the task-local increment
// if the global reservation fails. Requests below largeAllocationThreshold
// are never denied, matching spec.md §5's acquisition-time budget check.
func (t *TaskBudget) Reserve(bytes int) error {
	if !t.parent.cfg.Enabled || bytes < largeAllocationThreshold {
		return nil
	}
	t.mu.Lock()
	if t.taskLimit > 0 && t.taskUsed+int64(bytes) > t.taskLimit {
		t.mu.Unlock()
		return verr.New(verr.KindOutOfBudget, "membudget: task reservation of %d bytes exceeds task limit %d (used %d)", bytes, t.taskLimit, t.taskUsed)
	}
	t.taskUsed += int64(bytes)
	t.mu.Unlock()

	p := t.parent
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.GlobalLimitBytes > 0 && p.globalUsed+int64(bytes) > p.cfg.GlobalLimitBytes {
		t.mu.Lock()
		t.taskUsed -= int64(bytes)
		t.mu.Unlock()
		return verr.New(verr.KindOutOfBudget, "membudget: global reservation of %d bytes exceeds limit %d (used %d)", bytes, p.cfg.GlobalLimitBytes, p.globalUsed)
	}
	p.globalUsed += int64(bytes)
	return nil
}

// Release returns bytes to both the task and global counters. Releasing
// more than was reserved is a caller bug; Release clamps at zero rather
// than going negative.
func (t *TaskBudget) Release(bytes int) {
	if !t.parent.cfg.Enabled || bytes < largeAllocationThreshold {
		return
	}
	t.mu.Lock()
	t.taskUsed -= int64(bytes)
	if t.taskUsed < 0 {
		t.taskUsed = 0
	}
	t.mu.Unlock()

	p := t.parent
	p.mu.Lock()
	p.globalUsed -= int64(bytes)
	if p.globalUsed < 0 {
		p.globalUsed = 0
	}
	p.mu.Unlock()
}

// Used reports the task's current reserved byte count, for tests and
// diagnostics.
func (t *TaskBudget) Used() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.taskUsed
}

// noopReserver never denies a reservation; used when a pipeline is built
// without a configured Budget.
type noopReserver struct{}

func (noopReserver) Reserve(int) error { return nil }
func (noopReserver) Release(int)       {}

// Noop returns a Reserver that never consults a budget.
func Noop() Reserver { return noopReserver{} }
