// Package queue implements the phased FIFO queue that sits between the
// Scanner and the Phase Engine. A queue holds exactly one item per work
// identity, bucketed by phase, and guarantees O(1) dedup/lookup plus strict
// FIFO order within a phase.
package queue

import (
	"sync"

	"github.com/autodevhq/autodev/internal/work"
)

// Phase is any comparable phase marker (work.IssuePhase, work.PRPhase, or
// work.MergePhase all satisfy it).
type Phase interface {
	comparable
}

// Queue is a phased FIFO over items of type T, keyed by work.ID, bucketed by
// phase P. It is safe for concurrent use; mutations run under a single
// mutex held only for the duration of the synchronous operation.
type Queue[P Phase, T work.Item] struct {
	mu      sync.Mutex
	phases  map[P][]T
	indexOf map[work.ID]P
}

// New creates an empty queue.
func New[P Phase, T work.Item]() *Queue[P, T] {
	return &Queue[P, T]{
		phases:  make(map[P][]T),
		indexOf: make(map[work.ID]P),
	}
}

// Push appends item to phase's FIFO unless its identity is already present
// in any phase. Returns false (and does nothing) on a dedup hit.
func (q *Queue[P, T]) Push(phase P, item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := item.WorkID()
	if _, exists := q.indexOf[id]; exists {
		return false
	}
	q.phases[phase] = append(q.phases[phase], item)
	q.indexOf[id] = phase
	return true
}

// Peek returns the head of phase's FIFO without removing it. ok is false
// if the phase is empty.
func (q *Queue[P, T]) Peek(phase P) (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	bucket := q.phases[phase]
	if len(bucket) == 0 {
		return item, false
	}
	return bucket[0], true
}

// Pop removes and returns the head of phase's FIFO. ok is false if the phase
// is empty.
func (q *Queue[P, T]) Pop(phase P) (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	bucket := q.phases[phase]
	if len(bucket) == 0 {
		return item, false
	}
	item = bucket[0]
	q.phases[phase] = bucket[1:]
	delete(q.indexOf, item.WorkID())
	return item, true
}

// Transit atomically moves id from phase from to phase to. It is a no-op
// (returns false) unless id is currently in from. FIFO order of everything
// else in from and to is preserved.
func (q *Queue[P, T]) Transit(id work.ID, from, to P) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur, exists := q.indexOf[id]
	if !exists || cur != from {
		return false
	}

	bucket := q.phases[from]
	idx := -1
	for i, it := range bucket {
		if it.WorkID() == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	item := bucket[idx]
	q.phases[from] = append(bucket[:idx], bucket[idx+1:]...)
	q.phases[to] = append(q.phases[to], item)
	q.indexOf[id] = to
	return true
}

// Remove unconditionally removes id from whatever phase holds it.
func (q *Queue[P, T]) Remove(id work.ID) (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	phase, exists := q.indexOf[id]
	if !exists {
		return item, false
	}
	bucket := q.phases[phase]
	idx := -1
	for i, it := range bucket {
		if it.WorkID() == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		delete(q.indexOf, id)
		return item, false
	}
	item = bucket[idx]
	q.phases[phase] = append(bucket[:idx], bucket[idx+1:]...)
	delete(q.indexOf, id)
	return item, true
}

// Contains reports whether id is present in any phase.
func (q *Queue[P, T]) Contains(id work.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.indexOf[id]
	return ok
}

// PhaseOf returns the phase currently holding id.
func (q *Queue[P, T]) PhaseOf(id work.ID) (phase P, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	phase, ok = q.indexOf[id]
	return
}

// Len returns the number of items currently in phase.
func (q *Queue[P, T]) Len(phase P) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.phases[phase])
}

// Total returns the number of items across all phases.
func (q *Queue[P, T]) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.indexOf)
}

// Iter returns a snapshot copy of phase's FIFO, safe to range over without
// holding the queue's lock.
func (q *Queue[P, T]) Iter(phase P) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.phases[phase]))
	copy(out, q.phases[phase])
	return out
}

// IterAll returns a snapshot of every item in the queue, in no particular
// cross-phase order.
func (q *Queue[P, T]) IterAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, 0, len(q.indexOf))
	for _, bucket := range q.phases {
		out = append(out, bucket...)
	}
	return out
}
