// SPDX-License-Identifier: MPL-2.0

// Package throttle bounds how many operations run at the same time.
//
// A Throttler is shared by every writer of a build so the cap applies to
// the aggregate of all platform tasks. Operations beyond the cap wait in a
// FIFO queue and are started by the goroutine of the operation that frees
// the slot.
package throttle

import (
	"context"
	"sync"

	"github.com/gammazero/deque"
)

// DefaultMaxActive is used when a non-positive limit is given.
const DefaultMaxActive = 16

type (
	// Op is a unit of work run by a Throttler.
	Op func() error

	// Throttler runs at most maxActive operations concurrently.
	Throttler struct {
		mu        sync.Mutex
		maxActive int
		active    int
		peak      int
		completed int64
		queue     deque.Deque[*Pending]
	}

	// Pending is the handle of a submitted operation.
	Pending struct {
		op   Op
		done chan struct{}
		err  error
	}

	// Stats is a snapshot of a Throttler's counters.
	Stats struct {
		MaxActive int
		Active    int
		Queued    int
		Peak      int
		Completed int64
	}
)

// New creates a Throttler allowing maxActive concurrent operations.
func New(maxActive int) *Throttler {
	if maxActive <= 0 {
		maxActive = DefaultMaxActive
	}
	return &Throttler{maxActive: maxActive}
}

// Run submits op. It starts immediately when a slot is free and is queued
// otherwise. Run never blocks.
func (t *Throttler) Run(op Op) *Pending {
	p := &Pending{op: op, done: make(chan struct{})}

	t.mu.Lock()
	if t.active >= t.maxActive {
		t.queue.PushBack(p)
		t.mu.Unlock()
		return p
	}
	t.active++
	t.peak = max(t.peak, t.active)
	t.mu.Unlock()

	go t.drain(p)
	return p
}

// drain runs p and then keeps the slot busy with queued operations until
// the queue is empty.
func (t *Throttler) drain(p *Pending) {
	for p != nil {
		p.err = p.op()
		close(p.done)

		t.mu.Lock()
		t.completed++
		if t.queue.Len() > 0 {
			p = t.queue.PopFront()
		} else {
			t.active--
			p = nil
		}
		t.mu.Unlock()
	}
}

// Stats returns the current counters.
func (t *Throttler) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		MaxActive: t.maxActive,
		Active:    t.active,
		Queued:    t.queue.Len(),
		Peak:      t.peak,
		Completed: t.completed,
	}
}

// Done is closed once the operation has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the operation finished or ctx is done and returns the
// operation's error. A cancelled wait does not stop the operation.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
