// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// batcher coalesces keys added within a quiet period into one flush.
// Flushes never overlap; keys added during a flush are delivered by the
// next one.
type batcher struct {
	debounce time.Duration
	flush    func([]string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	running bool
	stopped bool
}

func newBatcher(debounce time.Duration, flush func([]string)) *batcher {
	return &batcher{
		debounce: debounce,
		flush:    flush,
		pending:  make(map[string]struct{}),
	}
}

// add records key and restarts the quiet period.
func (b *batcher) add(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending[key] = struct{}{}
	b.scheduleLocked()
}

func (b *batcher) scheduleLocked() {
	if b.timer == nil {
		b.timer = time.AfterFunc(b.debounce, b.fire)
		return
	}
	b.timer.Reset(b.debounce)
}

func (b *batcher) fire() {
	b.mu.Lock()
	if b.stopped || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	if b.running {
		// Retry after the current flush rather than dropping the keys.
		b.scheduleLocked()
		b.mu.Unlock()
		return
	}
	b.running = true
	keys := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	b.mu.Unlock()

	b.flush(keys)

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
}

// stop cancels the timer. Pending keys are dropped.
func (b *batcher) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
}
