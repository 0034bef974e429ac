// SPDX-License-Identifier: MPL-2.0

package throttle

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestThrottler_NeverExceedsMaxActive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		maxActive int
		ops       int
	}{
		{"serial", 1, 20},
		{"pair", 2, 50},
		{"wide", 8, 200},
		{"more slots than work", 32, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			th := New(tt.maxActive)
			var running, observed atomic.Int64
			release := make(chan struct{})

			pending := make([]*Pending, 0, tt.ops)
			for range tt.ops {
				pending = append(pending, th.Run(func() error {
					n := running.Add(1)
					for {
						old := observed.Load()
						if n <= old || observed.CompareAndSwap(old, n) {
							break
						}
					}
					<-release
					running.Add(-1)
					return nil
				}))
			}

			// Everything was submitted before any operation could complete.
			stats := th.Stats()
			if stats.Active+stats.Queued != tt.ops {
				t.Errorf("Stats() = %+v, want %d operations active or queued", stats, tt.ops)
			}
			close(release)

			ctx := context.Background()
			for _, p := range pending {
				if err := p.Wait(ctx); err != nil {
					t.Fatalf("Wait() error = %v", err)
				}
			}

			want := int64(min(tt.maxActive, tt.ops))
			if observed.Load() > int64(tt.maxActive) {
				t.Errorf("observed %d concurrent operations, limit %d", observed.Load(), tt.maxActive)
			}
			final := th.Stats()
			if int64(final.Peak) != want {
				t.Errorf("Peak = %d, want %d", final.Peak, want)
			}
			if final.Completed != int64(tt.ops) {
				t.Errorf("Completed = %d, want %d", final.Completed, tt.ops)
			}
			waitIdle(t, th)
		})
	}
}

func TestThrottler_FIFO(t *testing.T) {
	t.Parallel()

	th := New(1)
	gate := make(chan struct{})
	var (
		mu    sync.Mutex
		order []int
	)

	first := th.Run(func() error {
		<-gate
		return nil
	})
	pending := []*Pending{first}
	for i := range 10 {
		pending = append(pending, th.Run(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	close(gate)

	for _, p := range pending {
		<-p.Done()
	}
	if want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}; !slices.Equal(order, want) {
		t.Errorf("queued operations ran in order %v, want %v", order, want)
	}
}

func TestThrottler_Errors(t *testing.T) {
	t.Parallel()

	th := New(0)
	if th.Stats().MaxActive != DefaultMaxActive {
		t.Errorf("MaxActive = %d, want default %d", th.Stats().MaxActive, DefaultMaxActive)
	}

	errBoom := errors.New("boom")
	if err := th.Run(func() error { return errBoom }).Wait(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("Wait() error = %v, want errBoom", err)
	}

	block := make(chan struct{})
	defer close(block)
	p := th.Run(func() error {
		<-block
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() on cancelled context = %v, want context.Canceled", err)
	}
}

// waitIdle waits for the draining goroutine to release its slot after the
// last operation reported done.
func waitIdle(t *testing.T, th *Throttler) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for th.Stats().Active != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("throttler still active: %+v", th.Stats())
		}
		time.Sleep(time.Millisecond)
	}
}
