package crawler

import (
	"context"
	"sync"
)

// pauseGate is the latched-flag half of a crawl job's two control
// primitives. It starts released; Pause acquires it and Resume releases
// it. Workers block in Wait until released.
type pauseGate struct {
	mu       sync.Mutex
	paused   bool
	released chan struct{}
}

func newPauseGate() *pauseGate {
	ch := make(chan struct{})
	close(ch)
	return &pauseGate{released: ch}
}

// Pause acquires the gate. Idempotent.
func (g *pauseGate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return
	}
	g.paused = true
	g.released = make(chan struct{})
}

// Resume releases the gate. Idempotent.
func (g *pauseGate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return
	}
	g.paused = false
	close(g.released)
}

// Wait blocks until the gate is released or ctx is done.
func (g *pauseGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.released
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *pauseGate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// stopLatch is the binary semaphore / reset-event half: a one-shot signal
// that, once set, stays set for the life of the Job.
type stopLatch struct {
	once sync.Once
	ch   chan struct{}
}

func newStopLatch() *stopLatch {
	return &stopLatch{ch: make(chan struct{})}
}

// Set raises the latch. Idempotent and safe to call from any goroutine.
func (s *stopLatch) Set() {
	s.once.Do(func() { close(s.ch) })
}

func (s *stopLatch) Stopped() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

func (s *stopLatch) Done() <-chan struct{} {
	return s.ch
}
