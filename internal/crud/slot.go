package crud

import (
	"context"
	"sync"
)

// slot serialises the calls of one operation: starting a call cancels the
// call in flight, and only the call holding the current generation may
// apply its result.
type slot struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// begin cancels the in-flight call, if any, and returns the context and
// generation of the new one.
func (s *slot) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

// settle runs fn while holding the slot if gen is still current and
// reports whether it did. The context of the current call is released.
func (s *slot) settle(gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	fn()
	return true
}
