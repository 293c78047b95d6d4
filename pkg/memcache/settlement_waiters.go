// pkg/memcache/settlement_waiters.go
package memcache

import (
	"sync"
)

// SettlementWaiters lets a synchronous purchase call wait for the async
// settlement of a transaction code. The settlement processor notifies; the
// waiting request either receives the final status or gives up on its own
// deadline. Purely an in-process convenience, the engine itself is
// callback-driven.
type SettlementWaiters struct {
	mu      sync.Mutex
	waiters map[string]chan string
}

func NewSettlementWaiters() *SettlementWaiters {
	return &SettlementWaiters{
		waiters: make(map[string]chan string),
	}
}

// Register creates a one-shot channel for the code. Callers must Release it.
func (s *SettlementWaiters) Register(code string) <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan string, 1)
	s.waiters[code] = ch
	return ch
}

// Notify delivers the final status to a registered waiter, if any. Buffered
// send so a waiter that already timed out never blocks the settlement path.
func (s *SettlementWaiters) Notify(code string, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.waiters[code]
	if !ok {
		return
	}
	select {
	case ch <- status:
	default:
	}
}

func (s *SettlementWaiters) Release(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiters, code)
}
