package session

import (
	"sync"
	"time"

	"github.com/mikekulinski/zkmirror/pkg/watch"
)

// Session is the server side of one subscription. Events are queued in the
// exact order the server generated them and drained in batches by the
// client's poll loop. The queue is unbounded on purpose: the ordering
// contract forbids dropping or reordering events, so a slow client costs
// memory rather than correctness.
type Session struct {
	// Root is the remote path this subscription is rooted at.
	Root string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []watch.Event
	closed bool
}

func NewSession(root string) *Session {
	s := &Session{Root: root}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push appends events to the queue, waking any blocked Next call. Pushes
// after Close are discarded.
func (s *Session) Push(events ...watch.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, events...)
	s.cond.Broadcast()
}

// Next blocks until at least one event is queued, then returns up to max of
// them. If nothing arrives within wait it returns an empty batch so the
// caller can poll again. closed is true once the session has been closed and
// the queue fully drained.
func (s *Session) Next(max int, wait time.Duration) (events []watch.Event, closed bool) {
	deadline := time.Now().Add(wait)
	// Cond has no native timeout, so a timer wakes the waiters instead.
	timer := time.AfterFunc(wait, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed && time.Now().Before(deadline) {
		s.cond.Wait()
	}

	if len(s.queue) == 0 {
		return nil, s.closed
	}
	n := min(max, len(s.queue))
	batch := s.queue[:n:n]
	s.queue = s.queue[n:]
	return batch, false
}

// Close wakes all pollers. Events already queued are still delivered before
// the session reports closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
