package framework

import (
	"context"
	"sync"
)

// Signal is a single-slot, latest-wins mailbox.
// A new value replaces one that has not been taken yet. Waiters are woken
// through Ready, which may deliver spurious wake-ups: always TryTake after it.
type Signal[T any] struct {
	lock   sync.Mutex
	value  T
	set    bool
	notify chan struct{}
	once   sync.Once
}

func (s *Signal[T]) ch() chan struct{} {
	s.once.Do(func() {
		s.notify = make(chan struct{}, 1)
	})
	return s.notify
}

// Signal stores v, replacing any pending value.
func (s *Signal[T]) Signal(v T) {
	s.lock.Lock()
	s.value, s.set = v, true
	s.lock.Unlock()
	select {
	case s.ch() <- struct{}{}:
	default:
	}
}

// Signaled reports whether a value is pending without taking it.
func (s *Signal[T]) Signaled() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.set
}

// TryTake takes the pending value if there is one.
func (s *Signal[T]) TryTake() (v T, ok bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.set {
		return
	}
	v, ok = s.value, true
	var zero T
	s.value, s.set = zero, false
	return
}

// Ready is readable after a Signal call. It is meant for select races.
func (s *Signal[T]) Ready() <-chan struct{} {
	return s.ch()
}

// Wait blocks until a value is pending and takes it.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	for {
		if v, ok := s.TryTake(); ok {
			return v, nil
		}
		select {
		case <-s.ch():
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Reset drops a pending value.
func (s *Signal[T]) Reset() {
	s.TryTake()
}
