// Package timer schedules per-pane dismissal deadlines and reports them as
// events on a channel, so they are handled on the session loop.
package timer

import (
	"sync"
	"time"
)

// Event is sent when a timer fires.
type Event struct {
	ID  int
	Key string
}

// Service manages one-shot timers with full lifecycle ownership.
// It owns ID generation, scheduling and cancellation. IDs are never reused, so
// an event for a timer that was replaced can be told apart from a live one.
type Service struct {
	events chan<- Event
	timers map[int]*entry
	nextID int
	mu     sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	key    string
	cancel func() bool // time.Timer.Stop
}

// NewService creates a timer service that sends fired timer events.
func NewService(events chan<- Event) *Service {
	return &Service{
		events: events,
		timers: make(map[int]*entry),
		stop:   make(chan struct{}),
	}
}

// After schedules a one-shot timer for key. Returns the timer ID.
func (s *Service) After(d time.Duration, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule(d, key)
}

// Rearm cancels old, if still pending, and schedules a new timer for key in a
// single step. Returns the new timer ID.
func (s *Service) Rearm(old int, d time.Duration, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel(old)
	return s.schedule(d, key)
}

func (s *Service) schedule(d time.Duration, key string) int {
	s.nextID++
	id := s.nextID

	t := time.AfterFunc(d, func() {
		s.fire(id)
	})
	s.timers[id] = &entry{key: key, cancel: t.Stop}
	return id
}

// fire sends the timer event. Firing is terminal: the entry is gone before the
// event is sent, so a later Cancel does nothing. A full channel delays the
// event rather than losing it; only Stop abandons it.
func (s *Service) fire(id int) {
	s.mu.Lock()
	e, ok := s.timers[id]
	if !ok {
		s.mu.Unlock()
		return // Cancelled before firing
	}
	delete(s.timers, id)
	s.mu.Unlock()

	select {
	case s.events <- Event{ID: id, Key: e.key}:
	case <-s.stop:
	}
}

// Stop cancels every pending timer and releases fires still waiting for the
// receiver. Use it once the receiver no longer reads events.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.CancelAll()
}

// Cancel stops a timer. It reports whether the timer was still pending.
func (s *Service) Cancel(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel(id)
}

func (s *Service) cancel(id int) bool {
	e, ok := s.timers[id]
	if !ok {
		return false
	}
	e.cancel()
	delete(s.timers, id)
	return true
}

// CancelAll stops all timers and returns how many were pending.
func (s *Service) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.timers)
	for _, e := range s.timers {
		e.cancel()
	}
	s.timers = make(map[int]*entry)
	return n
}

// Pending returns the number of timers that have neither fired nor been cancelled.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// PendingFor returns the number of pending timers scheduled for key.
func (s *Service) PendingFor(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.timers {
		if e.key == key {
			n++
		}
	}
	return n
}
