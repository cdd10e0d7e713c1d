package sim

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Scheduler owns simulated time and the pending events. It is strictly single-threaded.
type Scheduler struct {
	now      SimTime
	queue    eventQueue
	seq      uint64
	executed int64
}

// NewScheduler creates a scheduler at time zero with nothing pending.
func NewScheduler() *Scheduler {
	s := &Scheduler{queue: make(eventQueue, 0)}
	heap.Init(&s.queue)
	return s
}

// Now returns the current simulated time.
func (s *Scheduler) Now() SimTime {
	return s.now
}

// Pending returns the number of events not yet executed.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Executed returns the number of events popped so far.
func (s *Scheduler) Executed() int64 {
	return s.executed
}

// Schedule enqueues a wake-up for car at when. Scheduling in the past is a caller bug
// and is rejected with ErrOrderingViolation; when == Now() is allowed.
func (s *Scheduler) Schedule(car CarID, when SimTime) error {
	if math.IsNaN(float64(when)) || math.IsInf(float64(when), 0) {
		return fmt.Errorf("%w: event time %v for car %d", ErrInputValidation, when, car)
	}
	if when < s.now {
		return fmt.Errorf("%w: car %d scheduled at %.6f before now %.6f", ErrOrderingViolation, car, when, s.now)
	}
	heap.Push(&s.queue, Event{When: when, Car: car, seq: s.seq})
	s.seq++
	return nil
}

// Peek returns the next event without removing it.
func (s *Scheduler) Peek() (Event, bool) {
	if len(s.queue) == 0 {
		return Event{}, false
	}
	return s.queue[0], true
}

// Step pops the earliest event, advances the clock to its time and runs h on it.
// It returns false when nothing was pending. A handler error aborts only this event
// and is returned wrapped with the event's car and time.
func (s *Scheduler) Step(h Handler) (bool, error) {
	if len(s.queue) == 0 {
		return false, nil
	}
	ev := heap.Pop(&s.queue).(Event)
	s.now = ev.When
	s.executed++
	logrus.Debugf("[t=%010.3f] car %d wakes", float64(s.now), ev.Car)
	if err := h.Handle(ev); err != nil {
		return true, fmt.Errorf("event for car %d at t=%.3f: %w", ev.Car, float64(ev.When), err)
	}
	return true, nil
}

// Run steps while events are pending and Now() < until. It stops at the first
// handler error; callers that want to keep going after an error use Step directly.
func (s *Scheduler) Run(until SimTime, h Handler) error {
	for s.now < until {
		more, err := s.Step(h)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return nil
}
