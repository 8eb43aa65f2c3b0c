package assistant

import (
	"fmt"
	"sync"
	"time"
)

// TimerEngine runs countdown timers set by voice. Firing reports through the
// onFire callback; there is no persistence, timers die with the process.
type TimerEngine struct {
	onFire func(label string)

	mu     sync.Mutex
	nextID int
	active map[int]*time.Timer
}

// NewTimerEngine creates an engine reporting fired timers to onFire.
func NewTimerEngine(onFire func(label string)) *TimerEngine {
	return &TimerEngine{
		onFire: onFire,
		active: map[int]*time.Timer{},
	}
}

// Set starts a timer and returns its id.
func (e *TimerEngine) Set(d time.Duration, label string) (int, error) {
	if d <= 0 {
		return 0, fmt.Errorf("timer duration must be positive, got %v", d)
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.active[id] = time.AfterFunc(d, func() {
		e.mu.Lock()
		delete(e.active, id)
		e.mu.Unlock()
		if e.onFire != nil {
			e.onFire(label)
		}
	})
	e.mu.Unlock()
	return id, nil
}

// Cancel stops a pending timer. Cancelling an unknown or fired id is a no-op.
func (e *TimerEngine) Cancel(id int) {
	e.mu.Lock()
	timer, ok := e.active[id]
	delete(e.active, id)
	e.mu.Unlock()
	if ok {
		timer.Stop()
	}
}

// Pending returns the number of timers that have not yet fired.
func (e *TimerEngine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Shutdown cancels every pending timer.
func (e *TimerEngine) Shutdown() {
	e.mu.Lock()
	for id, timer := range e.active {
		timer.Stop()
		delete(e.active, id)
	}
	e.mu.Unlock()
}
