package lifecycle

import (
	"sync"
	"time"
)

// timerKey identifies one armed timer: an entity id plus a phase name
// ("fade-label", "fade-shape", "reveal", ...). Keying by both means every
// component that arms a timer can also cancel exactly that timer, so no
// orphaned callback ever mutates a since-replaced scene.
type timerKey struct {
	id    string
	phase string
}

// TimerScheduler owns cancelable one-shot timers keyed by (entity id,
// phase). All operations are idempotent: cancelling an absent or
// already-fired timer is a no-op, and re-arming a key replaces the
// previous timer.
//
// Example:
//
//	ts := lifecycle.NewTimerScheduler()
//	defer ts.Stop()
//
//	ts.After("node-42", "fade-label", 300*time.Millisecond, fadeLabel)
//	ts.Cancel("node-42", "fade-label") // node became visible again
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[timerKey]*time.Timer
	stopped bool
}

// NewTimerScheduler creates an empty scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[timerKey]*time.Timer)}
}

// After arms a one-shot timer for (id, phase). An existing timer under the
// same key is cancelled first. The callback runs on the timer goroutine
// and the key is released before fn is invoked, so fn may re-arm the same
// key.
func (ts *TimerScheduler) After(id, phase string, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.stopped {
		return
	}

	key := timerKey{id: id, phase: phase}
	if existing, ok := ts.timers[key]; ok {
		existing.Stop()
	}

	var tm *time.Timer
	tm = time.AfterFunc(d, func() {
		ts.mu.Lock()
		// A cancel or re-arm that raced the firing wins: only run if
		// this exact timer is still the registered one.
		live := ts.timers[key] == tm && !ts.stopped
		if live {
			delete(ts.timers, key)
		}
		ts.mu.Unlock()

		if live {
			fn()
		}
	})
	ts.timers[key] = tm
}

// Cancel disarms the timer for (id, phase). Idempotent.
func (ts *TimerScheduler) Cancel(id, phase string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	key := timerKey{id: id, phase: phase}
	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

// CancelPhase disarms every timer carrying the given phase, regardless of
// entity. Used when a whole highlight or reveal sequence is invalidated.
func (ts *TimerScheduler) CancelPhase(phase string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for key, t := range ts.timers {
		if key.phase == phase {
			t.Stop()
			delete(ts.timers, key)
		}
	}
}

// CancelAll disarms every pending timer.
func (ts *TimerScheduler) CancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}

// Pending returns the number of armed timers.
func (ts *TimerScheduler) Pending() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.timers)
}

// Stop cancels everything and refuses further arming.
func (ts *TimerScheduler) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.stopped = true
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}
