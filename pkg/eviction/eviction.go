// Package eviction implements the TTL sweep that removes ephemeral nodes
// from the working graph.
//
// Nodes streamed in lazily (non-seed nodes) accumulate as the user
// explores. The scheduler periodically sweeps them: a node that is not
// "active" - not selected, not a neighbor of the selection, not pinned -
// is armed with a deadline now+TTL. If it is still inactive when the
// deadline passes, it is evicted together with its edges and the caller
// is told to recompute visibility. A node that becomes active again
// before the deadline has its schedule cancelled.
//
// Schedule entries distinguish three states:
//   - absent: never considered
//   - nil deadline: tracked but cancelled
//   - non-nil deadline: counting down, MUST NOT be reset by re-arming
//
// The nil-vs-absent distinction matters: deleting a cancelled entry would
// make a later re-schedule look brand new, whereas an uncancelled pending
// countdown must survive re-insertion untouched.
//
// All schedule operations are idempotent: double-scheduling preserves the
// original deadline and double-cancelling is a no-op.
package eviction

import (
	"context"
	"sync"
	"time"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
)

// ActiveSetFunc returns the ids that must never be scheduled: the selected
// node, its current neighbors, and every pinned id.
type ActiveSetFunc func() map[graph.NodeID]bool

// EvictedFunc is notified after a sweep removed nodes, so the owner can
// trigger a fresh visibility pass.
type EvictedFunc func(removed []graph.NodeID)

// Config holds destruction scheduler tuning.
type Config struct {
	// Interval is the wall-clock sweep cadence, independent of rendering.
	Interval time.Duration
	// TTL is how long an inactive ephemeral node survives before
	// eviction.
	TTL time.Duration
}

// DefaultConfig returns the standard tuning: sweep every 30 seconds,
// evict after 2 minutes of inactivity.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		TTL:      2 * time.Minute,
	}
}

// Scheduler is the destruction scheduler. Create with New, start the
// background sweep with Start, and stop it with Stop. Sweep may also be
// driven manually (the tests do).
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	g        *graph.Graph
	activeFn ActiveSetFunc
	onEvict  EvictedFunc

	// schedule: non-seed node id -> eviction deadline. A nil deadline
	// means tracked-but-cancelled.
	schedule map[graph.NodeID]*time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over the working graph. activeFn supplies the
// per-sweep active id set; onEvict may be nil.
func New(cfg Config, g *graph.Graph, activeFn ActiveSetFunc, onEvict EvictedFunc) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		g:        g,
		activeFn: activeFn,
		onEvict:  onEvict,
		schedule: make(map[graph.NodeID]*time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the periodic sweep goroutine.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(time.Now())
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Sweep runs one pass at the given instant:
//  1. active non-seed nodes get any pending schedule cancelled,
//  2. inactive unscheduled nodes are armed with now+TTL,
//  3. nodes whose deadline has passed are evicted from the working graph
//     and the schedule, and the owner is notified.
func (s *Scheduler) Sweep(now time.Time) {
	active := map[graph.NodeID]bool{}
	if s.activeFn != nil {
		active = s.activeFn()
	}

	s.mu.Lock()

	for _, n := range s.g.Nodes() {
		if s.g.IsSeed(n.ID) {
			continue
		}
		if active[n.ID] {
			s.cancelLocked(n.ID)
			continue
		}
		s.scheduleLocked(n.ID, now)
	}

	// Drop tracking for nodes that left the graph by other means.
	for id := range s.schedule {
		if !s.g.HasNode(id) {
			delete(s.schedule, id)
		}
	}

	var expired []graph.NodeID
	for id, deadline := range s.schedule {
		if deadline != nil && !deadline.After(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(s.schedule, id)
	}

	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}
	for _, id := range expired {
		s.g.RemoveNode(id)
	}
	if s.onEvict != nil {
		s.onEvict(expired)
	}
}

// scheduleLocked arms a deadline unless one is already counting down.
// An entry present with a non-nil value is already armed and must not be
// reset; an absent or nil entry arms fresh.
func (s *Scheduler) scheduleLocked(id graph.NodeID, now time.Time) {
	if deadline, ok := s.schedule[id]; ok && deadline != nil {
		return // already counting down
	}
	deadline := now.Add(s.cfg.TTL)
	s.schedule[id] = &deadline
}

// cancelLocked clears a pending deadline, keeping the entry as a nil
// tombstone. Cancelling an already-nil or absent entry is a no-op.
func (s *Scheduler) cancelLocked(id graph.NodeID) {
	if deadline, ok := s.schedule[id]; ok && deadline != nil {
		s.schedule[id] = nil
	}
}

// Cancel clears any pending deadline for a node. Idempotent.
func (s *Scheduler) Cancel(id graph.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

// Deadline reports a node's schedule state: scheduled says whether the
// node is tracked at all, and deadline is non-nil only while counting
// down.
func (s *Scheduler) Deadline(id graph.NodeID) (deadline *time.Time, scheduled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.schedule[id]
	if !ok {
		return nil, false
	}
	if d == nil {
		return nil, true
	}
	copied := *d
	return &copied, true
}
