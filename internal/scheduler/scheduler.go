// Package scheduler bounds how many alert presentations may run
// concurrently. It hands out time-limited slots, staggers grants that
// arrive in a burst, and reclaims slots on expiry or release.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	drepo "DipWatch/internal/domain/repository"
	applogger "DipWatch/pkg/logger"

	"github.com/google/uuid"
)

// ErrClosed is returned by Request after Close.
var ErrClosed = errors.New("scheduler: closed")

// Slot is one admitted concurrent presentation.
type Slot struct {
	ID            string    `json:"slotId"`
	GrantedAt     time.Time `json:"grantedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	SequenceIndex int       `json:"sequenceIndex"`
}

// Config holds the scheduler tunables.
type Config struct {
	Capacity   int           // max simultaneously live slots
	Stagger    time.Duration // grant offset per burst position
	DefaultTTL time.Duration // slot lifetime when the caller passes none
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = 5
	}
	if c.Stagger <= 0 {
		c.Stagger = 32 * time.Millisecond
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Second
	}
	return c
}

// Scheduler owns the live slot set. At capacity it evicts the oldest
// live slot to admit the newcomer; requests are never parked
// indefinitely or dropped unresolved.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	log     *applogger.Logger
	metrics drepo.Metrics

	slots  []*Slot // ordered by grant time, oldest first
	timers map[string]*time.Timer

	lastGrant time.Time
	burstPos  int

	sweep  *time.Ticker
	done   chan struct{}
	closed bool
}

func New(cfg Config, log *applogger.Logger, metrics drepo.Metrics) *Scheduler {
	cfg = cfg.withDefaults()
	s := &Scheduler{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		timers:  make(map[string]*time.Timer),
		sweep:   time.NewTicker(cfg.DefaultTTL / 2),
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Request admits one presentation, waiting out the stagger offset for
// burst requests. ttl <= 0 selects the configured default. The only
// failure modes are a cancelled context and a closed scheduler.
func (s *Scheduler) Request(ctx context.Context, ttl time.Duration) (*Slot, error) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	wait, seq := s.reserveGrant()
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	s.evictExpiredLocked(time.Now())
	for len(s.slots) >= s.cfg.Capacity {
		// at capacity: the oldest live slot yields to the newcomer
		s.removeLocked(s.slots[0].ID)
	}

	now := time.Now()
	slot := &Slot{
		ID:            uuid.NewString(),
		GrantedAt:     now,
		ExpiresAt:     now.Add(ttl),
		SequenceIndex: seq,
	}
	s.slots = append(s.slots, slot)
	s.timers[slot.ID] = time.AfterFunc(ttl, func() { s.Release(slot.ID) })
	s.metrics.RecordSlots(len(s.slots))

	s.log.Debug("slot granted",
		applogger.String("slot_id", slot.ID),
		applogger.Int("sequence", seq),
		applogger.Int("active", len(s.slots)),
	)
	return slot, nil
}

// reserveGrant assigns this request its position within the current
// burst and the stagger wait that position implies.
func (s *Scheduler) reserveGrant() (time.Duration, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Sub(s.lastGrant) < s.cfg.Stagger {
		s.burstPos++
	} else {
		s.burstPos = 0
	}
	s.lastGrant = now
	return time.Duration(s.burstPos) * s.cfg.Stagger, s.burstPos
}

// Release frees a slot. Releasing an unknown or already-released id is
// a no-op.
func (s *Scheduler) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.removeLocked(id)
	s.metrics.RecordSlots(len(s.slots))
}

func (s *Scheduler) removeLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, slot := range s.slots {
		if slot.ID == id {
			s.slots = append(s.slots[:i], s.slots[i+1:]...)
			return
		}
	}
}

func (s *Scheduler) evictExpiredLocked(now time.Time) {
	kept := s.slots[:0]
	for _, slot := range s.slots {
		if slot.ExpiresAt.After(now) {
			kept = append(kept, slot)
			continue
		}
		if t, ok := s.timers[slot.ID]; ok {
			t.Stop()
			delete(s.timers, slot.ID)
		}
	}
	s.slots = kept
}

func (s *Scheduler) sweepLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.sweep.C:
			s.mu.Lock()
			if !s.closed {
				s.evictExpiredLocked(time.Now())
				s.metrics.RecordSlots(len(s.slots))
			}
			s.mu.Unlock()
		}
	}
}

// ActiveCount returns the number of live slots.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// ActiveSlots returns a copy of the live slots, oldest first.
func (s *Scheduler) ActiveSlots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, *slot)
	}
	return out
}

// Close stops the sweeper and cancels every pending expiry timer. No
// slot state mutates afterwards.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sweep.Stop()
	close(s.done)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
