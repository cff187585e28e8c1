package quota

import (
	"sync"
	"time"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/pkg/metrics"
)

type guestEntry struct {
	limit    model.ChatLimit
	lastSeen time.Time
}

// GuestTracker holds guest chat limits in memory only.
type GuestTracker struct {
	mu      sync.Mutex
	entries map[string]*guestEntry
	limit   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewGuestTracker creates a tracker giving each guest limit sends per day.
// Entries untouched for idleTTL are dropped by Prune.
func NewGuestTracker(limit int, idleTTL time.Duration) *GuestTracker {
	return &GuestTracker{
		entries: make(map[string]*guestEntry),
		limit:   limit,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (g *GuestTracker) entry(guestID string) *guestEntry {
	now := g.now()
	e, ok := g.entries[guestID]
	if !ok {
		e = &guestEntry{limit: New(g.limit, now)}
		g.entries[guestID] = e
		metrics.GuestQuotasActive.Set(float64(len(g.entries)))
	}
	e.lastSeen = now
	Refresh(&e.limit, now)
	return e
}

// Peek returns the guest's current limit after a day rollover check.
func (g *GuestTracker) Peek(guestID string) model.ChatLimit {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.entry(guestID).limit
}

// Consume spends one send for the guest.
func (g *GuestTracker) Consume(guestID string) (model.ChatLimit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entry(guestID)
	if err := Consume(&e.limit); err != nil {
		return e.limit, err
	}
	return e.limit, nil
}

// Refund gives one send back to the guest.
func (g *GuestTracker) Refund(guestID string) model.ChatLimit {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := g.entry(guestID)
	Refund(&e.limit)
	return e.limit
}

// Prune drops idle guests and returns how many were removed.
func (g *GuestTracker) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.idleTTL)
	removed := 0
	for id, e := range g.entries {
		if e.lastSeen.Before(cutoff) {
			delete(g.entries, id)
			removed++
		}
	}
	metrics.GuestQuotasActive.Set(float64(len(g.entries)))
	return removed
}

// Len returns the number of tracked guests.
func (g *GuestTracker) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
