// Package memory holds in-process adapters for runs without valkey.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/irrigo/fieldkit/internal/core/domain"
)

// maxSweepInterval caps how long expired drafts linger in the map.
const maxSweepInterval = 10 * time.Minute

// DraftStore keeps drafts in a map. Entries expire after ttl when ttl > 0.
type DraftStore struct {
	mu        sync.RWMutex
	drafts    map[string]entry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type entry struct {
	draft   domain.Draft
	expires time.Time
}

// NewDraftStore creates a new in-memory DraftStore.
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{drafts: make(map[string]entry), ttl: ttl, now: time.Now}
}

// Get returns a copy of the stored draft.
func (s *DraftStore) Get(_ context.Context, id string) (*domain.Draft, error) {
	s.mu.RLock()
	e, ok := s.drafts[id]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return nil, domain.ErrNotFound
	}
	d := clone(e.draft)
	return &d, nil
}

// Save stores a copy of d when the stored version still equals d.Version,
// then bumps d.Version and refreshes the expiry. A draft with Version 0 is
// new and must not exist yet.
func (s *DraftStore) Save(_ context.Context, d *domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.drafts[d.ID]
	live := ok && !s.expired(cur)
	switch {
	case live && cur.draft.Version != d.Version:
		return domain.ErrDraftConflict
	case !live && d.Version != 0:
		return domain.ErrNotFound
	}

	e := entry{draft: clone(*d)}
	e.draft.Version++
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.drafts[d.ID] = e
	d.Version = e.draft.Version

	s.sweep()
	return nil
}

// Delete removes a draft. Missing drafts are not an error.
func (s *DraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return nil
}

// Len reports how many drafts are held, expired ones included.
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

func (s *DraftStore) expired(e entry) bool {
	return !e.expires.IsZero() && s.now().After(e.expires)
}

// sweep drops expired entries, at most once per sweep interval. Caller
// holds mu.
func (s *DraftStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl
	if interval > maxSweepInterval {
		interval = maxSweepInterval
	}
	now := s.now()
	if now.Sub(s.lastSweep) < interval {
		return
	}
	s.lastSweep = now
	for id, e := range s.drafts {
		if now.After(e.expires) {
			delete(s.drafts, id)
		}
	}
}

func clone(d domain.Draft) domain.Draft {
	d.Points = d.Points.Clone()
	d.Parent = d.Parent.Clone()
	if d.History != nil {
		h := make([]domain.BoundaryRing, len(d.History))
		for i, r := range d.History {
			h[i] = r.Clone()
		}
		d.History = h
	}
	return d
}
