package proposal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long a proposal stays confirmable.
const DefaultTTL = time.Hour

// Proposal is a deferred, confirmable record of a requested confirm-risk
// capability invocation. Records live only in the store; callers receive
// copies and never retain references into it.
type Proposal struct {
	ID         string         `json:"id"`
	Capability string         `json:"capability"`
	Args       map[string]any `json:"args"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Store is the in-memory holding area for proposals awaiting confirmation.
// A single mutex guards the map; it is the only shared mutable state in the
// gateway core. Proposals do not survive process restarts.
type Store struct {
	mu  sync.Mutex
	m   map[string]Proposal
	ttl time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewStore creates a store with the given TTL. A zero ttl means DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		m:   make(map[string]Proposal),
		ttl: ttl,
		now: time.Now,
	}
}

// TTL returns the store's time-to-live.
func (s *Store) TTL() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttl
}

// Create stores a new proposal and returns its freshly generated id.
func (s *Store) Create(capability string, args map[string]any) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = Proposal{
		ID:         id,
		Capability: capability,
		Args:       args,
		CreatedAt:  s.now().UTC(),
	}
	return id
}

// Get returns a copy of the proposal with the given id.
func (s *Store) Get(id string) (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	return p, ok
}

// Remove atomically removes and returns the proposal with the given id.
// When two callers race on the same id, exactly one observes the proposal;
// the other observes absence.
func (s *Store) Remove(id string) (Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if ok {
		delete(s.m, id)
	}
	return p, ok
}

// SweepExpired removes every proposal older than maxAge and returns the
// count removed. A non-positive maxAge falls back to the store TTL.
func (s *Store) SweepExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxAge <= 0 {
		maxAge = s.ttl
	}
	now := s.now().UTC()

	removed := 0
	for id, p := range s.m {
		if now.Sub(p.CreatedAt) > maxAge {
			delete(s.m, id)
			removed++
		}
	}
	return removed
}

// List returns copies of all stored proposals, newest first.
func (s *Store) List() []Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Proposal, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}
	// Insertion order is not tracked; sort by creation time.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Len returns the number of pending proposals.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
