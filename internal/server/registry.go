package server

import (
	"errors"
	"sync"
)

// ErrServerFull is returned when the table is at capacity.
var ErrServerFull = errors.New("maximum number of clients reached")

// registry tracks active sessions under a single lock. The accept path and
// the session deregistration callbacks both mutate it, so every capacity
// check happens inside the same critical section that reserves the slot.
type registry struct {
	mu       sync.Mutex
	sessions map[int]*Session
	nextID   int
	capacity int
}

func newRegistry(capacity int) *registry {
	return &registry{
		sessions: make(map[int]*Session),
		nextID:   1,
		capacity: capacity,
	}
}

// reserve claims a slot and allocates the next client identifier. The slot
// holds a nil placeholder until put installs the session, so a concurrent
// accept cannot oversubscribe the table while the upgrade is in flight.
func (r *registry) reserve() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) >= r.capacity {
		return 0, ErrServerFull
	}
	id := r.nextID
	r.nextID++
	r.sessions[id] = nil
	return id, nil
}

// put installs the session for a previously reserved identifier.
func (r *registry) put(id int, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

// remove drops a session from the registry. Safe to call more than once.
func (r *registry) remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// count returns the number of held slots, reservations included.
func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// drain empties the registry and returns the sessions that were active.
func (r *registry) drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	r.sessions = make(map[int]*Session)
	return sessions
}
