package bot

import "sync"

// prompt says what the next free-text message from a user means.
type prompt int

const (
	promptNone prompt = iota
	promptLockinAmount
	promptAutobuyAmount
)

// router keeps the single pending prompt per user plus a per-user lock.
// Arming replaces any unconsumed prompt silently; consuming clears the
// slot before the handler runs, so a handler failure never re-arms it.
type router struct {
	mu    sync.Mutex
	slots map[int64]prompt
	locks map[int64]*sync.Mutex
}

func newRouter() *router {
	return &router{
		slots: make(map[int64]prompt),
		locks: make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing all event handling for one user.
// Events for different users proceed concurrently.
func (r *router) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

func (r *router) arm(userID int64, p prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[userID] = p
}

// consume returns the pending prompt and clears it in the same step.
func (r *router) consume(userID int64) prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.slots[userID]
	if !ok {
		return promptNone
	}
	delete(r.slots, userID)
	return p
}

// pending reports the armed prompt without consuming it.
func (r *router) pending(userID int64) prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[userID]
}
