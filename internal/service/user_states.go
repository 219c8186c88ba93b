package service

import "sync"

// UserStates hands out one mutex per user. Anchor index updates for a user
// are serialized through it.
type UserStates struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewUserStates creates an empty lock table
func NewUserStates() *UserStates {
	return &UserStates{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the user's mutex is held and returns its unlock func
func (u *UserStates) Lock(userID string) func() {
	u.mu.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mu.Unlock()

	l.Lock()
	return l.Unlock
}
