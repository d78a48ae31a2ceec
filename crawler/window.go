package crawler

import (
	"github.com/google/uuid"

	"github.com/odit-bit/expertfinder/socialgraph"
)

// WindowSize is the number of users a discovered resource can be attributed to.
const WindowSize = 3

// window holds the most recently visited users that are not completed yet,
// most recent first.
type window struct {
	users []*socialgraph.User
}

func newWindow() *window {
	return &window{users: make([]*socialgraph.User, 0, WindowSize)}
}

// pushFront makes u the most recent user. Callers evict before the window
// overflows.
func (w *window) pushFront(u *socialgraph.User) {
	if w.full() {
		panic("crawler: push on a full window")
	}
	w.users = append(w.users, nil)
	copy(w.users[1:], w.users)
	w.users[0] = u
}

func (w *window) full() bool {
	return len(w.users) == WindowSize
}

func (w *window) len() int {
	return len(w.users)
}

// at returns the user visited i steps ago.
func (w *window) at(i int) *socialgraph.User {
	return w.users[i]
}

// popFront removes the most recent user.
func (w *window) popFront() *socialgraph.User {
	u := w.users[0]
	copy(w.users, w.users[1:])
	w.users[len(w.users)-1] = nil
	w.users = w.users[:len(w.users)-1]
	return u
}

// evictOldest removes and returns the least recent user.
func (w *window) evictOldest() *socialgraph.User {
	last := len(w.users) - 1
	u := w.users[last]
	w.users[last] = nil
	w.users = w.users[:last]
	return u
}

func (w *window) ids() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(w.users))
	for _, u := range w.users {
		ids = append(ids, u.ID)
	}
	return ids
}
