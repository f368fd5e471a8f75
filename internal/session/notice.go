package session

import (
	"sync"
	"time"
)

// NoticeTTL is how long a notice stays up before it dismisses itself.
const NoticeTTL = 5 * time.Second

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient banner shown after a mutation.
type Notice struct {
	ID      int       `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notices keeps the visible notices and their dismissal timers.
type Notices struct {
	mu     sync.Mutex
	ttl    time.Duration
	items  []Notice
	timers map[int]*time.Timer
	next   int
	closed bool
}

func NewNotices(ttl time.Duration) *Notices {
	if ttl <= 0 {
		ttl = NoticeTTL
	}
	return &Notices{ttl: ttl, timers: make(map[int]*time.Timer)}
}

// Post shows a notice and schedules its dismissal. Posting to closed
// notices is a no-op.
func (n *Notices) Post(level Level, message string) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	notice := Notice{ID: n.next, Level: level, Message: message, At: time.Now()}
	if n.closed {
		return notice
	}
	n.items = append(n.items, notice)
	id := notice.ID
	n.timers[id] = time.AfterFunc(n.ttl, func() { n.Dismiss(id) })
	return notice
}

// Dismiss hides a notice ahead of its timer.
func (n *Notices) Dismiss(id int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the visible notices, oldest first.
func (n *Notices) List() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.items...)
}

// Close stops every pending timer and drops the visible notices.
func (n *Notices) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
	n.items = nil
	n.closed = true
}
