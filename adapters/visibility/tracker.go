package visibility

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxClients = 10000
	DefaultClientTTL  = 30 * time.Minute
)

type State string

const (
	Visible State = "visible"
	Hidden  State = "hidden"
)

func ParseState(s string) (State, error) {
	switch State(s) {
	case Visible, Hidden:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown visibility state %q", s)
}

// Tracker remembers the last reported visibility of each client and fires
// subscribers when any client goes from hidden to visible. Clients that were
// never seen, or were evicted, count as visible. At most maxClients are kept
// and each expires ttl after its last report.
type Tracker struct {
	mu      sync.Mutex
	clients *expirable.LRU[string, State]
	subs    map[int]func()
	nextID  int
}

func NewTracker() *Tracker {
	return NewTrackerWithLimits(DefaultMaxClients, DefaultClientTTL)
}

func NewTrackerWithLimits(maxClients int, ttl time.Duration) *Tracker {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Tracker{
		clients: expirable.NewLRU[string, State](maxClients, nil, ttl),
		subs:    make(map[int]func()),
	}
}

// Report records state for clientID and reports whether it was a
// visibility regain.
func (t *Tracker) Report(clientID string, state State) bool {
	t.mu.Lock()
	prev, seen := t.clients.Get(clientID)
	if !seen {
		prev = Visible
	}
	t.clients.Add(clientID, state)
	regained := prev == Hidden && state == Visible

	var fns []func()
	if regained {
		fns = make([]func(), 0, len(t.subs))
		for _, fn := range t.subs {
			fns = append(fns, fn)
		}
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return regained
}

// Forget drops a client, e.g. when its page is closed.
func (t *Tracker) Forget(clientID string) {
	t.mu.Lock()
	t.clients.Remove(clientID)
	t.mu.Unlock()
}

// Len reports how many clients are currently tracked.
func (t *Tracker) Len() int {
	return t.clients.Len()
}

func (t *Tracker) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}
