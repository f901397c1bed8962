package engine

import "sync"

// State is the submit lifecycle for one edit session. The presentation layer
// reads it; only the engine moves it.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Tracker holds per-listing submit state. Begin is the in-process mutual
// exclusion point: a second submit for the same listing is refused while one
// is in flight.
type Tracker struct {
	mu   sync.Mutex
	m    map[int64]State
	prev map[int64]State
}

func NewTracker() *Tracker {
	return &Tracker{m: make(map[int64]State), prev: make(map[int64]State)}
}

func (t *Tracker) Begin(listingID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.m[listingID] == StateInProgress {
		return false
	}
	t.prev[listingID] = t.m[listingID]
	t.m[listingID] = StateInProgress
	return true
}

func (t *Tracker) Finish(listingID int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.m[listingID] = StateSucceeded
	} else {
		t.m[listingID] = StateFailed
	}
}

// Abort backs out of an in-flight submit that never ran, restoring the state
// observed at Begin. Used when another instance already holds the submit lock:
// that submit's outcome is not this session's failure.
func (t *Tracker) Abort(listingID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.m[listingID] = t.prev[listingID]
}

func (t *Tracker) State(listingID int64) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[listingID]
}
