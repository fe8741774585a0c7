package refiner

import "sync"

// Tracker holds the refinement state of one draft: which request is the
// latest, whether it is still running, the suggestion on display and the last
// suggestion the visitor adopted.
type Tracker struct {
	mu         sync.Mutex
	generation uint64
	inFlight   bool
	suggestion string
	adopted    string
}

// Begin starts a new request and returns its token. Any earlier request
// becomes stale and the displayed suggestion is withdrawn.
func (t *Tracker) Begin() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.inFlight = true
	t.suggestion = ""
	return t.generation
}

// Finish records the result of the request identified by token. It returns
// false when a newer request has started since, in which case the result
// must be discarded.
func (t *Tracker) Finish(token uint64, res Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token != t.generation {
		return false
	}
	t.inFlight = false
	if res.Outcome == OutcomeSuggested {
		t.suggestion = res.Suggestion
	}
	return true
}

// Abandon ends the request identified by token without showing anything.
func (t *Tracker) Abandon(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if token == t.generation {
		t.inFlight = false
	}
}

func (t *Tracker) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}

func (t *Tracker) Suggestion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suggestion
}

func (t *Tracker) ClearSuggestion() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suggestion = ""
}

// Adopt consumes the displayed suggestion and remembers it as adopted.
func (t *Tracker) Adopt() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.suggestion == "" {
		return "", false
	}
	t.adopted = t.suggestion
	t.suggestion = ""
	return t.adopted, true
}

// Adopted is the last suggestion the visitor took.
func (t *Tracker) Adopted() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.adopted
}

// Reset forgets everything and invalidates any running request.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.inFlight = false
	t.suggestion = ""
	t.adopted = ""
}
