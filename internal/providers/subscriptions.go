package providers

import (
	"sync"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

type subscription struct {
	types map[constants.ActivityType]bool
	cb    UpdateCallback
}

// updateHub fans pushed samples out to registered callbacks.
// Each publish invokes a callback at most once.
type updateHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func newUpdateHub() *updateHub {
	return &updateHub{subs: make(map[int]subscription)}
}

func (h *updateHub) subscribe(types []constants.ActivityType, cb UpdateCallback) func() {
	set := make(map[constants.ActivityType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = subscription{types: set, cb: cb}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// publish delivers the matching subset of samples to each subscriber and
// returns how many callbacks were invoked.
func (h *updateHub) publish(samples []Sample) int {
	h.mu.Lock()
	subs := make([]subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		var matched []Sample
		for _, s := range samples {
			if sub.types[s.Type] {
				matched = append(matched, s)
			}
		}
		if len(matched) == 0 {
			continue
		}
		sub.cb(matched)
		delivered++
	}
	return delivered
}
