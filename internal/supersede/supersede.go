// Package supersede runs at most one unit of work per key: starting new work
// for a key cancels whatever was still running under it.
package supersede

import (
	"context"
	"sync"
)

type slot struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

type Group struct {
	mu    sync.Mutex
	gen   uint64
	slots map[string]*slot
}

// Start cancels the previous work for key, waits for it to release, and
// returns a context for the new work. done must be called when the work ends.
func (g *Group) Start(parent context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s := &slot{cancel: cancel, done: make(chan struct{})}

	g.mu.Lock()
	if g.slots == nil {
		g.slots = make(map[string]*slot)
	}
	prev := g.slots[key]
	g.gen++
	s.gen = g.gen
	g.slots[key] = s
	g.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			cancel()
			g.mu.Lock()
			if cur, ok := g.slots[key]; ok && cur.gen == s.gen {
				delete(g.slots, key)
			}
			g.mu.Unlock()
			close(s.done)
		})
	}
}

// Stop cancels the work running under key, if any, and waits for it.
func (g *Group) Stop(key string) {
	g.mu.Lock()
	s := g.slots[key]
	g.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Active reports whether work is registered under key.
func (g *Group) Active(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.slots[key]
	return ok
}
