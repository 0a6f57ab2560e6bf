// Package singleflight coalesces concurrent calls that share a key into a
// single execution whose result every caller receives.
package singleflight

import "sync"

type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// Group holds the in-flight calls. The zero value is not usable; use New.
type Group struct {
	mu    sync.Mutex
	calls map[string]*call
}

// New creates an empty Group.
func New() *Group {
	return &Group{
		calls: make(map[string]*call),
	}
}

// Do executes fn, making sure only one execution per key is in flight at a
// time. Concurrent callers with the same key wait for the first execution
// and receive its result. The bool reports whether the result was shared
// with other callers.
func (g *Group) Do(key string, fn func() (interface{}, error)) (interface{}, bool, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, true, c.err
	}

	c := &call{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	c.wg.Done()

	return c.val, false, c.err
}

// Forget drops the in-flight call for key, so the next Do starts a fresh
// execution instead of joining the current one.
func (g *Group) Forget(key string) {
	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
}
