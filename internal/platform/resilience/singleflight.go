package resilience

import "golang.org/x/sync/singleflight"

// SingleFlight collapses concurrent calls that share a key into one execution.
type SingleFlight struct {
	group singleflight.Group
}

// Do runs fn once per in-flight key. shared reports whether the result was
// handed to more than one caller.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (v any, err error, shared bool) {
	return g.group.Do(key, fn)
}

// Forget drops an in-flight key so the next caller starts a fresh execution.
func (g *SingleFlight) Forget(key string) {
	g.group.Forget(key)
}
