package authsync

import (
	"sync"
	"time"
)

// redirectGuard enforces at-most-one navigation in flight. The flag self-clears
// after the grace period whether or not the navigation completed, so a stuck
// flag can never permanently suppress future legitimate redirects.
//
// This is deliberately approximate mutual exclusion: the navigation and the
// state update are not atomic with respect to each other, and the grace window
// absorbs the same logical transition being raised twice in quick succession
// (the explicit sign-in call's completion racing the subscription's
// notification of the same login).
type redirectGuard struct {
	mu          sync.Mutex
	redirecting bool
	grace       time.Duration
	timer       *time.Timer
	stopped     bool
}

func newRedirectGuard(grace time.Duration) *redirectGuard {
	return &redirectGuard{grace: grace}
}

// tryAcquire claims the in-flight slot. A false return is benign de-duplication,
// not a failure: the caller skips the navigation without queueing or erroring.
func (g *redirectGuard) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped || g.redirecting {
		return false
	}

	g.redirecting = true
	g.timer = time.AfterFunc(g.grace, g.release)
	return true
}

func (g *redirectGuard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.redirecting = false
}

// stop permanently disables the guard and cancels any pending reset timer.
func (g *redirectGuard) stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func routeInSet(routes []Route, route Route) bool {
	for _, r := range routes {
		if r == route {
			return true
		}
	}
	return false
}
