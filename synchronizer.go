package authsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Synchronizer owns the in-memory session/user/loading state, arbitrates
// between the change-event subscription and the one-shot initial fetch, and
// decides when a navigation side effect fires. Construct one per application
// session via [Builder.Build], call Start once, and Close on teardown.
type Synchronizer struct {
	config   Config
	store    SessionStore
	nav      Navigator
	notifier Notifier
	parser   IdentityParser
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *zap.Logger
	guard    *redirectGuard

	mu          sync.Mutex
	session     *Session
	user        *UserIdentity
	initialized bool
	superseded  bool
	busy        int
	started     bool
	closed      bool
	unsubscribe func()
	verifyTimer *time.Timer
}

// Start subscribes to the session-change stream and launches the one-shot
// initial fetch. The two resolve concurrently in no defined order; the
// synchronizer tolerates either arriving first. ctx bounds only the initial
// fetch — the subscription lives until Close.
func (s *Synchronizer) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return ErrStoreRequired
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	unsubscribe, err := s.store.Subscribe(s.handleChange)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("subscribe to session changes: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return ErrClosed
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	go s.initialFetch(ctx)

	return nil
}

// Close cancels the subscription, stops pending timers, and drains the audit
// dispatcher. In-flight credential operations run to completion but apply no
// further UI-visible side effects.
func (s *Synchronizer) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	verifyTimer := s.verifyTimer
	s.verifyTimer = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if verifyTimer != nil {
		verifyTimer.Stop()
	}
	s.guard.stop()
	s.audit.Close()
}

// Snapshot returns a consistent copy of the current state. The returned
// session and user are shallow copies; mutating them does not affect the
// synchronizer.
func (s *Synchronizer) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{Loading: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Session:     cloneSession(s.session),
		User:        cloneUser(s.user),
		Loading:     !s.initialized || s.busy > 0,
		Initialized: s.initialized,
	}
	switch {
	case !s.initialized:
		snap.State = StateUninitialized
	case s.session != nil:
		snap.State = StateAuthenticated
	default:
		snap.State = StateUnauthenticated
	}
	return snap
}

// AuditDropped reports how many audit events were shed under backpressure.
func (s *Synchronizer) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot returns a copy of the synchronizer's counters.
func (s *Synchronizer) MetricsSnapshot() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return s.metrics.Snapshot()
}

// handleChange is the subscription callback. The store may invoke it from any
// goroutine; apply serializes the mutation.
func (s *Synchronizer) handleChange(kind EventKind, session *Session) {
	s.metricInc(MetricChangeEvents)
	s.apply(session, kind, false)
}

func (s *Synchronizer) initialFetch(ctx context.Context) {
	session, err := s.store.CurrentSession(ctx)
	if err != nil {
		s.metricInc(MetricInitialFetchFailure)
		s.logger.Warn("initial session fetch failed", zap.Error(err))
		// The fetch resolved, even if unsuccessfully: loading must not stay
		// true forever waiting for an event stream that may never fire.
		s.finishInitialization()
		return
	}
	s.apply(session, "", true)
}

func (s *Synchronizer) finishInitialization() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.initialized = true
}

// apply merges one session snapshot into authoritative state. Re-applying an
// equivalent snapshot is a no-op on the state pair; kind alone decides whether
// the transition navigates, so the stream and the fetch can race freely. A
// fetch result that resolves after any event or credential operation has
// landed is stale: it is discarded, but still completes initialization.
func (s *Synchronizer) apply(session *Session, kind EventKind, fromFetch bool) {
	user := s.deriveIdentity(session)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if fromFetch && s.superseded {
		s.initialized = true
		s.mu.Unlock()
		s.metricInc(MetricInitialFetchDiscarded)
		s.logger.Debug("initial fetch superseded, discarding result")
		return
	}
	if !fromFetch {
		s.superseded = true
	}

	if sessionEqual(s.session, session) {
		s.metrics.Inc(MetricSnapshotRedundant)
	} else {
		// Full replacement of the pair, never a partial field update.
		s.session = session
		s.user = user
		s.metrics.Inc(MetricSnapshotApplied)
	}

	if !s.initialized || fromFetch {
		s.initialized = true
	}
	s.mu.Unlock()

	// Route inspection happens outside the lock: a Navigator is free to read
	// Snapshot from its CurrentRoute implementation.
	var destination Route
	switch {
	case kind == EventSignedIn && session != nil:
		if s.nav != nil && routeInSet(s.config.Redirect.PreAuthRoutes, s.nav.CurrentRoute()) {
			destination = s.config.Redirect.HomeRoute
		}
	case kind == EventSignedOut && session == nil:
		destination = s.config.Redirect.LoginRoute
	}

	if destination != "" {
		s.redirect(destination)
	}
}

// redirect performs one guarded navigation. Duplicates inside the grace window
// are silently absorbed.
func (s *Synchronizer) redirect(destination Route) {
	if s.nav == nil {
		return
	}
	if !s.guard.tryAcquire() {
		s.metricInc(MetricRedirectSuppressed)
		s.logger.Debug("redirect suppressed", zap.String("route", string(destination)))
		return
	}
	s.metricInc(MetricRedirectPerformed)
	s.logger.Debug("navigating", zap.String("route", string(destination)))
	s.nav.Navigate(destination)
}

func (s *Synchronizer) deriveIdentity(session *Session) *UserIdentity {
	if session == nil {
		return nil
	}
	if session.User != nil {
		return session.User
	}
	if s.parser != nil && session.AccessToken != "" {
		user, err := s.parser(session.AccessToken)
		if err == nil && user != nil {
			return user
		}
		if err != nil {
			s.logger.Debug("identity derivation from token failed", zap.Error(err))
		}
	}
	return &UserIdentity{ID: session.SubjectID}
}

func (s *Synchronizer) beginOperation() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
}

func (s *Synchronizer) endOperation() {
	s.mu.Lock()
	if s.busy > 0 {
		s.busy--
	}
	s.mu.Unlock()
}

func (s *Synchronizer) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Synchronizer) notify(message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(message)
}

func (s *Synchronizer) metricInc(id MetricID) {
	if s == nil {
		return
	}
	s.metrics.Inc(id)
}

func sessionEqual(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.AccessToken == b.AccessToken && a.ExpiresAt.Equal(b.ExpiresAt)
}

func cloneSession(s *Session) *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User = cloneUser(s.User)
	return &out
}

func cloneUser(u *UserIdentity) *UserIdentity {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
