package authsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is a controllable SessionStore. Tests drive the push stream via
// emit and gate the one-shot fetch to force either arrival order.
type fakeStore struct {
	mu           sync.Mutex
	fn           func(kind EventKind, session *Session)
	current      *Session
	currentErr   error
	fetchGate    chan struct{}
	signInCreds  *Credentials
	signInErr    error
	signUpCreds  *Credentials
	signUpErr    error
	signOutErr   error
	signInCalls  int
	unsubscribed bool
}

func (f *fakeStore) CurrentSession(context.Context) (*Session, error) {
	f.mu.Lock()
	gate := f.fetchGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

func (f *fakeStore) Subscribe(fn func(kind EventKind, session *Session)) (func(), error) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.fn = nil
		f.mu.Unlock()
	}, nil
}

func (f *fakeStore) SignInWithCredentials(context.Context, string, string) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	return f.signInCreds, f.signInErr
}

func (f *fakeStore) SignUpWithCredentials(context.Context, string, string, UserMetadata) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signUpCreds, f.signUpErr
}

func (f *fakeStore) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeStore) emit(kind EventKind, session *Session) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(kind, session)
	}
}

type recordingNavigator struct {
	mu    sync.Mutex
	route Route
	navs  []Route
}

func (n *recordingNavigator) CurrentRoute() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

func (n *recordingNavigator) Navigate(route Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
	n.navs = append(n.navs, route)
}

func (n *recordingNavigator) navigations() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Route(nil), n.navs...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Redirect.GracePeriod = 50 * time.Millisecond
	cfg.SignUp.VerificationRedirectDelay = 30 * time.Millisecond
	return cfg
}

func testSession(id string) *Session {
	return &Session{
		ID:          id,
		SubjectID:   "subj-" + id,
		AccessToken: "token-" + id,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        &UserIdentity{ID: "subj-" + id, Email: id + "@example.com"},
	}
}

func buildTestSync(t *testing.T, cfg Config, store *fakeStore, nav *recordingNavigator, opts ...func(*Builder)) *Synchronizer {
	t.Helper()

	b := New().WithConfig(cfg).WithStore(store)
	if nav != nil {
		b.WithNavigator(nav)
	}
	for _, opt := range opts {
		opt(b)
	}

	sync, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(sync.Close)
	return sync
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStreamThenFetchAppliesOnce(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session, fetchGate: make(chan struct{})}
	nav := &recordingNavigator{route: "/reports"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Stream wins the race.
	store.emit(EventInitialSession, session)
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	// Fetch resolves second; the stream already supplied the state, so the
	// result is dropped instead of re-applied.
	close(store.fetchGate)
	waitFor(t, "stale fetch discarded", func() bool {
		return sync.MetricsSnapshot().Counters[MetricInitialFetchDiscarded] >= 1
	})

	snap := sync.Snapshot()
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", snap.State)
	}
	if snap.Loading {
		t.Fatal("loading should be false after initialization")
	}
	if got := sync.MetricsSnapshot().Counters[MetricSnapshotApplied]; got != 1 {
		t.Fatalf("applied = %d, want 1", got)
	}
	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("unexpected navigations %v", navs)
	}
}

func TestFetchThenStreamAppliesOnce(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session}
	nav := &recordingNavigator{route: "/reports"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	// The stream replays the same session afterwards.
	store.emit(EventInitialSession, session)

	counters := sync.MetricsSnapshot().Counters
	if counters[MetricSnapshotApplied] != 1 {
		t.Fatalf("applied = %d, want 1", counters[MetricSnapshotApplied])
	}
	if counters[MetricSnapshotRedundant] != 1 {
		t.Fatalf("redundant = %d, want 1", counters[MetricSnapshotRedundant])
	}
	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("unexpected navigations %v", navs)
	}
}

func TestStaleFetchDiscardedAfterSignOut(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session, fetchGate: make(chan struct{})}
	nav := &recordingNavigator{route: "/dashboard"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The stream reports a sign-out while the fetch is still in flight.
	store.emit(EventSignedOut, nil)
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	// The fetch then resolves with the session that existed when it started.
	// Adopting it would re-authenticate a signed-out user.
	close(store.fetchGate)
	waitFor(t, "stale fetch discarded", func() bool {
		return sync.MetricsSnapshot().Counters[MetricInitialFetchDiscarded] >= 1
	})

	snap := sync.Snapshot()
	if snap.State != StateUnauthenticated || snap.Session != nil {
		t.Fatalf("late fetch overwrote the signed-out state: %+v", snap)
	}
}

func TestStaleFetchDoesNotClobberSignIn(t *testing.T) {
	fresh := testSession("s2")
	store := &fakeStore{
		current:     testSession("s1"),
		fetchGate:   make(chan struct{}),
		signInCreds: &Credentials{Session: fresh, User: fresh.User},
	}

	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A sign-in completes while the fetch is still gated on the old session.
	if _, err := sync.SignIn(context.Background(), "alice@example.com", "Str0ng!pass"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	close(store.fetchGate)
	waitFor(t, "stale fetch discarded", func() bool {
		return sync.MetricsSnapshot().Counters[MetricInitialFetchDiscarded] >= 1
	})

	snap := sync.Snapshot()
	if snap.Session == nil || snap.Session.ID != "s2" {
		t.Fatalf("late fetch replaced the fresh sign-in: %+v", snap.Session)
	}
}

func TestInitialFetchFailureStillInitializes(t *testing.T) {
	store := &fakeStore{currentErr: ErrProviderUnavailable}

	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Loading must resolve even though neither source produced a session.
	waitFor(t, "initialized after failed fetch", func() bool { return sync.Snapshot().Initialized })

	snap := sync.Snapshot()
	if snap.State != StateUnauthenticated {
		t.Fatalf("state = %v, want unauthenticated", snap.State)
	}
	if got := sync.MetricsSnapshot().Counters[MetricInitialFetchFailure]; got != 1 {
		t.Fatalf("fetch failures = %d, want 1", got)
	}
}

func TestFreshVisitResolvesUnauthenticated(t *testing.T) {
	store := &fakeStore{}
	nav := &recordingNavigator{route: "/login"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	snap := sync.Snapshot()
	if snap.State != StateUnauthenticated || snap.Session != nil || snap.User != nil {
		t.Fatalf("want empty unauthenticated snapshot, got %+v", snap)
	}
	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("fresh visit must not navigate, got %v", navs)
	}
}

func TestSignInFromPreAuthRouteNavigatesOnce(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{signInCreds: &Credentials{Session: session, User: session.User}}
	nav := &recordingNavigator{route: "/login"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	got, err := sync.SignIn(context.Background(), "alice@example.com", "Str0ng!pass")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if got == nil || got.ID != session.ID {
		t.Fatalf("SignIn returned %+v", got)
	}

	// The operation itself never navigates; the signed_in event does.
	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("premature navigation %v", navs)
	}

	store.emit(EventSignedIn, session)
	// Duplicate notification of the same login: the route already moved off
	// the pre-auth set, so no second navigation is even attempted.
	store.emit(EventSignedIn, session)

	navs := nav.navigations()
	if len(navs) != 1 || navs[0] != "/dashboard" {
		t.Fatalf("navigations = %v, want exactly one to /dashboard", navs)
	}
	if got := sync.MetricsSnapshot().Counters[MetricRedirectPerformed]; got != 1 {
		t.Fatalf("performed = %d, want 1", got)
	}
}

func TestDuplicateSignOutSuppressedInGraceWindow(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session}
	nav := &recordingNavigator{route: "/dashboard"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "authenticated", func() bool { return sync.Snapshot().State == StateAuthenticated })

	// Sign-out redirects regardless of route, so the second event reaches the
	// guard and is absorbed by the grace window.
	store.emit(EventSignedOut, nil)
	store.emit(EventSignedOut, nil)

	navs := nav.navigations()
	if len(navs) != 1 || navs[0] != "/login" {
		t.Fatalf("navigations = %v, want exactly one to /login", navs)
	}

	counters := sync.MetricsSnapshot().Counters
	if counters[MetricRedirectPerformed] != 1 {
		t.Fatalf("performed = %d, want 1", counters[MetricRedirectPerformed])
	}
	if counters[MetricRedirectSuppressed] != 1 {
		t.Fatalf("suppressed = %d, want 1", counters[MetricRedirectSuppressed])
	}
}

func TestSignInInsideAppDoesNotNavigate(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{}
	nav := &recordingNavigator{route: "/settings"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	store.emit(EventSignedIn, session)

	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("sign-in observed inside the app must not navigate, got %v", navs)
	}
	if sync.Snapshot().State != StateAuthenticated {
		t.Fatal("session should still be adopted")
	}
}

func TestSignOutEventNavigatesToLogin(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session}
	nav := &recordingNavigator{route: "/dashboard"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "authenticated", func() bool { return sync.Snapshot().State == StateAuthenticated })

	store.emit(EventSignedOut, nil)

	snap := sync.Snapshot()
	if snap.State != StateUnauthenticated || snap.Session != nil {
		t.Fatalf("want unauthenticated after sign-out, got %+v", snap)
	}
	navs := nav.navigations()
	if len(navs) != 1 || navs[0] != "/login" {
		t.Fatalf("navigations = %v, want one to /login", navs)
	}
}

func TestTokenRefreshNeverNavigates(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session}
	nav := &recordingNavigator{route: "/login"}

	sync := buildTestSync(t, testConfig(), store, nav)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "authenticated", func() bool { return sync.Snapshot().State == StateAuthenticated })

	rotated := testSession("s1")
	rotated.AccessToken = "token-rotated"
	store.emit(EventTokenRefreshed, rotated)

	if navs := nav.navigations(); len(navs) != 0 {
		t.Fatalf("token refresh navigated: %v", navs)
	}
	snap := sync.Snapshot()
	if snap.Session == nil || snap.Session.AccessToken != "token-rotated" {
		t.Fatalf("rotated token not adopted: %+v", snap.Session)
	}
}

func TestSignInValidationRejectedBeforeNetwork(t *testing.T) {
	store := &fakeStore{}
	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	_, err := sync.SignIn(context.Background(), "not-an-email", "whatever")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}

	store.mu.Lock()
	calls := store.signInCalls
	store.mu.Unlock()
	if calls != 0 {
		t.Fatalf("store reached %d times for invalid input", calls)
	}
	if got := sync.MetricsSnapshot().Counters[MetricSignInRejected]; got != 1 {
		t.Fatalf("rejected = %d, want 1", got)
	}
}

func TestSignInSuccessAudited(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{signInCreds: &Credentials{Session: session, User: session.User}}
	sink := NewChannelSink(4)

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := sync.SignIn(context.Background(), "alice@example.com", "Str0ng!pass"); err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.Action != ActionSignIn {
			t.Fatalf("action = %q, want sign_in", event.Action)
		}
		if event.SubjectID != session.SubjectID || event.Email != "alice@example.com" {
			t.Fatalf("unexpected audit event %+v", event)
		}
		if event.Error != "" {
			t.Fatalf("success event carries error %q", event.Error)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event delivered")
	}

	// One operation, one entry.
	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected second audit event %+v", event)
	default:
	}
}

func TestSignInProviderFailureAudited(t *testing.T) {
	store := &fakeStore{signInErr: ErrInvalidCredentials}
	sink := NewChannelSink(4)

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx := WithClientIP(context.Background(), "203.0.113.9")
	_, err := sync.SignIn(ctx, "alice@example.com", "Wr0ng!pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	select {
	case event := <-sink.Events():
		if event.Action != ActionSignInFailed {
			t.Fatalf("action = %q, want sign_in_failed", event.Action)
		}
		if event.Email != "alice@example.com" || event.Error != "invalid_credentials" {
			t.Fatalf("unexpected audit event %+v", event)
		}
		if event.IP != "203.0.113.9" {
			t.Fatalf("ip = %q", event.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event delivered")
	}
}

func TestSignOutAuditedWithPriorSubject(t *testing.T) {
	session := testSession("s1")
	store := &fakeStore{current: session}
	sink := NewChannelSink(4)

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithAuditSink(sink)
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "authenticated", func() bool { return sync.Snapshot().State == StateAuthenticated })

	sync.SignOut(context.Background())

	select {
	case event := <-sink.Events():
		if event.Action != ActionSignOut {
			t.Fatalf("action = %q, want sign_out", event.Action)
		}
		// The subject captured before the local state cleared.
		if event.SubjectID != session.SubjectID {
			t.Fatalf("subject = %q, want %q", event.SubjectID, session.SubjectID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event delivered")
	}
}

func TestSignOutSwallowsProviderError(t *testing.T) {
	store := &fakeStore{signOutErr: ErrProviderUnavailable}
	notifier := &recordingNotifier{}

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithNotifier(notifier)
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	sync.SignOut(context.Background())

	msgs := notifier.all()
	if len(msgs) != 1 || msgs[0] != SignOutFailedNotice {
		t.Fatalf("notices = %v, want the sign-out failure notice", msgs)
	}
	if got := sync.MetricsSnapshot().Counters[MetricSignOutFailure]; got != 1 {
		t.Fatalf("sign-out failures = %d, want 1", got)
	}
}

func TestSignUpPendingVerification(t *testing.T) {
	user := &UserIdentity{ID: "u1", Email: "bob@example.com"}
	store := &fakeStore{signUpCreds: &Credentials{User: user}}
	nav := &recordingNavigator{route: "/signup"}
	notifier := &recordingNotifier{}

	sync := buildTestSync(t, testConfig(), store, nav, func(b *Builder) {
		b.WithNotifier(notifier)
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	result, err := sync.SignUp(context.Background(), SignUpParams{
		Email:    "bob@example.com",
		Password: "Str0ng!pass",
		Name:     "Bob",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if !result.PendingVerification || result.Session != nil {
		t.Fatalf("want pending verification, got %+v", result)
	}

	msgs := notifier.all()
	if len(msgs) != 1 || msgs[0] != CheckEmailNotice {
		t.Fatalf("notices = %v", msgs)
	}

	// No session was created; the delayed redirect lands on the login route.
	waitFor(t, "delayed login redirect", func() bool {
		navs := nav.navigations()
		return len(navs) == 1 && navs[0] == "/login"
	})
	if sync.Snapshot().State == StateAuthenticated {
		t.Fatal("pending sign-up must not authenticate")
	}
}

func TestSignUpImmediateSession(t *testing.T) {
	session := testSession("s2")
	store := &fakeStore{signUpCreds: &Credentials{Session: session, User: session.User}}

	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := sync.SignUp(context.Background(), SignUpParams{
		Email:    "bob@example.com",
		Password: "Str0ng!pass",
	})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if result.PendingVerification || result.Session == nil {
		t.Fatalf("want immediate session, got %+v", result)
	}
	if sync.Snapshot().State != StateAuthenticated {
		t.Fatal("immediate sign-up should authenticate locally")
	}
}

func TestSignUpWeakPasswordRejected(t *testing.T) {
	store := &fakeStore{}
	sync := buildTestSync(t, testConfig(), store, nil)

	_, err := sync.SignUp(context.Background(), SignUpParams{
		Email:    "bob@example.com",
		Password: "alllowercase1!",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("err = %v, want ErrWeakPassword", err)
	}
}

func TestLoadingDuringCredentialOperation(t *testing.T) {
	store := &fakeStore{}
	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	sync.beginOperation()
	if !sync.Snapshot().Loading {
		t.Fatal("loading must be true while an operation is in flight")
	}
	sync.endOperation()
	if sync.Snapshot().Loading {
		t.Fatal("loading must clear when the operation resolves")
	}
}

func TestStartWithoutStore(t *testing.T) {
	var sync *Synchronizer
	if err := sync.Start(context.Background()); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("nil synchronizer Start = %v, want ErrStoreRequired", err)
	}
	if err := new(Synchronizer).Start(context.Background()); !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("store-less Start = %v, want ErrStoreRequired", err)
	}
}

func TestStartLifecycle(t *testing.T) {
	store := &fakeStore{}
	sync := buildTestSync(t, testConfig(), store, nil)

	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sync.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}

	sync.Close()
	store.mu.Lock()
	unsubscribed := store.unsubscribed
	store.mu.Unlock()
	if !unsubscribed {
		t.Fatal("Close must cancel the subscription")
	}

	if err := sync.Start(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Start after Close = %v, want ErrClosed", err)
	}
}

func TestEventsAfterCloseIgnored(t *testing.T) {
	store := &fakeStore{}
	sync := buildTestSync(t, testConfig(), store, nil)
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, "initialized", func() bool { return sync.Snapshot().Initialized })

	sync.Close()
	store.emit(EventSignedIn, testSession("late"))

	if snap := sync.Snapshot(); snap.Session != nil {
		t.Fatalf("closed synchronizer adopted a session: %+v", snap.Session)
	}
}

func TestIdentityDerivedFromParserWhenUserMissing(t *testing.T) {
	session := testSession("s1")
	session.User = nil
	store := &fakeStore{current: session}

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithIdentityParser(func(string) (*UserIdentity, error) {
			return &UserIdentity{ID: "parsed", Email: "parsed@example.com"}, nil
		})
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "parsed identity", func() bool {
		snap := sync.Snapshot()
		return snap.User != nil && snap.User.ID == "parsed"
	})
}

func TestIdentityFallsBackToSubjectID(t *testing.T) {
	session := testSession("s1")
	session.User = nil
	store := &fakeStore{current: session}

	sync := buildTestSync(t, testConfig(), store, nil, func(b *Builder) {
		b.WithIdentityParser(func(string) (*UserIdentity, error) {
			return nil, errors.New("opaque token")
		})
	})
	if err := sync.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, "fallback identity", func() bool {
		snap := sync.Snapshot()
		return snap.User != nil && snap.User.ID == session.SubjectID
	})
}

func TestBuildRequiresStore(t *testing.T) {
	_, err := New().Build()
	if !errors.Is(err, ErrStoreRequired) {
		t.Fatalf("err = %v, want ErrStoreRequired", err)
	}
}
