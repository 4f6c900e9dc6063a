package identity

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/internal/domain"
)

const waitFor = time.Second

// recordingObserver implements Observer and signals finished bootstraps.
type recordingObserver struct {
	mu       sync.Mutex
	phases   []Phase
	finished chan Phase
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: make(chan Phase, 4)}
}

func (o *recordingObserver) PhaseChanged(p Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, p)
}

func (o *recordingObserver) BootstrapFinished(_ time.Duration, p Phase) {
	o.finished <- p
}

type harness struct {
	auth     *fakeAuth
	profiles *fakeProfiles
	storage  *fakeStorage
	notifier *fakeNotifier
	observer *recordingObserver
	resolver *Resolver
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		auth:     &fakeAuth{},
		profiles: newFakeProfiles(),
		storage:  &fakeStorage{},
		notifier: newFakeNotifier(),
		observer: newRecordingObserver(),
	}
	h.resolver = NewResolver("device-1", h.auth, h.profiles, h.storage,
		Options{Timeout: timeout, Observer: h.observer}, slog.Default())
	t.Cleanup(h.resolver.Close)
	return h
}

func (h *harness) decide(req Requirement) Decision {
	return Authorize(Merge(h.resolver.State(), h.storage.cached()), req, DefaultRoutes, "/cart")
}

func (h *harness) waitPhase(t *testing.T, want Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.resolver.State().Phase == want
	}, waitFor, 5*time.Millisecond, "phase never reached %s (at %s)", want, h.resolver.State().Phase)
}

func (h *harness) waitBootstrap(t *testing.T) Phase {
	t.Helper()
	select {
	case p := <-h.observer.finished:
		return p
	case <-time.After(waitFor):
		t.Fatal("bootstrap did not finish")
		return PhaseInit
	}
}

func TestResolver_NoCachedSessionGoesAnonymous(t *testing.T) {
	h := newHarness(t, time.Second)

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseAnonymous)

	assert.Zero(t, h.auth.calls, "no token means no live call")
	d := h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeRedirect, d.Outcome)
	assert.Equal(t, "/student-auth?from=%2Fcart", d.Location)
}

func TestResolver_LiveSessionAuthenticates(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseAuthenticated)

	assert.Equal(t, []string{"tok-u1"}, h.auth.tokens)
	p, ok := h.storage.LoadProfile(t.Context())
	require.True(t, ok)
	assert.Equal(t, domain.RoleStudent, p.Role)

	d := h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeAllow, d.Outcome)
	assert.Equal(t, Live, d.Source)

	d = h.decide(RequireRole(domain.RoleStaff))
	assert.Equal(t, OutcomeRedirect, d.Outcome)
	assert.Equal(t, "/menu", d.Location)
}

func TestResolver_CachedIdentityGrantsWhileChecking(t *testing.T) {
	h := newHarness(t, time.Second)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStudent)
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	assert.Equal(t, PhaseChecking, h.resolver.State().Phase)

	d := h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeAllow, d.Outcome)
	assert.Equal(t, Cached, d.Source)

	close(h.auth.release)
	h.waitPhase(t, PhaseAuthenticated)
	assert.Equal(t, Live, h.decide(RequireRole(domain.RoleStudent)).Source)
}

func TestResolver_WaitsWithoutUsableCache(t *testing.T) {
	h := newHarness(t, time.Second)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")

	h.resolver.Start(h.notifier)

	assert.Equal(t, OutcomeWait, h.decide(RequireRole(domain.RoleStudent)).Outcome)
	assert.Equal(t, OutcomeWait, h.decide(SignedIn).Outcome)
	assert.Equal(t, OutcomeAllow, h.decide(Public).Outcome)
	close(h.auth.release)
}

func TestResolver_TimeoutThenLiveResultWins(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStudent)
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStaff))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseDegraded)

	d := h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeAllow, d.Outcome)
	assert.Equal(t, Cached, d.Source)

	close(h.auth.release)
	h.waitPhase(t, PhaseAuthenticated)

	assert.Equal(t, OutcomeAllow, h.decide(RequireRole(domain.RoleStaff)).Outcome)
	d = h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeRedirect, d.Outcome)
	assert.Equal(t, "/menu", d.Location)
}

func TestResolver_TimeoutWithPartialCacheWaits(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseDegraded)

	assert.Equal(t, OutcomeWait, h.decide(RequireRole(domain.RoleStudent)).Outcome)
	close(h.auth.release)
}

func TestResolver_LiveErrorDegradesToCache(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStudent)
	h.auth.set(nil, domain.ErrBackendUnavailable)

	h.resolver.Start(h.notifier)
	assert.Equal(t, PhaseDegraded, h.waitBootstrap(t))

	d := h.decide(RequireRole(domain.RoleStudent))
	assert.Equal(t, OutcomeAllow, d.Outcome)
	assert.Equal(t, Cached, d.Source)
	_, ok := h.storage.LoadSession(t.Context())
	assert.True(t, ok, "a failed live check must not sign the device out")
}

func TestResolver_ProfileErrorBlocks(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStaff)
	h.auth.set(session("u1"), nil)
	h.profiles.err = domain.ErrBackendUnavailable

	h.resolver.Start(h.notifier)
	assert.Equal(t, PhaseBlocked, h.waitBootstrap(t))

	for _, req := range []Requirement{SignedIn, RequireRole(domain.RoleStaff), RequireRole(domain.RoleStudent)} {
		assert.Equal(t, OutcomeWait, h.decide(req).Outcome)
	}
}

func TestResolver_LiveNoSessionClearsCache(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStudent)
	h.auth.set(nil, nil)

	h.resolver.Start(h.notifier)
	assert.Equal(t, PhaseAnonymous, h.waitBootstrap(t))

	_, ok := h.storage.LoadProfile(t.Context())
	assert.False(t, ok)
	_, ok = h.storage.LoadSession(t.Context())
	assert.False(t, ok)
	assert.Equal(t, OutcomeRedirect, h.decide(RequireRole(domain.RoleStudent)).Outcome)
}

func TestResolver_CachedIdentityOfAnotherSubjectIsIgnored(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.storage.profile = profile("u1", domain.RoleStaff)
	h.auth.set(session("u2"), nil)
	h.profiles.release = make(chan struct{})
	h.profiles.put(profile("u2", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseProfilePending)

	assert.Equal(t, OutcomeWait, h.decide(RequireRole(domain.RoleStaff)).Outcome)
	close(h.profiles.release)
	h.waitPhase(t, PhaseAuthenticated)
	assert.Equal(t, "u2", h.resolver.State().Live.Profile.ID)
}

func TestResolver_NotificationSupersedesBootstrap(t *testing.T) {
	h := newHarness(t, time.Second)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))
	h.profiles.put(profile("u2", domain.RoleStaff))

	h.resolver.Start(h.notifier)
	h.notifier.Publish("device-1", domain.EventSignedIn, session("u2"))
	h.waitPhase(t, PhaseAuthenticated)
	require.Equal(t, "u2", h.resolver.State().Live.Session.UserID)

	close(h.auth.release)
	h.waitBootstrap(t)

	state := h.resolver.State()
	assert.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, "u2", state.Live.Session.UserID)
	assert.Equal(t, domain.RoleStaff, state.Live.Profile.Role)
}

func TestResolver_SignedOutNotification(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseAuthenticated)

	h.notifier.Publish("device-1", domain.EventSignedOut, nil)

	assert.Equal(t, PhaseAnonymous, h.resolver.State().Phase)
	_, ok := h.storage.LoadSession(t.Context())
	assert.False(t, ok)
	_, ok = h.storage.LoadProfile(t.Context())
	assert.False(t, ok)
}

func TestResolver_RepeatedRefreshIsIgnored(t *testing.T) {
	h := newHarness(t, time.Second)
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseAuthenticated)
	require.Equal(t, 1, h.profiles.calls)

	h.notifier.Publish("device-1", domain.EventTokenRefreshed, session("u1"))

	assert.Equal(t, PhaseAuthenticated, h.resolver.State().Phase)
	assert.Equal(t, 1, h.profiles.calls)
}

func TestResolver_CloseUnsubscribesAndDiscardsCompletions(t *testing.T) {
	h := newHarness(t, time.Second)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	require.Equal(t, 1, h.notifier.active())

	h.resolver.Close()
	assert.Zero(t, h.notifier.active())
	select {
	case <-h.resolver.Settled():
	default:
		t.Fatal("settled channel must be closed after Close")
	}

	close(h.auth.release)
	h.waitBootstrap(t)
	assert.Equal(t, PhaseChecking, h.resolver.State().Phase)
	assert.Zero(t, h.profiles.calls)
}

func TestResolver_TimerReleasedAfterCompletion(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	h.storage.session = session("u1")
	h.auth.set(session("u1"), nil)
	h.profiles.put(profile("u1", domain.RoleStudent))

	h.resolver.Start(h.notifier)
	h.waitPhase(t, PhaseAuthenticated)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, PhaseAuthenticated, h.resolver.State().Phase)
	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	assert.NotContains(t, h.observer.phases, PhaseDegraded)
}

func TestResolver_SettledClosesOnTerminalPhase(t *testing.T) {
	h := newHarness(t, time.Second)
	h.auth.release = make(chan struct{})
	h.storage.session = session("u1")
	h.auth.set(nil, nil)

	h.resolver.Start(h.notifier)
	settled := h.resolver.Settled()
	select {
	case <-settled:
		t.Fatal("settled before the live check completed")
	default:
	}

	close(h.auth.release)
	select {
	case <-settled:
	case <-time.After(waitFor):
		t.Fatal("settled channel never closed")
	}
	assert.Equal(t, PhaseAnonymous, h.resolver.State().Phase)
}

func TestResolver_SignOutDuringPersistIsNotUndone(t *testing.T) {
	auth := &fakeAuth{}
	auth.set(session("u1"), nil)
	profiles := newFakeProfiles(profile("u1", domain.RoleStudent))
	base := &fakeStorage{session: session("u1")}
	storage := newGatedStorage(base)
	notifier := newFakeNotifier()

	r := NewResolver("device-1", auth, profiles, storage, Options{Timeout: time.Second}, slog.Default())
	t.Cleanup(r.Close)
	r.Start(notifier)

	select {
	case <-storage.entered:
	case <-time.After(waitFor):
		t.Fatal("pass never persisted")
	}

	// Sign-out lands while the authenticated pass is still writing.
	require.NoError(t, base.Clear(t.Context()))
	signedOut := make(chan struct{})
	go func() {
		defer close(signedOut)
		notifier.Publish("device-1", domain.EventSignedOut, nil)
	}()

	close(storage.gate)
	select {
	case <-signedOut:
	case <-time.After(waitFor):
		t.Fatal("sign-out never completed")
	}

	assert.Equal(t, PhaseAnonymous, r.State().Phase)
	_, ok := base.LoadSession(t.Context())
	assert.False(t, ok, "session written back after sign-out")
	_, ok = base.LoadProfile(t.Context())
	assert.False(t, ok, "profile written back after sign-out")

	fresh := NewResolver("device-1", auth, profiles, base, Options{Timeout: time.Second}, slog.Default())
	t.Cleanup(fresh.Close)
	fresh.Start(newFakeNotifier())
	require.Eventually(t, func() bool {
		return fresh.State().Phase == PhaseAnonymous
	}, waitFor, 5*time.Millisecond, "fresh resolver at %s", fresh.State().Phase)
}
