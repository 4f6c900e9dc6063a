package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"canteen/internal/domain"
)

// Phase is the resolver's position in the identity bootstrap.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseChecking
	PhaseProfilePending
	PhaseAuthenticated
	PhaseAnonymous
	// PhaseDegraded: the live check failed or the fallback timer fired.
	PhaseDegraded
	// PhaseBlocked: a session is known but its profile could not be fetched.
	PhaseBlocked
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseChecking:
		return "checking"
	case PhaseProfilePending:
		return "profile_pending"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseDegraded:
		return "degraded"
	case PhaseBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Indeterminate reports whether a resolution pass is still running in p.
func (p Phase) Indeterminate() bool {
	return p == PhaseInit || p == PhaseChecking || p == PhaseProfilePending
}

// State is a snapshot of a resolver.
type State struct {
	Phase Phase
	Live  domain.Identity
}

// Observer receives resolver lifecycle events. Implementations must not block.
type Observer interface {
	PhaseChanged(phase Phase)
	BootstrapFinished(elapsed time.Duration, phase Phase)
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(Phase)                    {}
func (nopObserver) BootstrapFinished(time.Duration, Phase) {}

// ProfileReader is the part of the profile repository the resolver needs.
type ProfileReader interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

// Resolver resolves the identity of one device. It runs one bootstrap on
// Start and re-resolves on every session-change notification. Writes are
// ordered by ticket: a pass only writes if no newer pass has written.
type Resolver struct {
	deviceID string
	auth     domain.Authenticator
	profiles ProfileReader
	storage  domain.DeviceStorage
	timeout  time.Duration
	observer Observer
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// persistMu serializes ticket writes with the storage writes that follow
	// them, so a superseded pass cannot write storage after a newer pass has
	// taken over. Held without mu; acquire before mu.
	persistMu sync.Mutex

	mu          sync.Mutex
	phase       Phase
	live        domain.Identity
	issued      uint64
	applied     uint64
	settled     chan struct{}
	unsubscribe func()
	closed      bool
}

// Options configures a Resolver.
type Options struct {
	// Timeout bounds the time a resolution pass may stay indeterminate.
	Timeout  time.Duration
	Observer Observer
}

// NewResolver creates a resolver in PhaseInit. Call Start to begin.
func NewResolver(
	deviceID string,
	auth domain.Authenticator,
	profiles ProfileReader,
	storage domain.DeviceStorage,
	opts Options,
	logger *slog.Logger,
) *Resolver {
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		deviceID: deviceID,
		auth:     auth,
		profiles: profiles,
		storage:  storage,
		timeout:  opts.Timeout,
		observer: opts.Observer,
		logger:   logger.With("device_id", deviceID),
		ctx:      ctx,
		cancel:   cancel,
		phase:    PhaseInit,
		settled:  make(chan struct{}),
	}
}

// Start launches the bootstrap pass and subscribes to session changes for
// the device. The bootstrap takes its ticket first, so any notification
// delivered afterwards supersedes it.
func (r *Resolver) Start(notifier domain.SessionNotifier) {
	ticket := r.nextTicket()
	if !r.apply(ticket, PhaseChecking, domain.Identity{}, nil) {
		return
	}

	unsubscribe := notifier.Subscribe(r.deviceID, r.HandleSessionChange)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsubscribe()
		return
	}
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	go r.bootstrap(ticket)
}

// State returns a snapshot of the resolver.
func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Phase: r.phase, Live: r.live}
}

// Settled returns a channel closed once the resolver leaves its current
// indeterminate phase. It is already closed when the resolver is settled.
func (r *Resolver) Settled() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settled
}

// HandleSessionChange re-enters the resolution with a session delivered by
// the session-change stream.
func (r *Resolver) HandleSessionChange(event domain.SessionEvent, session *domain.Session) {
	r.mu.Lock()
	if r.closed || r.duplicate(session) {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.logger.Debug("session change", "event", string(event))
	ticket := r.nextTicket()
	if session == nil {
		r.resolve(r.ctx, ticket, nil)
		return
	}
	go r.run(ticket, func(ctx context.Context) {
		r.resolve(ctx, ticket, session)
	})
}

// duplicate reports whether session matches what the resolver already
// settled on. Our own writes to the session key come back through the
// persistence watcher and must not start another pass. Caller holds r.mu.
func (r *Resolver) duplicate(session *domain.Session) bool {
	if session == nil {
		return r.phase == PhaseAnonymous
	}
	return (r.phase == PhaseAuthenticated || r.phase == PhaseProfilePending) &&
		r.live.Session != nil &&
		r.live.Session.AccessToken == session.AccessToken &&
		r.live.Session.UserID == session.UserID
}

// Close disposes the resolver. Pending completions are discarded.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	select {
	case <-r.settled:
	default:
		close(r.settled)
	}
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	r.cancel()
}

func (r *Resolver) bootstrap(ticket uint64) {
	start := time.Now()
	r.run(ticket, func(ctx context.Context) {
		var token string
		if cached, ok := r.storage.LoadSession(ctx); ok {
			token = cached.AccessToken
		}
		if token == "" {
			r.resolve(ctx, ticket, nil)
			return
		}

		session, err := r.auth.GetCurrentSession(ctx, token)
		if err != nil {
			r.logger.WarnContext(ctx, "live session check failed, using cached identity", "error", err)
			r.apply(ticket, PhaseDegraded, domain.Identity{}, nil)
			return
		}
		r.resolve(ctx, ticket, session)
	})
	r.observer.BootstrapFinished(time.Since(start), r.State().Phase)
}

// run executes one resolution pass with the fallback timer armed. The timer
// is released on every exit path.
func (r *Resolver) run(ticket uint64, pass func(ctx context.Context)) {
	if r.timeout > 0 {
		timer := time.AfterFunc(r.timeout, func() { r.expire(ticket) })
		defer timer.Stop()
	}
	pass(r.ctx)
}

func (r *Resolver) resolve(ctx context.Context, ticket uint64, session *domain.Session) {
	if session == nil {
		r.apply(ticket, PhaseAnonymous, domain.Identity{}, func() {
			if !r.owns(ticket) {
				return
			}
			if err := r.storage.ClearProfile(ctx); err != nil {
				r.logger.WarnContext(ctx, "failed to clear cached profile", "error", err)
			}
			if !r.owns(ticket) {
				return
			}
			if err := r.storage.ClearSession(ctx); err != nil {
				r.logger.WarnContext(ctx, "failed to clear cached session", "error", err)
			}
		})
		return
	}

	if !r.apply(ticket, PhaseProfilePending, domain.Identity{Session: session}, nil) {
		return
	}

	profile, err := r.profiles.GetProfile(ctx, session.UserID)
	if err != nil {
		r.logger.ErrorContext(ctx, "profile fetch failed", "user_id", session.UserID, "error", err)
		r.apply(ticket, PhaseBlocked, domain.Identity{Session: session}, nil)
		return
	}

	r.apply(ticket, PhaseAuthenticated, domain.Identity{Session: session, Profile: profile}, func() {
		if !r.owns(ticket) {
			return
		}
		if err := r.storage.SaveSession(ctx, session); err != nil {
			r.logger.WarnContext(ctx, "failed to persist session", "error", err)
		}
		if !r.owns(ticket) {
			return
		}
		if err := r.storage.SaveProfile(ctx, profile); err != nil {
			r.logger.WarnContext(ctx, "failed to persist profile", "error", err)
		}
	})
}

func (r *Resolver) nextTicket() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// apply writes phase and identity for ticket unless a newer ticket has
// already written or the resolver is closed. persist, when set, runs after a
// successful write and before any newer ticket can write.
func (r *Resolver) apply(ticket uint64, phase Phase, id domain.Identity, persist func()) bool {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	if r.closed || ticket < r.applied {
		r.mu.Unlock()
		return false
	}
	r.applied = ticket
	changed := r.phase != phase
	r.setPhaseLocked(phase)
	r.live = id
	r.mu.Unlock()

	if changed {
		r.observer.PhaseChanged(phase)
	}
	if persist != nil {
		persist()
	}
	return true
}

// owns reports whether ticket is still the last written one.
func (r *Resolver) owns(ticket uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.applied == ticket
}

// expire forces the pass holding ticket out of an indeterminate phase. It
// leaves applied untouched so the pass can still write its live result.
func (r *Resolver) expire(ticket uint64) {
	r.mu.Lock()
	if r.closed || ticket != r.issued || !r.phase.Indeterminate() {
		r.mu.Unlock()
		return
	}
	r.setPhaseLocked(PhaseDegraded)
	r.mu.Unlock()

	r.logger.Warn("identity resolution timed out, using cached identity")
	r.observer.PhaseChanged(PhaseDegraded)
}

func (r *Resolver) setPhaseLocked(phase Phase) {
	r.phase = phase
	select {
	case <-r.settled:
		if phase.Indeterminate() {
			r.settled = make(chan struct{})
		}
	default:
		if !phase.Indeterminate() {
			close(r.settled)
		}
	}
}
