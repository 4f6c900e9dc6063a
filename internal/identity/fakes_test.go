package identity

import (
	"context"
	"errors"
	"sync"

	"canteen/internal/domain"
)

// fakeAuth implements domain.Authenticator. When release is set,
// GetCurrentSession blocks until it is closed and then returns whatever
// result is configured at that moment.
type fakeAuth struct {
	mu      sync.Mutex
	release chan struct{}
	session *domain.Session
	err     error
	calls   int
	tokens  []string
}

func (f *fakeAuth) GetCurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	f.mu.Lock()
	f.calls++
	f.tokens = append(f.tokens, token)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *fakeAuth) set(session *domain.Session, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session, f.err = session, err
}

func (f *fakeAuth) SignIn(context.Context, string, string) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*domain.Registration, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAuth) SignOut(context.Context, string) error { return nil }

// fakeProfiles implements ProfileReader.
type fakeProfiles struct {
	mu       sync.Mutex
	release  chan struct{}
	profiles map[string]*domain.Profile
	err      error
	calls    int
}

func newFakeProfiles(profiles ...*domain.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]*domain.Profile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) put(p *domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

// fakeStorage implements domain.DeviceStorage in memory.
type fakeStorage struct {
	mu      sync.Mutex
	session *domain.Session
	profile *domain.Profile
	cart    domain.Cart
}

func (s *fakeStorage) LoadSession(context.Context) (*domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.session != nil
}

func (s *fakeStorage) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *fakeStorage) ClearSession(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

func (s *fakeStorage) LoadProfile(context.Context) (*domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile, s.profile != nil
}

func (s *fakeStorage) SaveProfile(_ context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
	return nil
}

func (s *fakeStorage) ClearProfile(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	return nil
}

func (s *fakeStorage) LoadCart(context.Context) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

func (s *fakeStorage) SaveCart(_ context.Context, cart domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
	return nil
}

func (s *fakeStorage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session, s.profile, s.cart = nil, nil, nil
	return nil
}

func (s *fakeStorage) cached() Resolution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FromCache(s.session, s.profile)
}

// fakeNotifier implements domain.SessionNotifier.
type fakeNotifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(domain.SessionEvent, *domain.Session)
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{subs: map[int]func(domain.SessionEvent, *domain.Session){}}
}

func (n *fakeNotifier) Subscribe(_ string, fn func(domain.SessionEvent, *domain.Session)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *fakeNotifier) Publish(_ string, event domain.SessionEvent, session *domain.Session) {
	n.mu.Lock()
	fns := make([]func(domain.SessionEvent, *domain.Session), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(event, session)
	}
}

func (n *fakeNotifier) active() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func session(userID string) *domain.Session {
	return &domain.Session{AccessToken: "tok-" + userID, UserID: userID, Email: userID + "@campus.test"}
}

func profile(userID string, role domain.Role) *domain.Profile {
	return &domain.Profile{ID: userID, FullName: "User " + userID, Role: role}
}

// gatedStorage holds SaveSession until gate is closed, signalling entered
// when the first save arrives.
type gatedStorage struct {
	*fakeStorage
	once    sync.Once
	entered chan struct{}
	gate    chan struct{}
}

func newGatedStorage(inner *fakeStorage) *gatedStorage {
	return &gatedStorage{fakeStorage: inner, entered: make(chan struct{}), gate: make(chan struct{})}
}

func (s *gatedStorage) SaveSession(ctx context.Context, session *domain.Session) error {
	s.once.Do(func() { close(s.entered) })
	<-s.gate
	return s.fakeStorage.SaveSession(ctx, session)
}
