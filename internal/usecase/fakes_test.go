package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"canteen/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStorage implements domain.DeviceStorage for testing.
type memoryStorage struct {
	session *domain.Session
	profile *domain.Profile
	cart    domain.Cart
	cleared int
}

func (m *memoryStorage) LoadSession(context.Context) (*domain.Session, bool) {
	return m.session, m.session != nil
}

func (m *memoryStorage) SaveSession(_ context.Context, s *domain.Session) error {
	m.session = s
	return nil
}

func (m *memoryStorage) ClearSession(context.Context) error {
	m.session = nil
	return nil
}

func (m *memoryStorage) LoadProfile(context.Context) (*domain.Profile, bool) {
	return m.profile, m.profile != nil
}

func (m *memoryStorage) SaveProfile(_ context.Context, p *domain.Profile) error {
	m.profile = p
	return nil
}

func (m *memoryStorage) ClearProfile(context.Context) error {
	m.profile = nil
	return nil
}

func (m *memoryStorage) LoadCart(context.Context) domain.Cart {
	out := make(domain.Cart, len(m.cart))
	copy(out, m.cart)
	return out
}

func (m *memoryStorage) SaveCart(_ context.Context, c domain.Cart) error {
	if len(c) == 0 {
		m.cart = nil
		return nil
	}
	m.cart = c
	return nil
}

func (m *memoryStorage) Clear(context.Context) error {
	m.session, m.profile, m.cart = nil, nil, nil
	m.cleared++
	return nil
}

type published struct {
	deviceID string
	event    domain.SessionEvent
	session  *domain.Session
}

// recordingNotifier implements domain.SessionNotifier for testing.
type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Subscribe(string, func(domain.SessionEvent, *domain.Session)) func() {
	return func() {}
}

func (n *recordingNotifier) Publish(deviceID string, event domain.SessionEvent, session *domain.Session) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{deviceID: deviceID, event: event, session: session})
}

func (n *recordingNotifier) all() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.events...)
}
