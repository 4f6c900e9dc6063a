package identity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"canteen/internal/domain"
)

// StorageFactory returns the device-local persistence for a device.
type StorageFactory func(deviceID string) domain.DeviceStorage

// Registry owns one Resolver per device. A resolver is mounted on first use
// and disposed when it idles out, is pushed out by capacity, or is reset.
type Registry struct {
	auth     domain.Authenticator
	profiles ProfileReader
	storage  StorageFactory
	notifier domain.SessionNotifier
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	resolvers *expirable.LRU[string, *Resolver]
}

// RegistryConfig sizes a Registry.
type RegistryConfig struct {
	Size    int
	IdleTTL time.Duration
	Timeout time.Duration
}

// NewRegistry creates a Registry.
func NewRegistry(
	auth domain.Authenticator,
	profiles ProfileReader,
	storage StorageFactory,
	notifier domain.SessionNotifier,
	cfg RegistryConfig,
	observer Observer,
	logger *slog.Logger,
) *Registry {
	reg := &Registry{
		auth:     auth,
		profiles: profiles,
		storage:  storage,
		notifier: notifier,
		opts:     Options{Timeout: cfg.Timeout, Observer: observer},
		logger:   logger,
	}
	reg.resolvers = expirable.NewLRU[string, *Resolver](cfg.Size, func(_ string, r *Resolver) {
		r.Close()
	}, cfg.IdleTTL)
	return reg
}

// Resolver returns the resolver for deviceID, mounting it if needed. Every
// call refreshes the idle deadline.
func (g *Registry) Resolver(deviceID string) *Resolver {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.resolvers.Get(deviceID); ok {
		g.resolvers.Add(deviceID, r)
		return r
	}

	r := NewResolver(deviceID, g.auth, g.profiles, g.storage(deviceID), g.opts, g.logger)
	g.resolvers.Add(deviceID, r)
	r.Start(g.notifier)
	return r
}

// Peek returns the mounted resolver without mounting one or touching its
// idle deadline.
func (g *Registry) Peek(deviceID string) (*Resolver, bool) {
	return g.resolvers.Peek(deviceID)
}

// Reset disposes the resolver for deviceID. The next request mounts a fresh
// one.
func (g *Registry) Reset(deviceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolvers.Remove(deviceID)
}

// Len returns the number of mounted resolvers.
func (g *Registry) Len() int {
	return g.resolvers.Len()
}

// Close disposes every resolver.
func (g *Registry) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolvers.Purge()
}
