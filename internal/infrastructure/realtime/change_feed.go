package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"canteen/internal/domain"
)

// ChangeChannel is the Postgres NOTIFY channel the table triggers write to.
const ChangeChannel = "canteen_changes"

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// NotificationConn is a dedicated connection able to LISTEN.
type NotificationConn interface {
	Exec(ctx context.Context, sql string) error
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Release()
}

// Connector opens a NotificationConn.
type Connector func(ctx context.Context) (NotificationConn, error)

// PoolConnector acquires notification connections from pool.
func PoolConnector(pool *pgxpool.Pool) Connector {
	return func(ctx context.Context) (NotificationConn, error) {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return &poolConn{c: c}, nil
	}
}

type poolConn struct{ c *pgxpool.Conn }

func (p *poolConn) Exec(ctx context.Context, sql string) error {
	_, err := p.c.Exec(ctx, sql)
	return err
}

func (p *poolConn) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	return p.c.Conn().WaitForNotification(ctx)
}

func (p *poolConn) Release() { p.c.Release() }

// ChangeFeed listens for row changes and fans them out to subscribers.
// Run reconnects with exponential backoff until its context is done.
type ChangeFeed struct {
	connect Connector
	logger  *slog.Logger
	onEvent func(domain.ChangeEvent)
	wait    func(ctx context.Context, d time.Duration) bool

	mu     sync.RWMutex
	nextID int
	subs   map[int]func(domain.ChangeEvent)
}

// NewChangeFeed creates a ChangeFeed. onEvent, when set, observes every event
// before subscribers do.
func NewChangeFeed(connect Connector, onEvent func(domain.ChangeEvent), logger *slog.Logger) *ChangeFeed {
	return &ChangeFeed{
		connect: connect,
		logger:  logger,
		onEvent: onEvent,
		wait:    waitFor,
		subs:    make(map[int]func(domain.ChangeEvent)),
	}
}

// Implements domain.ChangeFeed.
var _ domain.ChangeFeed = (*ChangeFeed)(nil)

// Subscribe registers fn for every change event.
func (f *ChangeFeed) Subscribe(fn func(domain.ChangeEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

// Run blocks until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context) error {
	var backoff time.Duration
	for {
		err := f.listen(ctx, func() { backoff = 0 })
		if ctx.Err() != nil {
			return nil
		}
		backoff = nextBackoff(backoff)
		f.logger.WarnContext(ctx, "change feed disconnected, retrying", "error", err, "backoff", backoff)

		if !f.wait(ctx, backoff) {
			return nil
		}
	}
}

// waitFor sleeps for d and reports false if ctx ends first.
func waitFor(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// listen holds one LISTEN connection until it fails. subscribed runs once
// the LISTEN succeeds.
func (f *ChangeFeed) listen(ctx context.Context, subscribed func()) error {
	conn, err := f.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Release()

	if err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	subscribed()
	f.logger.InfoContext(ctx, "change feed listening", "channel", ChangeChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodeChange(n.Payload)
		if err != nil {
			f.logger.WarnContext(ctx, "dropping undecodable change", "error", err)
			continue
		}
		f.deliver(ev)
	}
}

func (f *ChangeFeed) deliver(ev domain.ChangeEvent) {
	if f.onEvent != nil {
		f.onEvent(ev)
	}
	f.mu.RLock()
	fns := make([]func(domain.ChangeEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

var errIncompleteChange = errors.New("change event without table or type")

func decodeChange(payload string) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if ev.Table == "" || ev.Type == "" {
		return ev, errIncompleteChange
	}
	return ev, nil
}

func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
