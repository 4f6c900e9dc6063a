package localstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "canteen:"
	changesChannel = "canteen:localstore:changes"
)

// RedisStore is a Store shared by every instance of the service. Each write
// is announced on a pub/sub channel so other instances see it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	watchers  map[int]ChangeFunc
	nextID    int
	listening bool
	done      chan struct{}
}

// NewRedisStore creates a RedisStore from a redis:// URL. ttl bounds how
// long an entry lives without being rewritten; zero keeps entries forever.
func NewRedisStore(url string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisStore{
		client:   client,
		ttl:      ttl,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		watchers: make(map[int]ChangeFunc),
	}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close stops the change listener and closes the client.
func (s *RedisStore) Close() error {
	s.cancel()
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return s.client.Close()
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.ttl).Err(); err != nil {
		return err
	}
	return s.announce(ctx, key)
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, s.announce(ctx, key)
}

// Snapshot implements Store.
func (s *RedisStore) Snapshot(ctx context.Context, prefix string) (map[string][]byte, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+prefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out[strings.TrimPrefix(keys[i], keyPrefix)] = []byte(str)
	}
	return out, nil
}

// Watch implements Watcher. The first call subscribes to the change channel.
func (s *RedisStore) Watch(fn ChangeFunc) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	start := !s.listening
	s.listening = true
	if start {
		s.done = make(chan struct{})
	}
	s.mu.Unlock()

	if start {
		sub := s.client.Subscribe(s.ctx, changesChannel)
		if _, err := sub.Receive(s.ctx); err != nil {
			s.logger.Warn("localstore change subscription failed", "error", err)
		}
		go s.listen(sub)
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *RedisStore) listen(sub *redis.PubSub) {
	defer close(s.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.dispatch(msg.Payload)
		}
	}
}

func (s *RedisStore) dispatch(key string) {
	value, present, err := s.Get(s.ctx, key)
	if err != nil {
		s.logger.Warn("failed to read changed key", "key", key, "error", err)
		return
	}

	s.mu.Lock()
	watchers := make([]ChangeFunc, 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(key, value, present)
	}
}

func (s *RedisStore) announce(ctx context.Context, key string) error {
	if err := s.client.Publish(ctx, changesChannel, key).Err(); err != nil {
		return fmt.Errorf("announce change: %w", err)
	}
	return nil
}
