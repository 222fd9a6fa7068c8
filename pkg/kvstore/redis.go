package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/crumbandco/bakeshop-backend/pkg/logger"
	pkgredis "github.com/crumbandco/bakeshop-backend/pkg/redis"
)

// notification is the payload fanned out on a key's pub/sub channel
// after every write. Subscribers drop notifications carrying their own
// origin so a writer never observes its own change.
type notification struct {
	Origin  string `json:"origin"`
	Value   string `json:"value,omitempty"`
	Cleared bool   `json:"cleared,omitempty"`
}

// RedisStore implements Store over Redis. Values are plain strings;
// cross-context change delivery rides a per-key pub/sub channel.
type RedisStore struct {
	client *pkgredis.Client
	origin string
	ttl    time.Duration
	logg   *logger.Logger
}

// NewRedisStore wires a Store over the shared Redis client. origin
// identifies this execution context; ttl bounds how long untouched
// keys survive (0 = no expiry).
func NewRedisStore(client *pkgredis.Client, origin string, ttl time.Duration, logg *logger.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if origin == "" {
		return nil, fmt.Errorf("origin is required")
	}
	return &RedisStore{client: client, origin: origin, ttl: ttl, logg: logg}, nil
}

// Get returns the value at key, mapping redis.Nil to ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kvstore get %s: %w", key, err)
	}
	return raw, nil
}

// Set durably replaces the value and notifies other contexts. The
// write itself is synchronous; the notification is best-effort and a
// publish failure does not fail the write.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, s.ttl); err != nil {
		return fmt.Errorf("kvstore set %s: %w", key, err)
	}
	s.publish(ctx, key, notification{Origin: s.origin, Value: value})
	return nil
}

// Delete clears the key and notifies other contexts.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key); err != nil {
		return fmt.Errorf("kvstore delete %s: %w", key, err)
	}
	s.publish(ctx, key, notification{Origin: s.origin, Cleared: true})
	return nil
}

// Subscribe delivers changes made by other execution contexts until
// the returned func is called or ctx is canceled.
func (s *RedisStore) Subscribe(ctx context.Context, key string, fn func(value string, ok bool)) (func(), error) {
	pubsub, err := s.client.Subscribe(ctx, s.client.NotifyChannel(key))
	if err != nil {
		return nil, fmt.Errorf("kvstore subscribe %s: %w", key, err)
	}

	go func() {
		for msg := range pubsub.Channel() {
			var note notification
			if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
				if s.logg != nil {
					s.logg.Error(ctx, "kvstore.notification_decode", err)
				}
				continue
			}
			if note.Origin == s.origin {
				continue
			}
			fn(note.Value, !note.Cleared)
		}
	}()

	return func() { _ = pubsub.Close() }, nil
}

func (s *RedisStore) publish(ctx context.Context, key string, note notification) {
	payload, err := json.Marshal(note)
	if err != nil {
		return
	}
	if err := s.client.Publish(ctx, s.client.NotifyChannel(key), string(payload)); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "key", key), "kvstore.notify_failed")
	}
}
