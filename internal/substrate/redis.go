package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix  = "daystatus:"
	defaultRedisChannel = "daystatus:changes"
)

// RedisOptions configures a [Redis] substrate.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Prefix is prepended to every key. Defaults to "daystatus:".
	Prefix string

	// Channel carries change notifications. Defaults to "daystatus:changes".
	Channel string
}

// Redis stores values as plain Redis strings and announces every write on a
// pub/sub channel. It implements [Substrate] and [Notifier].
//
// Each instance tags its announcements with a random origin id and ignores
// its own messages when watching, so a store never reconciles its own
// writes.
type Redis struct {
	rdb     *goredis.Client
	prefix  string
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	channel := opts.Channel
	if channel == "" {
		channel = defaultRedisChannel
	}

	logger.Info("redis substrate connected", "addr", opts.Addr, "channel", channel)

	return &Redis{
		rdb:     rdb,
		prefix:  prefix,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

// Origin returns the id this instance stamps on its announcements.
func (r *Redis) Origin() string {
	return r.origin
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Get implements [Substrate].
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements [Substrate].
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.announce(ctx, Change{Key: key, Value: value, Origin: r.origin})
	return nil
}

// Remove implements [Substrate].
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	r.announce(ctx, Change{Key: key, Removed: true, Origin: r.origin})
	return nil
}

// announce publishes a change. A failed publish only costs other instances
// a sync; the write itself already succeeded.
func (r *Redis) announce(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("encode change notification", "key", c.Key, "error", err)
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("publish change notification", "key", c.Key, "error", err)
	}
}

// Watch implements [Notifier].
func (r *Redis) Watch(ctx context.Context) (<-chan Change, error) {
	sub := r.rdb.Subscribe(ctx, r.channel)

	// wait for the subscription to be confirmed so no write is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}

	out := make(chan Change, watchBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					r.logger.Warn("malformed change notification", "channel", msg.Channel, "error", err)
					continue
				}
				if c.Origin == r.origin {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
