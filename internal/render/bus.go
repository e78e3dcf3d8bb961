package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// #region bus-struct

// Bus publishes render commands and lifecycle notifications to a Redis
// channel as JSON, for the enclosing application to forward to clients.
type Bus struct {
	rdb     *goredis.Client
	channel string
}

// #endregion

// #region constructor

// NewBus connects to Redis and verifies the connection.
func NewBus(addr, channel string) (*Bus, error) {
	if channel == "" {
		channel = "render"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Bus{rdb: rdb, channel: channel}, nil
}

// #endregion

// #region envelope

// envelope wraps the two message kinds on one channel.
type envelope struct {
	Type      string     `json:"type"` // "command" | "lifecycle"
	Command   *Command   `json:"command,omitempty"`
	Lifecycle *Lifecycle `json:"lifecycle,omitempty"`
}

// #endregion

// #region sink-impl

// Dispatch publishes one render command.
func (b *Bus) Dispatch(cmd Command) error {
	return b.publish(envelope{Type: "command", Command: &cmd})
}

// Notify publishes one lifecycle notification.
func (b *Bus) Notify(lc Lifecycle) error {
	return b.publish(envelope{Type: "lifecycle", Lifecycle: &lc})
}

func (b *Bus) publish(env envelope) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("render bus not initialized")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// #endregion

// #region close

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// #endregion
