// Package storage mirrors registry presence into redis so the HTTP
// surface can answer online lookups without touching the registry's
// process. The in-memory registry stays authoritative; keys here expire
// on their own if the process dies without cleaning up.
package storage

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // online key validity window
}

type PresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceStore(ctx context.Context, cfg Config) (*PresenceStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceStore{rdb: rdb, ttl: ttl}, nil
}

// presence key: chat:presence:<username>; TTL bounds staleness.
func presenceKey(username string) string { return "chat:presence:" + username }

// Online marks the user online and renews the TTL.
func (p *PresenceStore) Online(ctx context.Context, username string) error {
	return p.rdb.Set(ctx, presenceKey(username), "1", p.ttl).Err()
}

// Offline deletes the presence key.
func (p *PresenceStore) Offline(ctx context.Context, username string) error {
	return p.rdb.Del(ctx, presenceKey(username)).Err()
}

// IsOnline checks the mirror; a missing key is simply offline.
func (p *PresenceStore) IsOnline(ctx context.Context, username string) (bool, error) {
	_, err := p.rdb.Get(ctx, presenceKey(username)).Result()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "presence lookup")
	}
	return true, nil
}

func (p *PresenceStore) Close() error {
	return p.rdb.Close()
}
