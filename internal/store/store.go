// Package store persists channel state between actions.
//
// Every backend saves with compare-and-swap on the channel's sequence number,
// so two processes handling the same channel cannot silently overwrite each
// other.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
)

// ErrConflict means the stored sequence was not the one the caller loaded.
var ErrConflict = errors.New("channel state changed concurrently")

var ErrUnknownBackend = errors.New("unknown store backend")

type Store interface {
	// Load returns a fresh state with sequence 0 when nothing is stored.
	Load(ctx context.Context, key ids.ChannelKey) (channel.State, error)
	// Save writes s if the stored sequence is still prevSequence.
	Save(ctx context.Context, s channel.State, prevSequence uint64) error
	Close() error
}

type Options struct {
	Backend       string
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Open connects the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		logger.Info("using in-memory store")
		return NewMemory(), nil

	case "postgres":
		s, err := OpenPostgres(opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info("connected to postgres")
		return s, nil

	case "sqlite":
		s, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", opts.SQLitePath, err)
		}
		logger.Info("opened sqlite", zap.String("path", opts.SQLitePath))
		return s, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, multierr.Append(fmt.Errorf("ping redis %s: %w", opts.RedisAddr, err), client.Close())
		}
		logger.Info("connected to redis", zap.String("addr", opts.RedisAddr), zap.Duration("ttl", opts.TTL))
		return NewRedis(client, opts.TTL), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
