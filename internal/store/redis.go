package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/ids"
)

// Redis stores each channel under "<team>|<channel>:gameState". A zero ttl
// keeps keys forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func redisKey(key ids.ChannelKey) string {
	return key.String() + ":gameState"
}

func (r *Redis) Load(ctx context.Context, key ids.ChannelKey) (channel.State, error) {
	return load(ctx, r.client, key)
}

func (r *Redis) Save(ctx context.Context, s channel.State, prevSequence uint64) error {
	payload, err := channel.Encode(s)
	if err != nil {
		return err
	}
	k := redisKey(s.Key)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := load(ctx, tx, s.Key)
		if err != nil {
			return err
		}
		if current.Sequence != prevSequence {
			return ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, r.ttl)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func load(ctx context.Context, c getter, key ids.ChannelKey) (channel.State, error) {
	data, err := c.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return channel.New(key), nil
	}
	if err != nil {
		return channel.State{}, err
	}
	return channel.Decode(data)
}
