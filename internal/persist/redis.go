package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-farmlink/internal/market"
	"github.com/ariefcatur/go-farmlink/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// Redis stores the snapshot as a single string value without expiry.
type Redis struct {
	rdb redis.Cmdable
	key string
}

func NewRedis(rdb redis.Cmdable, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{rdb: rdb, key: fmt.Sprintf(redisx.KeySnapshot, key)}
}

func (r *Redis) Load(ctx context.Context) (*market.State, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return Decode(b)
}

func (r *Redis) Save(ctx context.Context, st market.State) error {
	b, err := Encode(st)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}
