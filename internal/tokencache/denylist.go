package tokencache

import (
	"context"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids until their natural expiry. Tokens are
// otherwise stateless; this is the only server-side revocation state.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisDenylist struct {
	client *redislib.Client
	prefix string
}

// NewRedisDenylist creates a Redis-backed token denylist.
func NewRedisDenylist(client *redislib.Client) Denylist {
	return &redisDenylist{
		client: client,
		prefix: "revoked:",
	}
}

// Revoke marks a token id revoked for its remaining lifetime. The entry
// expires on its own once the token itself would have expired.
func (d *redisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err()
}

func (d *redisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
