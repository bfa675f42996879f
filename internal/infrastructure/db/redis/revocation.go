package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokedKeyPrefix namespaces revocation entries: revoked:<raw token>.
const revokedKeyPrefix = "revoked:"

// RevocationRegistry records revoked tokens in Redis. An entry lives as
// long as the token it shadows could still be valid, so the registry
// never grows past the working set of live tokens.
type RevocationRegistry struct {
	client *redis.Client
}

// NewRevocationRegistry creates a RevocationRegistry wrapping the given
// Redis client.
func NewRevocationRegistry(client *redis.Client) *RevocationRegistry {
	return &RevocationRegistry{client: client}
}

// Revoke marks the token as revoked for ttl. Revoking an already
// revoked token just refreshes the entry; it is never an error.
func (r *RevocationRegistry) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revocation write: %w", err)
	}
	return nil
}

// IsRevoked reports whether a revocation entry exists for the token.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (r *RevocationRegistry) key(token string) string {
	return revokedKeyPrefix + token
}
