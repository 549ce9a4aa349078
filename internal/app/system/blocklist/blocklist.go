// Package blocklist records revoked API tokens until they would have expired
// anyway. Tokens are stored by digest, never in the clear.
package blocklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultTTL is used when Put is called with a non-positive ttl.
const DefaultTTL = 8 * time.Hour

// Backend names accepted by ValidateBackend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Blocklist is the set of revoked tokens. An entry whose ttl has elapsed is
// not blocked.
type Blocklist interface {
	Put(ctx context.Context, token string, ttl time.Duration) error
	IsBlocked(ctx context.Context, token string) (bool, error)
	Remove(ctx context.Context, token string) error
	Len(ctx context.Context) (int, error)
}

// Digest is the storage key for a token.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// ErrUnknownBackend is returned by ValidateBackend.
type ErrUnknownBackend string

func (e ErrUnknownBackend) Error() string {
	return fmt.Sprintf("unknown blocklist backend %q (want %q or %q)", string(e), BackendMemory, BackendRedis)
}

// ValidateBackend checks a backend name from configuration.
func ValidateBackend(name string) error {
	switch name {
	case BackendMemory, BackendRedis:
		return nil
	default:
		return ErrUnknownBackend(name)
	}
}
