package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const DefaultPrefix = "blacklist:"

type KV interface {
	SetEx(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Registry records revoked access tokens. Keys are the hex sha256 of the raw
// token so entries stay small and tokens never sit in the store in clear.
type Registry struct {
	kv      KV
	prefix  string
	timeout time.Duration
}

func NewRegistry(kv KV, prefix string, timeout time.Duration) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{kv: kv, prefix: prefix, timeout: timeout}
}

func (r *Registry) Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return r.prefix + hex.EncodeToString(sum[:])
}

// Blacklist marks token as revoked for ttl. A non-positive ttl means the token
// has already expired on its own and nothing is stored.
func (r *Registry) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("revocation: empty token")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.kv.SetEx(ctx, r.Key(token), []byte("1"), ttl); err != nil {
		return fmt.Errorf("revocation: blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether token was revoked. Callers must treat an error
// as "revoked".
func (r *Registry) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ok, err := r.kv.Exists(ctx, r.Key(token))
	if err != nil {
		return true, fmt.Errorf("revocation: lookup: %w", err)
	}
	return ok, nil
}
