package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/forum_auth/pkg/logging"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
)

var (
	ErrRevoked        = errors.New("token revoked")
	ErrRevocationDown = errors.New("revocation registry unavailable")
	ErrNoSubject      = errors.New("token has no subject")
)

type Codec interface {
	Verify(raw string) (*tokens.Claims, error)
	DecodeUnverified(raw string) (*tokens.Claims, error)
	Remaining(claims *tokens.Claims) int64
}

type Registry interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Verifier authenticates a raw access token: the revocation registry is
// consulted first, then the signature and expiry. Any failure rejects.
type Verifier struct {
	Codec    Codec
	Registry Registry
}

func NewVerifier(codec Codec, registry Registry) *Verifier {
	return &Verifier{Codec: codec, Registry: registry}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Identity, error) {
	id, err := v.verify(ctx, raw)
	if err != nil {
		v.logRejection(ctx, raw, err)
		return nil, err
	}
	return id, nil
}

func (v *Verifier) verify(ctx context.Context, raw string) (*Identity, error) {
	revoked, err := v.Registry.IsBlacklisted(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevocationDown, err)
	}
	if revoked {
		return nil, ErrRevoked
	}

	claims, err := v.Codec.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}

	return &Identity{
		Username:  claims.Subject,
		UserID:    claims.UserID,
		Roles:     claims.Roles,
		Token:     raw,
		ExpiresIn: v.Codec.Remaining(claims),
	}, nil
}

func (v *Verifier) logRejection(ctx context.Context, raw string, err error) {
	attrs := []any{"reason", err.Error()}
	if claims, derr := v.Codec.DecodeUnverified(raw); derr == nil && claims.Subject != "" {
		attrs = append(attrs, "claimed_sub", claims.Subject)
	}
	logging.FromContext(ctx).Warn("token_rejected", attrs...)
}
