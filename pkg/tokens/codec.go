package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token is expired")
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidClaims    = errors.New("token claims are invalid")
)

// Claims is the access token payload. Subject carries the username.
type Claims struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"role"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func NewCodec(secret []byte, issuer string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("tokens: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("tokens: access token ttl must be positive")
	}
	c := &Codec{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		popts = append(popts, jwt.WithIssuer(issuer))
	}
	c.parser = jwt.NewParser(popts...)
	return c, nil
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs a new access token and returns it with its lifetime in seconds.
func (c *Codec) Issue(subject, userID string, roles []string) (string, int64, error) {
	now := c.now()
	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return signed, int64(c.ttl / time.Second), nil
}

func (c *Codec) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &claims, nil
}

// DecodeUnverified reads claims without checking the signature or expiry.
// The result must never back an authorization decision.
func (c *Codec) DecodeUnverified(raw string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &claims, nil
}

func (c *Codec) Username(raw string) (string, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExpiresIn reports the seconds left before a verified token expires,
// rounded up.
func (c *Codec) ExpiresIn(raw string) (int64, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return 0, err
	}
	return c.Remaining(claims), nil
}

func (c *Codec) Remaining(claims *Claims) int64 {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	left := claims.ExpiresAt.Time.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return int64((left + time.Second - 1) / time.Second)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
}
