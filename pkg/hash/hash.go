package hash

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	Bcrypt   = "bcrypt"
	Argon2id = "argon2id"

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var ErrPasswordTooLong = errors.New("password is longer than 72 bytes")

type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches encoded. A mismatch is not an error.
	Verify(password, encoded string) (bool, error)
}

// New returns the hasher used for new passwords. Verification accepts hashes
// produced by either algorithm so the setting can change without a migration.
func New(algo string) (Hasher, error) {
	switch strings.ToLower(algo) {
	case "", Bcrypt:
		return verifier{primary: bcryptHasher{cost: bcrypt.DefaultCost}}, nil
	case Argon2id:
		return verifier{primary: argonHasher{params: argon2id.DefaultParams}}, nil
	default:
		return nil, fmt.Errorf("hash: unknown algorithm %q", algo)
	}
}

type verifier struct {
	primary Hasher
}

func (v verifier) Hash(password string) (string, error) {
	return v.primary.Hash(password)
}

func (v verifier) Verify(password, encoded string) (bool, error) {
	if strings.HasPrefix(encoded, "$argon2id$") {
		return argonHasher{}.Verify(password, encoded)
	}
	return bcryptHasher{}.Verify(password, encoded)
}

type bcryptHasher struct {
	cost int
}

func (h bcryptHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (bcryptHasher) Verify(password, encoded string) (bool, error) {
	// bcrypt never produced a hash for a longer input.
	if len(password) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type argonHasher struct {
	params *argon2id.Params
}

func (h argonHasher) Hash(password string) (string, error) {
	return argon2id.CreateHash(password, h.params)
}

func (argonHasher) Verify(password, encoded string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encoded)
}
