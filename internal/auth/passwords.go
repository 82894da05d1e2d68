package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by Compare when the presented
// password does not match the stored credential.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordScheme abstracts how credentials are stored and verified so
// the comparison strategy can be swapped without touching the handlers.
type PasswordScheme interface {
	// Hash transforms a plaintext password into its stored form.
	Hash(plain string) (string, error)
	// Compare checks a plaintext password against the stored form.
	Compare(stored, plain string) error
}

// SchemeFromName resolves a configured scheme name.
func SchemeFromName(name string) (PasswordScheme, error) {
	switch name {
	case "plaintext":
		return PlaintextScheme{}, nil
	case "bcrypt":
		return BcryptScheme{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
}

// PlaintextScheme stores and compares passwords verbatim. This
// reproduces the behavior of the system this service replaces and is a
// known weakness; deployments should prefer bcrypt.
type PlaintextScheme struct{}

func (PlaintextScheme) Hash(plain string) (string, error) {
	return plain, nil
}

func (PlaintextScheme) Compare(stored, plain string) error {
	if stored != plain {
		return ErrPasswordMismatch
	}
	return nil
}

// BcryptScheme stores salted bcrypt hashes.
type BcryptScheme struct {
	Cost int
}

func (s BcryptScheme) Hash(plain string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s BcryptScheme) Compare(stored, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
