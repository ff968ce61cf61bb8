package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the fixed hashing cost factor
const DefaultBcryptCost = 12

// saltBytes keeps password+salt inside bcrypt's 72 byte input limit
const saltBytes = 16

// BcryptHasher implements PasswordAuthenticator with a per-record salt
// concatenated to the password before hashing.
type BcryptHasher struct {
	cost int
}

var _ PasswordAuthenticator = BcryptHasher{}

// NewBcryptHasher returns a hasher with the given cost factor. Out of range
// values fall back to DefaultBcryptCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return BcryptHasher{cost: cost}
}

// GenerateSalt returns a fresh random hex-encoded salt
func (h BcryptHasher) GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate salt")
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword will generate a salted password hash
func (h BcryptHasher) HashPassword(password, salt string) (string, error) {
	if password == "" || salt == "" {
		return "", ErrNoEmptyString
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password+salt), h.cost)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	return string(hash), nil
}

// ComparePasswordAndHash will validate the given cleartext password and salt
// against the stored hash. A mismatch is a normal outcome, reported as
// ErrMismatchedHashAndPassword, never a fault. The bcrypt comparison runs in
// constant time.
func (h BcryptHasher) ComparePasswordAndHash(password, salt, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+salt)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}
	return nil
}

// HashPassword hashes with the default cost factor
func HashPassword(password, salt string) (string, error) {
	return NewBcryptHasher(DefaultBcryptCost).HashPassword(password, salt)
}

// ComparePasswordAndHash verifies with the default hasher
func ComparePasswordAndHash(password, salt, hash string) error {
	return NewBcryptHasher(DefaultBcryptCost).ComparePasswordAndHash(password, salt, hash)
}
