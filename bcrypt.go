package auth

import (
	"errors"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return hashWithCost(password, passwordHashCost())
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return goerrors.Wrap(err, goerrors.CategoryAuth, "unable to compare password hash").
			WithTextCode(goerrors.TextCodeInvalidCredentials)
	}
	return nil
}

func hashWithCost(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", goerrors.Wrap(err, goerrors.CategoryValidation, "password is too long").
				WithCode(goerrors.CodeBadRequest)
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	return string(h), nil
}

// BcryptCredentialStore is the bcrypt backed CredentialStore
type BcryptCredentialStore struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewBcryptCredentialStore returns a store hashing with the given cost.
// A cost outside bcrypt's range falls back to the build default.
func NewBcryptCredentialStore(cost ...int) *BcryptCredentialStore {
	c := passwordHashCost()
	if len(cost) > 0 && cost[0] >= bcrypt.MinCost && cost[0] <= bcrypt.MaxCost {
		c = cost[0]
	}
	return &BcryptCredentialStore{cost: c}
}

// Cost returns the bcrypt work factor
func (s *BcryptCredentialStore) Cost() int {
	return s.cost
}

// Hash implements CredentialStore.
func (s *BcryptCredentialStore) Hash(secret string) (string, error) {
	return hashWithCost(secret, s.cost)
}

// Verify implements CredentialStore.
func (s *BcryptCredentialStore) Verify(secret, hash string) bool {
	if hash == "" {
		s.VerifyDummy(secret)
		return false
	}
	return ComparePasswordAndHash(secret, hash) == nil
}

// VerifyDummy implements CredentialStore.
func (s *BcryptCredentialStore) VerifyDummy(secret string) {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.cost)
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash == nil {
		return
	}
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(secret))
}
