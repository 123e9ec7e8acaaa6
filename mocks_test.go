package auth_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	auth "github.com/dhaaraai/go-auth"
)

// MockIdentityStore implements auth.IdentityStore
type MockIdentityStore struct {
	mock.Mock
}

func (m *MockIdentityStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockIdentityStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockIdentityStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockIdentityStore) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Hash(secret string) (string, error) {
	args := m.Called(secret)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialStore) Verify(secret, hash string) bool {
	args := m.Called(secret, hash)
	return args.Bool(0)
}

func (m *MockCredentialStore) VerifyDummy(secret string) {
	m.Called(secret)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Register(ctx context.Context, loginName, contact, secret string) (string, error) {
	args := m.Called(ctx, loginName, contact, secret)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Login(ctx context.Context, contact, secret string) (string, error) {
	args := m.Called(ctx, contact, secret)
	return args.String(0), args.Error(1)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
