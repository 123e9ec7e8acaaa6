package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Auther registers identities and logs them in, issuing bearer tokens
type Auther struct {
	store            IdentityStore
	tokens           TokenService
	credentials      CredentialStore
	logger           Logger
	activitySink     ActivitySink
	deterministicIDs bool
	now              func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store IdentityStore, tokens TokenService, credentials CredentialStore) *Auther {
	if credentials == nil {
		credentials = NewBcryptCredentialStore()
	}
	return &Auther{
		store:        store,
		tokens:       tokens,
		credentials:  credentials,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithDeterministicIDs derives record ids from the contact address
// instead of generating random ones.
func (s *Auther) WithDeterministicIDs(enabled bool) *Auther {
	s.deterministicIDs = enabled
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Register creates an identity record with the baseline role and
// returns a token for it. It fails with ErrIdentityConflict when the
// contact is already registered.
//
// The existence check and the insert are separate store calls. Two
// concurrent registrations for the same contact can both pass the check;
// the unique constraints on email and username reject the second insert,
// which is reported as the same conflict.
func (s *Auther) Register(ctx context.Context, loginName, contact, secret string) (string, error) {
	contact = normalizeEmail(contact)
	meta := map[string]any{"email": contact}

	if contact == "" {
		err := goerrors.New("email is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidationFailed)
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, "", withError(meta, err))
		return "", err
	}

	existing, err := s.store.GetByEmail(ctx, contact)
	switch {
	case err == nil && existing != nil:
		s.logger.Info("register rejected, email taken", "email", contact)
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, "", withError(meta, ErrIdentityConflict))
		return "", ErrIdentityConflict
	case err != nil && !IsIdentityNotFound(err):
		s.logger.Error("register lookup failed", "error", err)
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, "", withError(meta, err))
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing identity")
	}

	hash, err := s.credentials.Hash(secret)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, "", withError(meta, err))
		return "", err
	}

	user := &User{
		Username:     getUsername(loginName, contact),
		Email:        contact,
		PasswordHash: hash,
		Role:         BaselineRole,
	}

	if s.deterministicIDs {
		if id, err := hashid.NewUUID(contact); err == nil {
			user.ID = id
		}
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, "", withError(meta, err))
		if IsConflict(err) {
			s.logger.Info("register rejected by unique constraint", "email", contact)
			return "", err
		}
		s.logger.Error("register create failed", "error", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create identity")
	}

	token, err := s.tokens.Issue(created.ID.String(), created.Email)
	if err != nil {
		s.logger.Error("register token issue failed", "error", err)
		s.emitAuthEvent(ctx, ActivityEventRegisterFailure, created.ID.String(), withError(meta, err))
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventRegisterSuccess, created.ID.String(), meta)
	return token, nil
}

// Login verifies the secret for the contact and returns a token. An
// unknown contact and a wrong secret both fail with
// ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, contact, secret string) (string, error) {
	contact = normalizeEmail(contact)
	meta := map[string]any{"email": contact}

	user, err := s.store.GetByEmail(ctx, contact)
	if err != nil && !IsIdentityNotFound(err) {
		s.logger.Error("login lookup failed", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", withError(meta, err))
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity")
	}
	if err != nil || user == nil {
		s.credentials.VerifyDummy(secret)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", withError(meta, ErrInvalidCredentials))
		return "", ErrInvalidCredentials
	}

	if !s.credentials.Verify(secret, user.PasswordHash) {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), withError(meta, ErrInvalidCredentials))
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID.String(), user.Email)
	if err != nil {
		s.logger.Error("login token issue failed", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), withError(meta, err))
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.ID.String(), meta)
	return token, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

func withError(meta map[string]any, err error) map[string]any {
	out := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	out["error"] = err.Error()

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode != "" {
		out["text_code"] = rich.TextCode
	}
	return out
}

func getUsername(username, email string) string {
	if username = strings.TrimSpace(username); username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
