package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PrincipalLoader resolves identifiers to principals
type PrincipalLoader struct {
	store  IdentityStore
	logger Logger
}

// NewPrincipalLoader returns a loader backed by the identity store
func NewPrincipalLoader(store IdentityStore, logger ...Logger) *PrincipalLoader {
	l := &PrincipalLoader{store: store, logger: defLogger{}}
	if len(logger) > 0 {
		l.logger = normalizeLogger(logger[0])
	}
	return l
}

// LoadBySubjectID resolves a token subject. An unknown subject, or one
// that is not a record id, yields a nil principal and no error. Store
// failures are returned.
func (l *PrincipalLoader) LoadBySubjectID(ctx context.Context, subjectID string) (*Principal, error) {
	id, err := uuid.Parse(strings.TrimSpace(subjectID))
	if err != nil {
		l.logger.Debug("subject is not a record id", "subject", subjectID)
		return nil, nil
	}

	user, err := l.store.GetByID(ctx, id)
	if err != nil {
		if IsIdentityNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load principal").
			WithMetadata(map[string]any{"subject": subjectID})
	}
	if user == nil {
		return nil, nil
	}

	l.warnOnUnknownRole(user)
	return NewPrincipal(user), nil
}

// LoadByLoginName resolves a unique login name. It fails with
// ErrIdentityNotFound when no record matches.
func (l *PrincipalLoader) LoadByLoginName(ctx context.Context, loginName string) (*Principal, error) {
	user, err := l.store.GetByUsername(ctx, strings.TrimSpace(loginName))
	if err != nil {
		if IsIdentityNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load principal")
	}
	if user == nil {
		return nil, ErrIdentityNotFound
	}

	l.warnOnUnknownRole(user)
	return NewPrincipal(user), nil
}

func (l *PrincipalLoader) warnOnUnknownRole(user *User) {
	if user.Role != "" && !user.Role.IsValid() {
		l.logger.Warn("unknown role, using baseline", "user_id", user.ID.String(), "role", string(user.Role))
	}
}
