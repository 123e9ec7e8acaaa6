package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeIdentityNotFound is returned when no identity record matches
	TextCodeIdentityNotFound = "IDENTITY_NOT_FOUND"
	// TextCodeIdentityConflict is returned when a contact or login name is taken
	TextCodeIdentityConflict = "IDENTITY_CONFLICT"
	// TextCodeValidationFailed is returned for rejected request payloads
	TextCodeValidationFailed = "VALIDATION_FAILED"
	// TextCodeAuthRequired is returned by guards on anonymous requests
	TextCodeAuthRequired = "AUTHENTICATION_REQUIRED"
	// TextCodeInsufficientRole is returned by guards when the role is too low
	TextCodeInsufficientRole = "INSUFFICIENT_ROLE"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrIdentityConflict is returned when registering a contact or
// login name that is already taken
var ErrIdentityConflict = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeIdentityConflict)

// ErrInvalidCredentials is the single failure login reports for both an
// unknown contact and a wrong secret.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeInvalidCredentials)

// ErrMismatchedHashAndPassword is the hash comparison failure
var ErrMismatchedHashAndPassword = ErrInvalidCredentials

// ErrNoEmptyString rejects empty secrets
var ErrNoEmptyString = goerrors.New("password can not be an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(goerrors.TextCodeEmptyPassword)

// ErrTokenExpired is returned by Parse for tokens past their expiry
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeTokenExpired)

// ErrTokenMalformed is returned by Parse for any other invalid token
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeTokenMalformed)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(goerrors.TextCodeClaimsMappingError)

// ErrUnauthenticated is returned by guards on anonymous requests
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeAuthRequired)

// ErrForbidden is returned by guards when the principal lacks a role
var ErrForbidden = goerrors.New("insufficient role", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeInsufficientRole)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, goerrors.TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if hasTextCode(err, goerrors.TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}

// IsConflict reports whether err is a registration conflict
func IsConflict(err error) bool {
	return goerrors.HasCategory(err, goerrors.CategoryConflict)
}

// IsInvalidCredentials reports whether err is a login failure
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, goerrors.TextCodeInvalidCredentials)
}

// IsIdentityNotFound reports whether err is a missing identity record
func IsIdentityNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

func hasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
