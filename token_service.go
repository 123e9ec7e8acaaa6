package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultSigningMethod is used when the configuration names none
const DefaultSigningMethod = "HS256"

// TokenService issues and validates bearer tokens
type TokenService interface {
	// Issue signs a token for the subject and contact identifiers
	Issue(subjectID, contact string) (string, error)
	// Validate reports whether the token verifies and has not expired
	Validate(tokenString string) bool
	// ExtractSubject returns the subject of a valid token
	ExtractSubject(tokenString string) (string, error)
	// Parse returns the claims of a valid token
	Parse(tokenString string) (*JWTClaims, error)
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithClock replaces the time source used for iat, exp and validation
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithSigningMethod selects an HMAC signing method by name
func WithSigningMethod(name string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if m, ok := hmacMethod(name); ok {
			ts.method = m
		}
	}
}

// WithIssuer sets the iss claim and requires it on validation
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithAudience sets the aud claim and requires it on validation
func WithAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = jwt.ClaimStrings(audience)
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = normalizeLogger(logger)
	}
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	method     *jwt.SigningMethodHMAC
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

var _ TokenService = (*TokenServiceImpl)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	ts := &TokenServiceImpl{
		signingKey: signingKey,
		method:     jwt.SigningMethodHS256,
		ttl:        ttl,
		logger:     defLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// NewTokenServiceFromConfig builds a TokenService from Config, where
// the token expiration is expressed in hours.
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenServiceImpl {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		time.Duration(cfg.GetTokenExpiration())*time.Hour,
		WithSigningMethod(cfg.GetSigningMethod()),
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
		WithTokenLogger(logger),
	)
}

// TTL returns the validity window of issued tokens
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue implements TokenService.
func (ts *TokenServiceImpl) Issue(subjectID, contact string) (string, error) {
	if subjectID == "" {
		return "", errors.New("token subject must not be empty", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subjectID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:     subjectID,
		Contact: contact,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.method, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate implements TokenService.
func (ts *TokenServiceImpl) Validate(tokenString string) bool {
	_, err := ts.Parse(tokenString)
	if err != nil {
		ts.logger.Debug("token rejected", "error", err)
		return false
	}
	return true
}

// ExtractSubject implements TokenService.
func (ts *TokenServiceImpl) ExtractSubject(tokenString string) (string, error) {
	claims, err := ts.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject() == "" {
		return "", ErrUnableToMapClaims
	}
	return claims.Subject(), nil
}

// Parse implements TokenService.
func (ts *TokenServiceImpl) Parse(tokenString string) (*JWTClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, ts.parserOptions()...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(ErrTokenMalformed.Code)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrUnableToMapClaims
}

func (ts *TokenServiceImpl) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{ts.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
		// rejects signatures whose spare trailing bits were altered
		jwt.WithStrictDecoding(),
	}
	if ts.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		opts = append(opts, jwt.WithAudience(ts.audience[0]))
	}
	return opts
}

func hmacMethod(name string) (*jwt.SigningMethodHMAC, bool) {
	if name == "" {
		name = DefaultSigningMethod
	}
	m, ok := jwt.GetSigningMethod(strings.ToUpper(name)).(*jwt.SigningMethodHMAC)
	return m, ok
}
