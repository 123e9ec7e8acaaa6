package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the shortest accepted HMAC key, in bytes
const MinSigningKeyLength = 32

// Options is the Config implementation loaded from configuration files
type Options struct {
	SigningKey       string   `koanf:"signing_key" json:"-"`
	SigningMethod    string   `koanf:"signing_method" json:"signing_method"`
	ContextKey       string   `koanf:"context_key" json:"context_key"`
	TokenExpiration  int      `koanf:"token_expiration" json:"token_expiration"`
	TokenLookup      string   `koanf:"token_lookup" json:"token_lookup"`
	AuthScheme       string   `koanf:"auth_scheme" json:"auth_scheme"`
	Issuer           string   `koanf:"issuer" json:"issuer"`
	Audience         []string `koanf:"audience" json:"audience"`
	BcryptCost       int      `koanf:"bcrypt_cost" json:"bcrypt_cost"`
	DeterministicIDs bool     `koanf:"deterministic_ids" json:"deterministic_ids"`
}

var _ Config = Options{}

// DefaultOptions returns options with every field but the signing key set
func DefaultOptions() Options {
	return Options{
		SigningMethod:   DefaultSigningMethod,
		ContextKey:      DefaultContextKey,
		TokenExpiration: 24,
		TokenLookup:     "header:Authorization",
		AuthScheme:      TokenTypeBearer,
		BcryptCost:      passwordHashCost(),
	}
}

func (o Options) GetSigningKey() string    { return o.SigningKey }
func (o Options) GetSigningMethod() string { return o.SigningMethod }
func (o Options) GetContextKey() string    { return o.ContextKey }
func (o Options) GetTokenExpiration() int  { return o.TokenExpiration }
func (o Options) GetTokenLookup() string   { return o.TokenLookup }
func (o Options) GetAuthScheme() string    { return o.AuthScheme }
func (o Options) GetIssuer() string        { return o.Issuer }
func (o Options) GetAudience() []string    { return o.Audience }

// Validate will run validation rules
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&o.SigningMethod, validation.Required, validation.By(func(value any) error {
			if _, ok := hmacMethod(strings.TrimSpace(value.(string))); !ok {
				return validation.NewError("validation_signing_method", "must be one of HS256, HS384, HS512")
			}
			return nil
		})),
		validation.Field(&o.TokenExpiration, validation.Required, validation.Min(1)),
		validation.Field(&o.AuthScheme, validation.Required),
		validation.Field(&o.TokenLookup, validation.Required),
		validation.Field(&o.BcryptCost, validation.Min(4), validation.Max(31)),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid auth configuration")
	}
	return nil
}
