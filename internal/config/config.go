// Package config loads the authd settings from defaults, a YAML file,
// environment variables and command line flags, in that order.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	auth "github.com/dhaaraai/go-auth"
	"github.com/dhaaraai/go-auth/internal/db"
)

// EnvPrefix is stripped from environment variables before mapping.
// DHAARA_AUTH_AUTH__SIGNING_KEY maps to auth.signing_key.
const EnvPrefix = "DHAARA_AUTH_"

// Settings is the full authd configuration
type Settings struct {
	Auth     auth.Options `koanf:"auth"`
	Server   Server       `koanf:"server"`
	Database db.Options   `koanf:"database"`
	Log      Log          `koanf:"log"`
	Debug    bool         `koanf:"debug"`
}

// Server holds the HTTP listener settings
type Server struct {
	Addr            string        `koanf:"addr"`
	BasePath        string        `koanf:"base_path"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Log holds the logger settings
type Log struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Defaults returns the flattened default values
func Defaults() map[string]any {
	opts := auth.DefaultOptions()
	return map[string]any{
		"auth.signing_method":     opts.SigningMethod,
		"auth.context_key":        opts.ContextKey,
		"auth.token_expiration":   opts.TokenExpiration,
		"auth.token_lookup":       opts.TokenLookup,
		"auth.auth_scheme":        opts.AuthScheme,
		"auth.bcrypt_cost":        opts.BcryptCost,
		"server.addr":             ":8080",
		"server.base_path":        "/api/auth",
		"server.read_timeout":     "10s",
		"server.write_timeout":    "10s",
		"server.shutdown_timeout": "15s",
		"server.auto_migrate":     true,
		"database.dsn":            db.MemoryDSN,
		"log.format":              "json",
		"log.level":               "info",
		"debug":                   false,
	}
}

// Load builds Settings. path may be empty, in which case no file is read.
// flags may be nil; only flags the user changed override earlier layers.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// FlagKeys maps command line flag names to configuration keys
var FlagKeys = map[string]string{
	"addr":         "server.addr",
	"base-path":    "server.base_path",
	"auto-migrate": "server.auto_migrate",
	"dsn":          "database.dsn",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"debug":        "debug",
}

// flagKey skips flags with no configuration key
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := FlagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}

// envKey maps DHAARA_AUTH_SERVER__ADDR to server.addr
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the server and log settings. The auth options are
// checked by the commands that issue tokens, so database maintenance runs
// without a signing key.
func (s Settings) Validate() error {
	err := validation.ValidateStruct(&s.Server,
		validation.Field(&s.Server.Addr, validation.Required),
		validation.Field(&s.Server.BasePath, validation.Required, validation.By(func(value any) error {
			if !strings.HasPrefix(value.(string), "/") {
				return validation.NewError("validation_base_path", "must start with /")
			}
			return nil
		})),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid server configuration")
	}

	if err := validation.Validate(s.Log.Format, validation.In("json", "text")); err != nil {
		return goerrors.New("log.format must be json or text", goerrors.CategoryValidation).
			WithTextCode("VALIDATION_FAILED")
	}

	return nil
}
