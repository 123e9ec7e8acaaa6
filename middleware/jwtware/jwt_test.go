package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dhaaraai/go-auth/middleware/jwtware"
)

type principal struct {
	ID string
}

// MockValidator implements jwtware.TokenValidator
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(token string) bool {
	args := m.Called(token)
	return args.Bool(0)
}

func (m *MockValidator) ExtractSubject(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type recorder struct {
	mu       sync.Mutex
	outcomes []jwtware.Outcome
}

func (r *recorder) listen(_ *fiber.Ctx, o jwtware.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) last(t *testing.T) jwtware.Outcome {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.outcomes)
	return r.outcomes[len(r.outcomes)-1]
}

var users = map[string]*principal{
	"user-1": {ID: "user-1"},
}

func resolveFromMap(_ context.Context, subject string) (any, error) {
	if p, ok := users[subject]; ok {
		return p, nil
	}
	return nil, nil
}

// newApp mounts the middleware and a handler echoing the principal id
// from the fiber locals, or "anonymous".
func newApp(t *testing.T, cfg jwtware.Config) (*fiber.App, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg.OutcomeListeners = append(cfg.OutcomeListeners, rec.listen)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	mw := jwtware.New(cfg)
	handler := func(c *fiber.Ctx) error {
		key := cfg.ContextKey
		if key == "" {
			key = "user"
		}
		if p, ok := c.Locals(key).(*principal); ok {
			return c.SendString(p.ID)
		}
		return c.SendString("anonymous")
	}
	// mounted per route so param lookups see the route params
	app.Get("/", mw, handler)
	app.Get("/t/:token", mw, handler)
	return app, rec
}

func doGet(t *testing.T, app *fiber.App, target string, headers map[string]string) string {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew_AuthenticatesValidToken(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	app, rec := newApp(t, jwtware.Config{TokenValidator: validator, Resolver: resolveFromMap})

	body := doGet(t, app, "/", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, "user-1", body)

	outcome := rec.last(t)
	assert.Equal(t, jwtware.StateAuthenticated, outcome.State)
	assert.Equal(t, "user-1", outcome.Subject)
	assert.Equal(t, []jwtware.State{
		jwtware.StateStart,
		jwtware.StateTokenExtracted,
		jwtware.StateValid,
		jwtware.StatePrincipalResolved,
		jwtware.StateAuthenticated,
	}, outcome.Trace)
	validator.AssertExpectations(t)
}

func TestNew_FailOpenPaths(t *testing.T) {
	tests := []struct {
		name   string
		header string
		setup  func(v *MockValidator)
		want   jwtware.State
	}{
		{
			name:  "no header",
			setup: func(v *MockValidator) {},
			want:  jwtware.StateNoCredentials,
		},
		{
			name:   "basic scheme",
			header: "Basic dXNlcjpwYXNz",
			setup:  func(v *MockValidator) {},
			want:   jwtware.StateNoCredentials,
		},
		{
			name:   "scheme without space",
			header: "Bearergood",
			setup:  func(v *MockValidator) {},
			want:   jwtware.StateNoCredentials,
		},
		{
			name:   "empty token",
			header: "Bearer ",
			setup:  func(v *MockValidator) {},
			want:   jwtware.StateNoCredentials,
		},
		{
			name:   "invalid token",
			header: "Bearer bad",
			setup: func(v *MockValidator) {
				v.On("Validate", "bad").Return(false)
			},
			want: jwtware.StateInvalid,
		},
		{
			name:   "unknown subject",
			header: "Bearer ghost",
			setup: func(v *MockValidator) {
				v.On("Validate", "ghost").Return(true)
				v.On("ExtractSubject", "ghost").Return("user-404", nil)
			},
			want: jwtware.StatePrincipalAbsent,
		},
		{
			name:   "subject extraction error",
			header: "Bearer broken",
			setup: func(v *MockValidator) {
				v.On("Validate", "broken").Return(true)
				v.On("ExtractSubject", "broken").Return("", errors.New("claims"))
			},
			want: jwtware.StateFault,
		},
		{
			name:   "validator panics",
			header: "Bearer boom",
			setup: func(v *MockValidator) {
				v.On("Validate", "boom").Panic("validator exploded")
			},
			want: jwtware.StateFault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockValidator)
			tt.setup(validator)

			app, rec := newApp(t, jwtware.Config{TokenValidator: validator, Resolver: resolveFromMap})

			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}

			body := doGet(t, app, "/", headers)
			assert.Equal(t, "anonymous", body)

			outcome := rec.last(t)
			assert.Equal(t, tt.want, outcome.State)
			assert.True(t, outcome.State.Terminal())
			assert.True(t, outcome.State.Anonymous())
			validator.AssertExpectations(t)
		})
	}
}

func TestNew_ResolverErrorIsFault(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	storeDown := errors.New("store unavailable")
	app, rec := newApp(t, jwtware.Config{
		TokenValidator: validator,
		Resolver: func(context.Context, string) (any, error) {
			return nil, storeDown
		},
	})

	assert.Equal(t, "anonymous", doGet(t, app, "/", map[string]string{"Authorization": "Bearer good"}))

	outcome := rec.last(t)
	assert.Equal(t, jwtware.StateFault, outcome.State)
	assert.ErrorIs(t, outcome.Err, storeDown)
}

func TestNew_SchemeIsCaseInsensitive(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	app, _ := newApp(t, jwtware.Config{TokenValidator: validator, Resolver: resolveFromMap})

	assert.Equal(t, "user-1", doGet(t, app, "/", map[string]string{"Authorization": "bearer good"}))
}

func TestNew_CustomTokenLookup(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	tests := []struct {
		name    string
		lookup  string
		target  string
		headers map[string]string
	}{
		{name: "query", lookup: "query:auth_token", target: "/?auth_token=good"},
		{name: "param", lookup: "param:token", target: "/t/good"},
		{name: "cookie", lookup: "cookie:jwt", target: "/", headers: map[string]string{"Cookie": "jwt=good"}},
		{name: "custom header and scheme", lookup: "header:X-Auth", target: "/", headers: map[string]string{"X-Auth": "Token good"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := jwtware.Config{
				TokenValidator: validator,
				Resolver:       resolveFromMap,
				TokenLookup:    tt.lookup,
				ContextKey:     "principal",
			}
			if strings.HasPrefix(tt.lookup, "header:X-Auth") {
				cfg.AuthScheme = "Token"
			}
			app, _ := newApp(t, cfg)
			assert.Equal(t, "user-1", doGet(t, app, tt.target, tt.headers))
		})
	}
}

func TestNew_FilterSkipsPipeline(t *testing.T) {
	validator := new(MockValidator)

	app, rec := newApp(t, jwtware.Config{
		TokenValidator: validator,
		Resolver:       resolveFromMap,
		Filter:         func(*fiber.Ctx) bool { return true },
	})

	assert.Equal(t, "anonymous", doGet(t, app, "/", map[string]string{"Authorization": "Bearer good"}))
	assert.Empty(t, rec.outcomes)
	validator.AssertNotCalled(t, "Validate", mock.Anything)
}

func TestNew_ContextEnricher(t *testing.T) {
	type ctxKey struct{}

	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(jwtware.New(jwtware.Config{
		TokenValidator: validator,
		Resolver:       resolveFromMap,
		ContextEnricher: func(ctx context.Context, p any) context.Context {
			return context.WithValue(ctx, ctxKey{}, p)
		},
	}))
	app.Get("/", func(c *fiber.Ctx) error {
		p, ok := c.UserContext().Value(ctxKey{}).(*principal)
		if !ok {
			return c.SendString("anonymous")
		}
		return c.SendString(p.ID)
	})

	assert.Equal(t, "user-1", doGet(t, app, "/", map[string]string{"Authorization": "Bearer good"}))
	assert.Equal(t, "anonymous", doGet(t, app, "/", nil))
}

func TestNew_AnonymousPathIsRepeatable(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "bad").Return(false)

	app, rec := newApp(t, jwtware.Config{TokenValidator: validator, Resolver: resolveFromMap})

	for i := 0; i < 3; i++ {
		assert.Equal(t, "anonymous", doGet(t, app, "/", map[string]string{"Authorization": "Bearer bad"}))
	}
	require.Len(t, rec.outcomes, 3)
	for _, o := range rec.outcomes {
		assert.Equal(t, jwtware.StateInvalid, o.State)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("requires validator", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{Resolver: resolveFromMap})
		})
	})

	t.Run("requires resolver", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{TokenValidator: new(MockValidator)})
		})
	})

	t.Run("fills defaults", func(t *testing.T) {
		cfg := jwtware.GetDefaultConfig(jwtware.Config{
			TokenValidator: new(MockValidator),
			Resolver:       resolveFromMap,
		})
		assert.Equal(t, "user", cfg.ContextKey)
		assert.Equal(t, "header:Authorization", cfg.TokenLookup)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.NotNil(t, cfg.ContextEnricher)
		assert.NotNil(t, cfg.Logger)
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization, query:token,bogus,cookie:jwt", "Bearer")
	assert.Len(t, extractors, 3)
}

func TestNew_NoGoroutineLeak(t *testing.T) {
	validator := new(MockValidator)
	validator.On("Validate", "good").Return(true)
	validator.On("ExtractSubject", "good").Return("user-1", nil)

	app, _ := newApp(t, jwtware.Config{TokenValidator: validator, Resolver: resolveFromMap})

	// first request starts the server's background workers
	doGet(t, app, "/", nil)
	ignore := goleak.IgnoreCurrent()

	for i := 0; i < 10; i++ {
		doGet(t, app, "/", map[string]string{"Authorization": "Bearer good"})
	}

	goleak.VerifyNone(t, ignore)
}
