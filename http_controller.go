package auth

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// TokenTypeBearer is the token type reported to clients
const TokenTypeBearer = "Bearer"

// Authenticator registers and logs in identities
type Authenticator interface {
	Register(ctx context.Context, loginName, contact, secret string) (string, error)
	Login(ctx context.Context, contact, secret string) (string, error)
}

var _ Authenticator = (*Auther)(nil)

type AuthControllerRoutes struct {
	Register string
	Login    string
	Me       string
}

type AuthController struct {
	Debug  bool
	Logger Logger
	Routes *AuthControllerRoutes
	Auther Authenticator
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

// WithControllerDebug dumps sanitized payloads at debug level
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithControllerRoutes overrides the route paths
func WithControllerRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = &routes
		return c
	}
}

func NewAuthController(auther Authenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/register",
			Login:    "/login",
			Me:       "/me",
		},
		Auther: auther,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the router
func RegisterAuthRoutes(app fiber.Router, auther Authenticator, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(auther, opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost).Name("auth.register.post")
	app.Post(controller.Routes.Login, controller.LoginPost).Name("auth.login.post")
	app.Get(controller.Routes.Me, RequirePrincipal(), controller.MeGet).Name("auth.me.get")

	return controller
}

// AuthResponse is returned on successful register and login
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.EmailFormat,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// RegisterRequest payload
type RegisterRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Length(0, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 72)),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(RegisterRequest{
			Username: payload.Username,
			Email:    payload.Email,
		}))
	}

	token, err := a.Auther.Register(c.UserContext(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(AuthResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
	})
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := bindAndValidate(c, payload); err != nil {
		return err
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusOK).JSON(AuthResponse{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
	})
}

// MeGet returns the request principal
func (a *AuthController) MeGet(c *fiber.Ctx) error {
	p, ok := PrincipalFromFiber(c)
	if !ok {
		return ErrUnauthenticated
	}
	return c.JSON(p)
}

type validatable interface {
	Validate() error
}

func bindAndValidate(c *fiber.Ctx, payload validatable) error {
	if err := c.BodyParser(payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(goerrors.TextCodeDataParseError)
	}

	if err := payload.Validate(); err != nil {
		return goerrors.FromOzzoValidation(err, "invalid request payload").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidationFailed)
	}

	return nil
}
