package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Authenticator is what the login endpoint needs
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, Identity, error)
}

// AccountCommands groups the account lifecycle handlers
type AccountCommands struct {
	Register *RegisterUserHandler
	Verify   *VerifyAccountHandler
	Resend   *ResendVerificationHandler
}

type AuthControllerRoutes struct {
	Register string
	Verify   string
	Resend   string
	Login    string
}

type AuthController struct {
	Logger   Logger
	Auther   Authenticator
	Commands AccountCommands
	Routes   *AuthControllerRoutes
	TokenTTL func() int64
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithAuthenticator(a Authenticator, tokens TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		if tokens != nil {
			c.TokenTTL = func() int64 { return int64(tokens.TTL().Seconds()) }
		}
		return c
	}
}

func WithAccountCommands(cmds AccountCommands) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Commands = cmds
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/auth/register",
			Verify:   "/auth/verify",
			Resend:   "/auth/resend",
			Login:    "/auth/login",
		},
		TokenTTL: func() int64 { return 0 },
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Commands.Register == nil || c.Commands.Verify == nil || c.Commands.Resend == nil {
		panic("Missing account commands in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the public auth endpoints
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.Verify, controller.VerifyAccount)
	app.Post(controller.Routes.Resend, controller.ResendVerification)
	app.Post(controller.Routes.Login, controller.LoginPost)

	return controller
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)
	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, Wrap(err, ErrValidation))
	}

	var created *User
	err := a.Commands.Register.Execute(c.UserContext(), RegisterUserMessage{
		Username:   payload.Username,
		Email:      payload.Email,
		Password:   payload.Password,
		OnResponse: func(u *User) { created = u },
	})
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(created)
}

// VerifyAccountPayload is the verification body
type VerifyAccountPayload struct {
	Email            string `json:"email" form:"email"`
	VerificationCode string `json:"verificationCode" form:"verificationCode"`
}

func (a *AuthController) VerifyAccount(c *fiber.Ctx) error {
	payload := new(VerifyAccountPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, Wrap(err, ErrValidation))
	}

	err := a.Commands.Verify.Execute(c.UserContext(), VerifyAccountMessage{
		Email:            payload.Email,
		VerificationCode: payload.VerificationCode,
	})
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account verified"})
}

// ResendVerificationPayload is the resend body
type ResendVerificationPayload struct {
	Email string `json:"email" form:"email"`
}

func (a *AuthController) ResendVerification(c *fiber.Ctx) error {
	payload := new(ResendVerificationPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, Wrap(err, ErrValidation))
	}

	if err := a.Commands.Resend.Execute(c.UserContext(), ResendVerificationMessage{Email: payload.Email}); err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "a new code is sent if the account awaits verification"})
}

// LoginPayload is the login body. Identifier is an email or a username.
type LoginPayload struct {
	Identifier string `json:"identifier" form:"identifier"`
	Password   string `json:"password" form:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return a.fail(c, ErrInvalidCredentials)
	}

	// a malformed login is reported like any other failed login
	if err := payload.Validate(); err != nil {
		return a.fail(c, ErrInvalidCredentials)
	}

	token, _, err := a.Auther.Login(c.UserContext(), payload.Identifier, payload.Password)
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Token:     token,
		ExpiresIn: a.TokenTTL(),
	})
}

func (a *AuthController) fail(c *fiber.Ctx, err error) error {
	return ErrorResponse(c, a.Logger, err)
}

// ErrorResponse renders err as JSON. Unknown errors become a generic 500
// and only their category is exposed.
func ErrorResponse(c *fiber.Ctx, logger Logger, err error) error {
	richErr := AsError(err)
	logger = normalizeLogger(logger)

	switch richErr.Category {
	case goerrors.CategoryInternal, goerrors.CategoryOperation:
		logger.Error("request failed",
			"path", c.Path(),
			"error", err,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		return c.Status(ErrInternal.Code).JSON(fiber.Map{
			"error": ErrInternal.Message,
			"code":  ErrInternal.TextCode,
		})
	}

	logger.Debug("request rejected",
		"path", c.Path(),
		"code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	body := fiber.Map{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	}
	if details, ok := richErr.Metadata["errors"]; ok {
		body["details"] = details
	}

	return c.Status(richErr.Code).JSON(body)
}
