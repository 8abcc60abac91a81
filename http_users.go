package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserControllerRoutes struct {
	Me   string
	List string
}

// UserController serves the protected user endpoints. It relies on the
// security chain having resolved the request principal.
type UserController struct {
	Logger     Logger
	Store      CredentialStore
	Lister     UserLister
	ContextKey string
	Routes     *UserControllerRoutes
}

type UserControllerOption func(*UserController) *UserController

func WithUserControllerLogger(logger Logger) UserControllerOption {
	return func(c *UserController) *UserController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithUserContextKey(key string) UserControllerOption {
	return func(c *UserController) *UserController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func NewUserController(store CredentialStore, lister UserLister, opts ...UserControllerOption) *UserController {
	c := &UserController{
		Logger:     defLogger{},
		Store:      store,
		Lister:     lister,
		ContextKey: "user",
		Routes: &UserControllerRoutes{
			Me:   "/users/me",
			List: "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// RegisterUserRoutes mounts the protected user endpoints
func RegisterUserRoutes(app fiber.Router, store CredentialStore, lister UserLister, opts ...UserControllerOption) *UserController {
	controller := NewUserController(store, lister, opts...)

	app.Get(controller.Routes.Me, controller.Me)
	app.Get(controller.Routes.List, controller.List)

	return controller
}

func (u *UserController) Me(c *fiber.Ctx) error {
	ac, ok := FromFiber(c, u.ContextKey)
	if !ok {
		return ErrorResponse(c, u.Logger, ErrUnauthenticated)
	}

	id, err := uuid.Parse(ac.Identity.ID())
	if err != nil {
		return ErrorResponse(c, u.Logger, ErrUnauthenticated)
	}

	user, err := u.Store.FindByID(c.UserContext(), id)
	if err != nil {
		return ErrorResponse(c, u.Logger, err)
	}

	return c.JSON(user)
}

func (u *UserController) List(c *fiber.Ctx) error {
	if u.Lister == nil {
		return ErrorResponse(c, u.Logger, ErrInternal)
	}

	users, err := u.Lister.List(c.UserContext())
	if err != nil {
		return ErrorResponse(c, u.Logger, err)
	}

	return c.JSON(users)
}
