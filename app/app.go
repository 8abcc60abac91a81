// Package app assembles the HTTP service: persistence, account commands,
// the security chain and the routes.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	auth "github.com/goliatone/go-auth-stateless"
	"github.com/goliatone/go-auth-stateless/activitymap"
	"github.com/goliatone/go-auth-stateless/mailer"
	"github.com/goliatone/go-auth-stateless/middleware/policy"
	"github.com/goliatone/go-auth-stateless/repository"
)

type App struct {
	cfg          auth.Config
	logger       auth.Logger
	repo         *repository.Manager
	hasher       auth.PasswordHasher
	mailer       auth.Mailer
	activitySink auth.ActivitySink
	rules        []policy.Rule
	tokenOpts    []auth.TokenServiceOption
	accountOpts  []auth.AccountOption

	tokens *auth.TokenServiceImpl
	auther *auth.Auther
	chain  *auth.SecurityChain
	srv    *fiber.App
}

type Option func(*App)

func WithLogger(logger auth.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMailer(m auth.Mailer) Option {
	return func(a *App) {
		if m != nil {
			a.mailer = m
		}
	}
}

func WithHasher(h auth.PasswordHasher) Option {
	return func(a *App) {
		a.hasher = h
	}
}

func WithActivitySink(sink auth.ActivitySink) Option {
	return func(a *App) {
		a.activitySink = sink
	}
}

// WithRules replaces the default access table
func WithRules(rules []policy.Rule) Option {
	return func(a *App) {
		a.rules = rules
	}
}

func WithTokenOptions(opts ...auth.TokenServiceOption) Option {
	return func(a *App) {
		a.tokenOpts = append(a.tokenOpts, opts...)
	}
}

func WithAccountOptions(opts ...auth.AccountOption) Option {
	return func(a *App) {
		a.accountOpts = append(a.accountOpts, opts...)
	}
}

// New wires every component; the returned app is ready to Listen
func New(cfg auth.Config, repo *repository.Manager, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if repo == nil {
		return nil, errors.New("app: repository is required")
	}
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.logger == nil {
		a.logger = auth.NewStdLogger()
	}
	if a.mailer == nil {
		a.mailer = mailer.NewLogMailer(a.logger)
	}
	if a.activitySink == nil {
		a.activitySink = activitymap.NewLoggerSink(a.logger)
	}

	a.build()

	return a, nil
}

func (a *App) build() {
	store := a.repo.Users()

	a.tokens = auth.NewTokenServiceFromConfig(a.cfg, a.logger)
	for _, opt := range a.tokenOpts {
		opt(a.tokens)
	}

	provider := auth.NewUserProvider(store, a.hasher).WithLogger(a.logger)
	a.auther = auth.NewAuthenticator(provider, a.tokens).
		WithLogger(a.logger).
		WithActivitySink(a.activitySink)

	serverCfg := fiber.Config{
		AppName:               "go-auth-stateless",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          a.errorHandler,
	}

	chainOpts := []auth.SecurityChainOption{
		auth.WithSecurityLogger(a.logger),
		auth.WithRouting(serverCfg.CaseSensitive, serverCfg.StrictRouting),
	}
	if a.rules != nil {
		chainOpts = append(chainOpts, auth.WithRules(a.rules))
	}
	a.chain = auth.NewSecurityChain(a.cfg, a.auther, chainOpts...)

	accountOpts := append([]auth.AccountOption{
		auth.WithAccountLogger(a.logger),
		auth.WithAccountActivitySink(a.activitySink),
		auth.WithVerificationTTL(a.cfg.GetVerificationExpiration()),
		auth.WithHashid(a.cfg.GetUseHashid()),
	}, a.accountOpts...)

	commands := auth.AccountCommands{
		Register: auth.NewRegisterUserHandler(store, a.hasher, a.mailer, accountOpts...),
		Verify:   auth.NewVerifyAccountHandler(store, accountOpts...),
		Resend:   auth.NewResendVerificationHandler(store, a.mailer, accountOpts...),
	}

	a.srv = fiber.New(serverCfg)

	a.srv.Use(requestid.New())
	a.srv.Use(recover.New())
	a.chain.Install(a.srv)

	a.srv.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth.RegisterAuthRoutes(a.srv,
		auth.WithControllerLogger(a.logger),
		auth.WithAuthenticator(a.auther, a.tokens),
		auth.WithAccountCommands(commands),
	)

	auth.RegisterUserRoutes(a.srv, store, store,
		auth.WithUserControllerLogger(a.logger),
		auth.WithUserContextKey(a.cfg.GetContextKey()),
	)
}

func (a *App) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return auth.ErrorResponse(c, a.logger, err)
}

// Server exposes the fiber app, mostly for tests and extra routes
func (a *App) Server() *fiber.App {
	return a.srv
}

func (a *App) Authenticator() *auth.Auther {
	return a.auther
}

func (a *App) SecurityChain() *auth.SecurityChain {
	return a.chain
}

func (a *App) Listen(addr string) error {
	a.logger.Info("http server listening", "addr", addr)
	return a.srv.Listen(addr)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("http server shutting down")
	return a.srv.ShutdownWithContext(ctx)
}
