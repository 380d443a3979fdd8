// Package fiber provides cinject integration for the Fiber web framework.
//
// ChildMiddleware stores a per-request child container in fiber.Ctx.Locals
// and attaches it to the user context.
//
// Example usage:
//
//	root := cinject.New()
//	root.RegisterType(cinject.TypeOf[*UserController](), NewUserController, cinject.Transient())
//
//	app := fiber.New()
//	app.Use(cinjectfiber.ChildMiddleware(root))
//
//	app.Get("/users/:id", cinjectfiber.Handle((*UserController).GetByID))
package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/junioryono/cinject"
	"go.uber.org/zap"
)

// containerKey is the fiber.Ctx.Locals key of the request container.
const containerKey = "cinject_container"

// CtxToken resolves the *fiber.Ctx of the current request. Fiber reuses
// contexts, so it must not be retained past the request.
var CtxToken = cinject.NewToken[*fiber.Ctx]("fiber.ctx")

// Initializer prepares a request container before the handler runs.
type Initializer func(*cinject.Container, *fiber.Ctx) error

// Config holds the configuration for the child middleware.
type Config struct {
	// ErrorHandler is called when an initializer fails.
	// If nil, a 500 JSON error is sent.
	ErrorHandler func(*fiber.Ctx, error) error

	Initializers []Initializer

	Logger *zap.Logger
}

// Option configures the child middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for initializer failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithInitializer adds an initializer. Initializers run in the order they
// are added.
func WithInitializer(init Initializer) Option {
	return func(c *Config) {
		c.Initializers = append(c.Initializers, init)
	}
}

// WithLogger sets the logger used by the default error handler.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("failed to initialize request container", zap.String("path", c.Path()), zap.Error(err))
			return internalError(c)
		}
	}
	return cfg
}

// ChildMiddleware creates a Fiber middleware that creates a child of parent
// for each request. The child holds the *fiber.Ctx under CtxToken.
func ChildMiddleware(parent *cinject.Container, opts ...Option) fiber.Handler {
	cfg := newConfig(opts)

	return func(c *fiber.Ctx) error {
		child := parent.CreateChild()
		c.SetUserContext(cinject.WithContainer(c.UserContext(), child))
		c.Locals(containerKey, child)
		child.RegisterConstant(CtxToken, c)

		for _, init := range cfg.Initializers {
			if err := init(child, c); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		return c.Next()
	}
}

// FromContext returns the request container stored by ChildMiddleware.
//
// Example:
//
//	c, err := cinjectfiber.FromContext(ctx)
//	userService := cinject.MustResolve[*UserService](c)
func FromContext(c *fiber.Ctx) (*cinject.Container, error) {
	container, ok := c.Locals(containerKey).(*cinject.Container)
	if !ok || container == nil {
		return nil, cinject.ErrNoContainerInContext
	}
	return container, nil
}

// Param resolves the *fiber.Ctx from r and returns a copy of the route
// parameter named name.
func Param(r cinject.Resolver, name string) (string, error) {
	v, err := r.Resolve(CtxToken)
	if err != nil {
		return "", err
	}

	c, ok := v.(*fiber.Ctx)
	if !ok || c == nil {
		return "", fmt.Errorf("unexpected fiber context %T", v)
	}

	return utils.CopyString(c.Params(name)), nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	PanicHandler           func(*fiber.Ctx, any) error
	ContainerErrorHandler  func(*fiber.Ctx, error) error
	ResolutionErrorHandler func(*fiber.Ctx, error) error

	Logger *zap.Logger
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// container.
func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

// WithHandlerLogger sets the logger used by the default handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func newHandlerConfig(opts []HandlerOption) *HandlerConfig {
	cfg := &HandlerConfig{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.Logger
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(c *fiber.Ctx, v any) error {
			logger.Error("panic in handler", zap.Any("panic", v))
			return internalError(c)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("failed to get container from context", zap.Error(err))
			return internalError(c)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c *fiber.Ctx, err error) error {
			logger.Error("failed to resolve controller", zap.Error(err))
			return internalError(c)
		}
	}
	return cfg
}

// Handle wraps a controller method. T is resolved from the container stored
// in fiber.Ctx.Locals.
//
// The method signature should be: func(T, *fiber.Ctx) error
func Handle[T any](method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := newHandlerConfig(opts)

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := FromContext(c)
		if containerErr != nil {
			return cfg.ContainerErrorHandler(c, containerErr)
		}

		controller, resolveErr := cinject.Resolve[T](container)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
