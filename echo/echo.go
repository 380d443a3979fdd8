// Package echo provides cinject integration for the Echo web framework.
//
// ChildMiddleware gives every request its own child container, and Handle
// resolves a controller from it.
//
// Example usage:
//
//	root := cinject.New()
//	root.RegisterType(cinject.TypeOf[*UserController](), NewUserController, cinject.Transient())
//
//	e := echo.New()
//	e.Use(cinjectecho.ChildMiddleware(root))
//
//	e.GET("/users/:id", cinjectecho.Handle((*UserController).GetByID))
package echo

import (
	"fmt"
	"net/http"

	"github.com/junioryono/cinject"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ContextToken resolves the echo.Context of the current request.
var ContextToken = cinject.NewToken[echo.Context]("echo.context")

// Initializer prepares a request container before the handler runs.
type Initializer func(*cinject.Container, echo.Context) error

// Config holds the configuration for the child middleware.
type Config struct {
	// ErrorHandler is called when an initializer fails.
	// If nil, an HTTP 500 error is returned to Echo's error handling.
	ErrorHandler func(echo.Context, error) error

	Initializers []Initializer

	Logger *zap.Logger
}

// Option configures the child middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for initializer failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
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

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(c echo.Context, err error) error {
			logger.Error("failed to initialize request container", zap.String("path", c.Path()), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	return cfg
}

// ChildMiddleware creates an Echo middleware that creates a child of parent
// for each request. The child holds the echo.Context under ContextToken and
// is attached to the request context, where cinject.FromContext finds it.
func ChildMiddleware(parent *cinject.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			child := parent.CreateChild()
			c.SetRequest(c.Request().WithContext(cinject.WithContainer(c.Request().Context(), child)))
			child.RegisterConstant(ContextToken, c)

			for _, init := range cfg.Initializers {
				if err := init(child, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// Param resolves the echo.Context from r and returns the path parameter
// named name.
func Param(r cinject.Resolver, name string) (string, error) {
	v, err := r.Resolve(ContextToken)
	if err != nil {
		return "", err
	}

	c, ok := v.(echo.Context)
	if !ok {
		return "", fmt.Errorf("unexpected echo context %T", v)
	}

	return c.Param(name), nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(echo.Context, error) error

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
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// container.
func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
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
		cfg.PanicHandler = func(c echo.Context, v any) error {
			logger.Error("panic in handler", zap.Any("panic", v))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c echo.Context, err error) error {
			logger.Error("failed to get container from context", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c echo.Context, err error) error {
			logger.Error("failed to resolve controller", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		}
	}
	return cfg
}

// Handle wraps a controller method. T is resolved from the container attached
// to the request context.
//
// The method signature should be: func(T, echo.Context) error
func Handle[T any](method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := newHandlerConfig(opts)

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := cinject.FromContext(c.Request().Context())
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
