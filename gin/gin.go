// Package gin provides cinject integration for the Gin web framework.
//
// Example usage:
//
//	root := cinject.New()
//	root.RegisterType(cinject.TypeOf[*UserController](), NewUserController, cinject.Transient())
//
//	g := gin.New()
//	g.Use(cinjectgin.ChildMiddleware(root))
//
//	g.GET("/users/:id", cinjectgin.Handle((*UserController).GetByID))
package gin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/cinject"
	"go.uber.org/zap"
)

// ContextToken resolves the *gin.Context of the current request. It must not
// be retained past the request, since Gin reuses contexts.
var ContextToken = cinject.NewToken[*gin.Context]("gin.context")

// Initializer prepares a request container before the handler runs.
type Initializer func(*cinject.Container, *gin.Context) error

// Config holds the configuration for the child middleware.
type Config struct {
	// ErrorHandler is called when an initializer fails.
	// If nil, a default handler aborting with 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// Initializers run after the child is created, in the order they were
	// added. They can be used to register user claims, tenant data, etc.
	Initializers []Initializer

	Logger *zap.Logger
}

// Option configures the child middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for initializer failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithInitializer adds an initializer.
//
// Example:
//
//	cinjectgin.WithInitializer(func(c *cinject.Container, ctx *gin.Context) error {
//	    c.RegisterConstant(TenantToken, ctx.GetHeader("X-Tenant"))
//	    return nil
//	})
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

func abortInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
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
		cfg.ErrorHandler = func(c *gin.Context, err error) {
			logger.Error("failed to initialize request container", zap.String("path", c.FullPath()), zap.Error(err))
			abortInternal(c)
		}
	}
	return cfg
}

// ChildMiddleware creates a gin.HandlerFunc that creates a child of parent
// for each request. The child holds the *gin.Context under ContextToken and
// is attached to the request context, where cinject.FromContext finds it.
func ChildMiddleware(parent *cinject.Container, opts ...Option) gin.HandlerFunc {
	cfg := newConfig(opts)

	return func(c *gin.Context) {
		child := parent.CreateChild()
		c.Request = c.Request.WithContext(cinject.WithContainer(c.Request.Context(), child))
		child.RegisterConstant(ContextToken, c)

		for _, init := range cfg.Initializers {
			if err := init(child, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// Param resolves the *gin.Context from r and returns the path parameter
// named name.
func Param(r cinject.Resolver, name string) (string, error) {
	v, err := r.Resolve(ContextToken)
	if err != nil {
		return "", err
	}

	c, ok := v.(*gin.Context)
	if !ok || c == nil {
		return "", fmt.Errorf("unexpected gin context %T", v)
	}

	return c.Param(name), nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	PanicRecovery bool

	PanicHandler           func(*gin.Context, any)
	ContainerErrorHandler  func(*gin.Context, error)
	ResolutionErrorHandler func(*gin.Context, error)

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
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// container.
func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
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
		cfg.PanicHandler = func(c *gin.Context, v any) {
			logger.Error("panic in handler", zap.Any("panic", v))
			abortInternal(c)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(c *gin.Context, err error) {
			logger.Error("failed to get container from context", zap.Error(err))
			abortInternal(c)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(c *gin.Context, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			abortInternal(c)
		}
	}
	return cfg
}

// Handle wraps a controller method. T is resolved from the container attached
// to the request context.
//
// The method signature should be: func(T, *gin.Context)
func Handle[T any](method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := newHandlerConfig(opts)

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(c, v)
				}
			}()
		}

		container, err := cinject.FromContext(c.Request.Context())
		if err != nil {
			cfg.ContainerErrorHandler(c, err)
			return
		}

		controller, err := cinject.Resolve[T](container)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
