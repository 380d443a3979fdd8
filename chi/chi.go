// Package chi provides cinject integration for the Chi router.
//
// This package provides middleware creating a child container per request
// and type-safe handler wrappers resolving controllers from it.
//
// Example usage:
//
//	root := cinject.New()
//	root.RegisterType(cinject.TypeOf[*AuthController](), NewAuthController)
//
//	r := chi.NewRouter()
//	r.Use(cinjectchi.ChildMiddleware(root))
//
//	r.Post("/login", cinjectchi.Handle((*AuthController).Login))
//	r.Get("/users/{id}", cinjectchi.Handle((*UserController).GetByID))
package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/junioryono/cinject"
	"go.uber.org/zap"
)

// Keys registered on every request container by ChildMiddleware.
var (
	// RequestToken resolves the current *http.Request.
	RequestToken = cinject.NewToken[*http.Request]("http.request")

	// RouteContextToken resolves the chi routing context of the request. Its
	// URL parameters are filled in once the route has matched.
	RouteContextToken = cinject.NewToken[*chi.Context]("chi.route-context")
)

// Initializer prepares a request container, typically by registering values
// derived from the request.
type Initializer func(c *cinject.Container, r *http.Request) error

// Config holds the configuration for the child middleware.
type Config struct {
	// ErrorHandler is called when an initializer fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Initializers run in order after the request container is created.
	Initializers []Initializer

	// Logger receives request container failures.
	Logger *zap.Logger
}

// Option configures the child middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for initializer failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithInitializer adds an initializer. Multiple initializers are executed in
// the order they are added.
func WithInitializer(init Initializer) Option {
	return func(c *Config) {
		c.Initializers = append(c.Initializers, init)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: zap.NewNop(),
	}
}

// ChildMiddleware creates a Chi middleware that creates a child of parent
// for each request. The child is attached to the request context and can be
// retrieved using cinject.FromContext.
//
// Values registered on the child are only visible to the request. Types
// resolved on the fly are still cached on the root and shared.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(cinjectchi.ChildMiddleware(root))
func ChildMiddleware(parent *cinject.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to initialize request container", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			child := parent.CreateChild()

			// Attach the child to the request context
			r = r.WithContext(cinject.WithContainer(r.Context(), child))

			child.RegisterConstant(RequestToken, r)
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				child.RegisterConstant(RouteContextToken, rctx)
			}

			for _, init := range cfg.Initializers {
				if err := init(child, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// URLParam resolves the route context from r and returns the URL parameter
// named key. It is meant to be called from factories registered with the
// request container in scope.
func URLParam(r cinject.Resolver, key string) (string, error) {
	v, err := r.Resolve(RouteContextToken)
	if err != nil {
		return "", err
	}

	rctx, ok := v.(*chi.Context)
	if !ok || rctx == nil {
		return "", fmt.Errorf("unexpected route context %T", v)
	}

	return rctx.URLParam(key), nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when the request has no container.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Logger is used by the default handlers.
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
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for requests without a
// container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for controller resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
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

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		Logger: zap.NewNop(),
	}
}

func (cfg *HandlerConfig) fillDefaults() {
	logger := cfg.Logger

	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
			logger.Error("panic in handler", zap.Any("panic", v))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ContainerErrorHandler == nil {
		cfg.ContainerErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to get container from context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// Handle wraps a controller method for type-safe resolution from the request
// container. The controller type T is resolved from the container attached
// to the request context.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", cinjectchi.Handle((*UserController).GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.fillDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := cinject.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := cinject.Resolve[T](c)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
