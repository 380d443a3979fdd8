// Package http provides cinject integration for the standard net/http
// package.
//
// Example usage:
//
//	root := cinject.New()
//	root.RegisterType(cinject.TypeOf[*UserController](), NewUserController, cinject.Transient())
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("GET /users/{id}", cinjecthttp.Handle((*UserController).GetByID))
//
//	http.ListenAndServe(":8080", cinjecthttp.ChildMiddleware(root)(mux))
package http

import (
	"fmt"
	"net/http"

	"github.com/junioryono/cinject"
	"go.uber.org/zap"
)

// RequestToken resolves the current *http.Request from a request container.
var RequestToken = cinject.NewToken[*http.Request]("http.request")

// Initializer prepares a request container before the handler runs.
type Initializer func(c *cinject.Container, r *http.Request) error

// Config holds the configuration for the child middleware.
type Config struct {
	// ErrorHandler is called when an initializer fails.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// Initializers run in order after the request container is created.
	Initializers []Initializer

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

// WithInitializer adds an initializer.
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

func defaultConfig() *Config {
	cfg := &Config{Logger: zap.NewNop()}
	cfg.fillDefaults()
	return cfg
}

func (cfg *Config) fillDefaults() {
	if cfg.ErrorHandler != nil {
		return
	}
	logger := cfg.Logger
	cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("failed to initialize request container", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// ChildMiddleware returns middleware that creates a child of parent for each
// request, registers the request under RequestToken, and attaches the child
// to the request context.
func ChildMiddleware(parent *cinject.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.fillDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			child := parent.CreateChild()
			r = r.WithContext(cinject.WithContainer(r.Context(), child))
			child.RegisterConstant(RequestToken, r)

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

// PathValue resolves the request from r and returns its path wildcard named
// key. ServeMux sets wildcards on the request it was given, so values are
// available once the mux below ChildMiddleware has matched a pattern.
func PathValue(r cinject.Resolver, key string) (string, error) {
	v, err := r.Resolve(RequestToken)
	if err != nil {
		return "", err
	}

	req, ok := v.(*http.Request)
	if !ok || req == nil {
		return "", fmt.Errorf("unexpected request %T", v)
	}

	return req.PathValue(key), nil
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	PanicHandler           func(http.ResponseWriter, *http.Request, any)
	ContainerErrorHandler  func(http.ResponseWriter, *http.Request, error)
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)

	Logger *zap.Logger
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for recovered panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the handler for requests without a container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the handler for controller resolution failures.
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
	cfg := &HandlerConfig{Logger: zap.NewNop()}
	cfg.fillDefaults()
	return cfg
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

// Handle wraps a controller method. T is resolved from the container attached
// to the request context and the method is called with it.
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := &HandlerConfig{Logger: zap.NewNop()}
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

// Wrap returns Handle(fn) as an http.Handler.
func Wrap[T any](fn func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.Handler {
	return Handle(fn, opts...)
}
