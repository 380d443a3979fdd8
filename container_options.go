package cinject

import (
	"go.uber.org/zap"
)

// Option configures a container tree. Options are given to New; children
// created with CreateChild share their root's options.
type Option interface {
	apply(*options)
}

// options holds container configuration.
type options struct {
	strategy ParamStrategy
	metadata *Metadata
	logger   *zap.Logger
	observer Observer
}

func defaultOptions() *options {
	return &options{
		strategy: DefaultParamStrategy(),
		metadata: DefaultMetadata(),
		logger:   zap.NewNop(),
		observer: NopObserver{},
	}
}

// optionFunc adapts a function to Option.
type optionFunc func(*options)

func (f optionFunc) apply(opts *options) {
	f(opts)
}

// WithParamStrategy selects how constructor dependencies are discovered.
// Invalid strategies are ignored.
func WithParamStrategy(strategy ParamStrategy) Option {
	return optionFunc(func(opts *options) {
		if strategy.IsValid() {
			opts.strategy = strategy
		}
	})
}

// WithMetadata sets the constructor metadata table read by the container.
func WithMetadata(metadata *Metadata) Option {
	return optionFunc(func(opts *options) {
		if metadata != nil {
			opts.metadata = metadata
		}
	})
}

// WithLogger sets the logger. Registrations and resolutions are logged at
// debug level.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	})
}

// WithObserver sets the observer notified of resolutions.
func WithObserver(observer Observer) Option {
	return optionFunc(func(opts *options) {
		if observer != nil {
			opts.observer = observer
		}
	})
}

// RegisterOption configures a factory or type registration.
type RegisterOption interface {
	applyRegisterOption(*registerOptions)
}

// registerOptions holds registration configuration.
type registerOptions struct {
	transient bool
}

// registerOptionFunc adapts a function to RegisterOption.
type registerOptionFunc func(*registerOptions)

func (f registerOptionFunc) applyRegisterOption(opts *registerOptions) {
	f(opts)
}

// Transient makes the registration produce a new value on every resolution
// instead of memoizing the first one.
func Transient() RegisterOption {
	return registerOptionFunc(func(opts *registerOptions) {
		opts.transient = true
	})
}
