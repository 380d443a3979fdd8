package cinject

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory produces the value bound to a key. The Resolver resolves further
// keys from the container the resolution was started on.
type Factory func(r Resolver) (any, error)

// Container is a node in a tree of containers. It owns its registrations and
// reads those of its ancestors.
//
// Types resolved without a registration are built once and cached on the
// root, so every container of the tree shares them. All methods are safe for
// concurrent use.
type Container struct {
	id     string
	parent *Container
	root   *Container
	opts   *options
	logger *zap.Logger

	registrations *registrations

	// Per-key locks serializing on-the-fly resolution. Only used on roots.
	locks sync.Map // map[Key]*sync.Mutex
}

// New creates a root container.
//
//	c := cinject.New(cinject.WithParamStrategy(cinject.ExplicitOnly))
func New(opts ...Option) *Container {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	c := newContainer(nil, o)
	c.logger.Debug("container created")
	return c
}

func newContainer(parent *Container, opts *options) *Container {
	c := &Container{
		id:            uuid.NewString(),
		parent:        parent,
		opts:          opts,
		registrations: newRegistrations(),
	}

	if parent == nil {
		c.root = c
	} else {
		c.root = parent.root
	}

	c.logger = opts.logger.Named("cinject").With(zap.String("container", c.id))
	return c
}

// CreateChild creates a container whose parent is c. The child sees every
// registration of its ancestors, including those made after its creation,
// and can shadow them with its own.
func (c *Container) CreateChild() *Container {
	child := newContainer(c, c.opts)
	child.logger.Debug("child container created", zap.String("parent", c.id))
	return child
}

// ID returns the unique identifier of the container.
func (c *Container) ID() string {
	return c.id
}

// Root returns the root of the container's tree. The root of a root is
// itself.
func (c *Container) Root() *Container {
	return c.root
}

// Parent returns the parent container, or nil for a root.
func (c *Container) Parent() *Container {
	return c.parent
}

// IsRoot reports whether c has no parent.
func (c *Container) IsRoot() bool {
	return c.parent == nil
}

// ParamStrategy returns the parameter strategy of the container's tree.
func (c *Container) ParamStrategy() ParamStrategy {
	return c.opts.strategy
}

// RegisterConstant binds value to k. A previous registration of k on this
// container is replaced.
func (c *Container) RegisterConstant(k Keyed, value any) {
	key := keyOf(k)
	c.register(key, constant(value), "constant")
}

// RegisterFactory binds factory to k and returns c for chaining.
//
// By default the first value the factory produces successfully is memoized
// and returned from then on; with Transient the factory is called on every
// resolution. The factory is called with a Resolver for the container
// Resolve was called on, which may be a descendant of c.
//
// Dependencies must be resolved through that Resolver. Resolving through a
// container from inside the factory starts a new resolution, so a cycle back
// to this key is not detected and blocks forever.
func (c *Container) RegisterFactory(k Keyed, factory Factory, opts ...RegisterOption) *Container {
	key := keyOf(k)

	o := &registerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyRegisterOption(o)
		}
	}

	switch {
	case factory == nil:
		c.register(key, failing(&ResolutionError{Key: key, Cause: ErrFactoryNil}), "factory")
	case o.transient:
		c.register(key, transient(factory), "transient factory")
	default:
		c.register(key, singleton(factory), "singleton factory")
	}

	return c
}

// RegisterType binds k to instances of class and returns c for chaining.
//
// class is a constructor function (func(deps...) T or func(deps...) (T, error)),
// a reflect.Type or a type key. Its dependencies are looked up now, with the
// container's ParamStrategy, and resolved from c each time an instance is
// built. Invalid classes fail when k is resolved.
//
//	c.RegisterType(RepositoryToken, NewSQLRepository, cinject.Transient())
func (c *Container) RegisterType(k Keyed, class any, opts ...RegisterOption) *Container {
	key := keyOf(k)

	info, err := c.opts.metadata.class(class)
	if err != nil {
		c.logger.Debug("invalid type registration", zap.Stringer("key", key), zap.Error(err))
		c.register(key, failing(err), "type")
		return c
	}

	resolve := prepareTypeResolver(info, c)
	return c.RegisterFactory(key, func(r Resolver) (any, error) {
		return resolve(pathOf(r))
	}, opts...)
}

func (c *Container) register(key Key, reg registration, kind string) {
	if !key.IsValid() {
		reg = failing(&ResolutionError{Key: key, Cause: ErrKeyInvalid})
	}

	c.registrations.set(key, reg)
	c.logger.Debug("registered", zap.Stringer("key", key), zap.String("kind", kind))
}

// Has reports whether k is registered on c or one of its ancestors. Types
// that would be resolved on the fly are not reported until they have been.
func (c *Container) Has(k Keyed) bool {
	_, ok := c.lookup(keyOf(k))
	return ok
}

// Resolve returns the value bound to k.
//
// The registration of the nearest container, starting from c and walking up
// its ancestors, is used. When there is none and k is a type key of a
// constructible type, the type is built with its dependencies resolved from
// the root, and the instance is registered as a constant on the root so that
// the whole tree shares it. Otherwise a *ResolutionError is returned.
//
// Errors returned by constructors and factories are returned unchanged.
func (c *Container) Resolve(k Keyed) (any, error) {
	key := keyOf(k)
	start := time.Now()

	value, err := c.resolve(key, nil)
	if err != nil {
		c.logger.Debug("resolution failed", zap.Stringer("key", key), zap.Error(err))
		c.opts.observer.OnError(key, err)
		return nil, err
	}

	c.opts.observer.OnResolved(key, time.Since(start))
	return value, nil
}

func (c *Container) resolve(key Key, p *path) (any, error) {
	if !key.IsValid() {
		return nil, &ResolutionError{Key: key, Cause: ErrKeyInvalid}
	}

	p, err := p.push(key)
	if err != nil {
		return nil, err
	}

	if reg, ok := c.lookup(key); ok {
		return reg(&resolution{container: c, path: p})
	}

	switch key.Kind() {
	case KindType:
		if c.opts.metadata.constructible(key.Type()) {
			return c.root.resolveOnTheFly(key, p)
		}
	case KindSymbol, KindName, KindInvalid:
	}

	return nil, &ResolutionError{Key: key, Cause: ErrKeyNotFound}
}

// lookup finds the registration of key on c or its nearest ancestor.
func (c *Container) lookup(key Key) (registration, bool) {
	for current := c; current != nil; current = current.parent {
		if reg, ok := current.registrations.get(key); ok {
			return reg, true
		}
	}

	return nil, false
}

// resolveOnTheFly builds key's type with dependencies resolved from the root
// and caches the instance as a constant on the root. It must be called on a
// root.
func (c *Container) resolveOnTheFly(key Key, p *path) (any, error) {
	lock, _ := c.locks.LoadOrStore(key, &sync.Mutex{})
	mu := lock.(*sync.Mutex)

	mu.Lock()
	defer mu.Unlock()

	// Another resolution may have finished while we waited.
	if reg, ok := c.registrations.get(key); ok {
		return reg(&resolution{container: c, path: p})
	}

	class, err := c.opts.metadata.class(key.Type())
	if err != nil {
		return nil, err
	}

	instance, err := prepareTypeResolver(class, c)(p)
	if err != nil {
		return nil, err
	}

	c.registrations.set(key, constant(instance))
	c.logger.Debug("resolved on the fly", zap.Stringer("key", key))
	c.opts.observer.OnConstructed(key)

	return instance, nil
}

// String identifies the container in logs.
func (c *Container) String() string {
	if c.IsRoot() {
		return fmt.Sprintf("Container(%s, root)", c.id)
	}
	return fmt.Sprintf("Container(%s, parent %s)", c.id, c.parent.id)
}

// Resolve resolves the type key of T from c.
//
// Example:
//
//	service, err := cinject.Resolve[*UserService](c)
func Resolve[T any](c *Container) (T, error) {
	var zero T

	if c == nil {
		return zero, ErrContainerNil
	}

	key := TypeOf[T]()
	value, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}

	return assertAs[T](value, key.Type(), "type assertion")
}

// ResolveToken resolves token from c and returns the value with the token's
// type.
//
// Example:
//
//	cfg, err := cinject.ResolveToken(c, ConfigToken)
func ResolveToken[T any](c *Container, token Token[T]) (T, error) {
	var zero T

	if c == nil {
		return zero, ErrContainerNil
	}

	value, err := c.Resolve(token)
	if err != nil {
		return zero, err
	}

	return assertAs[T](value, reflect.TypeOf((*T)(nil)).Elem(), "token type assertion")
}

// MustResolve is like Resolve but panics if the type cannot be resolved.
func MustResolve[T any](c *Container) T {
	value, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", TypeOf[T](), err))
	}

	return value
}

// MustResolveToken is like ResolveToken but panics if the token cannot be
// resolved.
func MustResolveToken[T any](c *Container, token Token[T]) T {
	value, err := ResolveToken(c, token)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", token, err))
	}

	return value
}

func assertAs[T any](value any, expected reflect.Type, context string) (T, error) {
	var zero T

	// A nil value is a valid binding for nilable types.
	if value == nil {
		return zero, nil
	}

	result, ok := value.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Expected: expected,
			Actual:   reflect.TypeOf(value),
			Context:  context,
		}
	}

	return result, nil
}
