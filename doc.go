// Package cinject provides a hierarchical dependency injection container for Go
// applications.
//
// # Overview
//
// A Container maps keys to registrations. Containers form a tree: a child
// created with CreateChild sees every registration of its ancestors and may
// shadow them with its own. The library provides:
//   - Three kinds of keys: opaque symbols, Go types and plain names
//   - Constants, memoized or transient factories, and type registrations
//   - On-the-fly construction of unregistered struct types, shared by the tree
//   - Constructor dependencies declared explicitly or read by reflection
//   - Circular dependency detection
//   - Thread-safe operations
//
// # Keys
//
// Symbols are unique per call to Symbol, so two packages can never collide on
// them. Tokens are symbols carrying the type of the value they resolve to:
//
//	var DatabaseURL = cinject.NewToken[string]("database-url")
//
//	c := cinject.New()
//	c.RegisterConstant(DatabaseURL, "postgres://localhost/app")
//
//	url, err := cinject.ResolveToken(c, DatabaseURL)
//
// A Go type is its own key. TypeOf[T]() returns it:
//
//	c.RegisterType(cinject.TypeOf[Store](), NewSQLStore)
//	store, err := cinject.Resolve[Store](c)
//
// Name keys are plain strings and are mostly useful for configuration values.
//
// # Registrations
//
// RegisterConstant binds a value. RegisterFactory binds a function called with
// a Resolver; its first successful result is memoized unless the Transient
// option is given. RegisterType binds a constructor whose dependencies are
// resolved from the registering container:
//
//	c.RegisterFactory(cinject.Name("now"), func(r cinject.Resolver) (any, error) {
//	    return time.Now(), nil
//	}, cinject.Transient())
//
// Registering a key again on the same container replaces the previous
// registration.
//
// # Constructors and Dependencies
//
// A constructor is a function returning T or (T, error). Its dependencies are
// the keys declared with Injectable, positionally aligned with its parameters:
//
//	var _ = cinject.MustInjectable(NewUserService, DatabaseURL, cinject.TypeOf[*Logger]())
//
// Without a declaration, the ReflectFallback strategy uses the parameter types
// as type keys, while ExplicitOnly passes zero values. The strategy is chosen
// per tree with WithParamStrategy, or process-wide with the
// CINJECT_PARAM_STRATEGY environment variable.
//
// # On-the-fly Resolution
//
// Resolving a type key with no registration anywhere in the ancestor chain
// builds the type, provided it is a struct, a pointer to a struct, or has a
// constructor declared with Injectable. Its dependencies are resolved from the
// root, and the instance is registered on the root as a constant: every
// container of the tree shares it from then on.
//
// # Context
//
// WithContainer and FromContext carry a container through a context.Context,
// which is how the chi subpackage hands per-request children to handlers.
//
// # Error Handling
//
// cinject provides detailed error types for different failure scenarios:
//   - ResolutionError: nothing registered and not constructible
//   - CircularDependencyError: a key depends on itself
//   - ConstructorError: unusable constructor or mismatched dependency
//   - TypeMismatchError: the resolved value does not have the requested type
//
// Errors returned by factories and constructors are returned unchanged.
//
// # Observability
//
// Containers log at debug level through the zap logger given with WithLogger
// and report resolutions to the Observer given with WithObserver. The metrics
// subpackage provides a Prometheus observer.
package cinject
