// Package digbridge connects cinject containers with go.uber.org/dig
// containers, so applications can migrate one constructor at a time.
//
// Example usage:
//
//	dc := dig.New()
//	_ = dc.Provide(NewLegacyDatabase)
//
//	c := cinject.New()
//	digbridge.Import(c, dc, reflect.TypeOf((*LegacyDatabase)(nil)))
//
//	// cinject constructors may now depend on *LegacyDatabase.
//	c.RegisterType(cinject.TypeOf[*UserService](), NewUserService)
package digbridge

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/cinject"
	"go.uber.org/dig"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ErrTypeNil is returned for nil types.
var ErrTypeNil = errors.New("type cannot be nil")

// Import registers, on c, a memoized factory for each type that extracts
// the value from dc. Types are registered under their type keys.
//
// A dig.Container is not safe for concurrent use. Each imported type is
// extracted at most once, but first resolutions of different types from
// several goroutines reach dc concurrently; resolve them during startup.
func Import(c *cinject.Container, dc *dig.Container, types ...reflect.Type) error {
	if c == nil {
		return cinject.ErrContainerNil
	}

	for _, t := range types {
		if t == nil {
			return ErrTypeNil
		}

		serviceType := t
		c.RegisterFactory(cinject.TypeKey(serviceType), func(cinject.Resolver) (any, error) {
			return Extract(dc, serviceType)
		})
	}

	return nil
}

// ImportAs registers, on c under key, a memoized factory extracting a value
// of type t from dc.
func ImportAs(c *cinject.Container, key cinject.Keyed, dc *dig.Container, t reflect.Type) error {
	if c == nil {
		return cinject.ErrContainerNil
	}
	if t == nil {
		return ErrTypeNil
	}

	c.RegisterFactory(key, func(cinject.Resolver) (any, error) {
		return Extract(dc, t)
	})
	return nil
}

// Extract invokes dc with a function taking a single t and returns the
// value dig passed to it.
func Extract(dc *dig.Container, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrTypeNil
	}

	var result any

	// Build the extraction function dynamically
	fnType := reflect.FuncOf([]reflect.Type{t}, []reflect.Type{errType}, false)
	fn := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		result = args[0].Interface()
		return []reflect.Value{reflect.Zero(errType)}
	})

	if err := dc.Invoke(fn.Interface()); err != nil {
		return nil, fmt.Errorf("failed to extract %v from dig: %w", t, err)
	}

	return result, nil
}

// Provide registers, on dc, a constructor for each type that resolves the
// type key from c. dig memoizes the first value it gets.
func Provide(dc *dig.Container, c *cinject.Container, types ...reflect.Type) error {
	if c == nil {
		return cinject.ErrContainerNil
	}

	for _, t := range types {
		if t == nil {
			return ErrTypeNil
		}

		if err := ProvideAs(dc, c, cinject.TypeKey(t), t); err != nil {
			return err
		}
	}

	return nil
}

// ProvideAs registers, on dc, a constructor of t that resolves key from c.
func ProvideAs(dc *dig.Container, c *cinject.Container, key cinject.Keyed, t reflect.Type) error {
	if c == nil {
		return cinject.ErrContainerNil
	}
	if t == nil {
		return ErrTypeNil
	}

	fnType := reflect.FuncOf(nil, []reflect.Type{t, errType}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		value, err := c.Resolve(key)
		if err != nil {
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}

		if value == nil {
			return []reflect.Value{reflect.Zero(t), reflect.Zero(errType)}
		}

		v := reflect.ValueOf(value)
		if !v.Type().AssignableTo(t) {
			var err error = &cinject.TypeMismatchError{Expected: t, Actual: v.Type(), Context: "dig provide"}
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}

		out := reflect.New(t).Elem()
		out.Set(v)
		return []reflect.Value{out, reflect.Zero(errType)}
	})

	if err := dc.Provide(fn.Interface()); err != nil {
		return fmt.Errorf("failed to provide %v to dig: %w", t, err)
	}

	return nil
}
