package cinject

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/junioryono/cinject/internal/reflection"
)

// Metadata is a side table describing constructors: which function builds a
// type, and which keys a constructor function depends on.
//
// Nothing is stored on the types themselves. Containers read the table they
// were created with (see WithMetadata); by default that is DefaultMetadata.
type Metadata struct {
	analyzer *reflection.Analyzer

	mu           sync.RWMutex
	params       map[uintptr][]Key
	constructors map[reflect.Type]*reflection.ConstructorInfo
}

var defaultMetadata = NewMetadata()

// NewMetadata creates an empty metadata table.
func NewMetadata() *Metadata {
	return &Metadata{
		analyzer:     reflection.New(),
		params:       make(map[uintptr][]Key),
		constructors: make(map[reflect.Type]*reflection.ConstructorInfo),
	}
}

// DefaultMetadata returns the process-wide metadata table.
func DefaultMetadata() *Metadata {
	return defaultMetadata
}

// Injectable declares ctor as the constructor of the type it returns and
// records the keys of its dependencies, positionally aligned with its
// parameters. Declaring the same constructor again overwrites the previous
// declaration; declaring it without keys clears them, so the strategy's
// fallback applies. Use InjectableNoDeps to declare that it has none.
//
// ctor must be a function returning T or (T, error).
//
//	cinject.Injectable(NewUserService, DatabaseToken, cinject.TypeOf[*Logger]())
func (m *Metadata) Injectable(ctor any, deps ...Keyed) error {
	return m.declare(ctor, deps, len(deps) > 0)
}

// InjectableNoDeps declares ctor like Injectable, and records that it has no
// dependencies at all. Under ReflectFallback its parameters then receive
// their zero values instead of being resolved by type.
func (m *Metadata) InjectableNoDeps(ctor any) error {
	return m.declare(ctor, nil, true)
}

// declare records ctor. When explicit is false any declared keys are
// cleared.
func (m *Metadata) declare(ctor any, deps []Keyed, explicit bool) error {
	if ctor == nil {
		return &ConstructorError{Cause: ErrConstructorNil}
	}

	info, err := m.analyzer.Analyze(ctor)
	if err != nil {
		return &ConstructorError{Type: reflect.TypeOf(ctor), Cause: err}
	}

	if len(deps) > len(info.Params) {
		return &ConstructorError{
			Type:  info.Func.Type(),
			Cause: fmt.Errorf("%w: %d keys declared for %d parameters", reflection.ErrTooManyArgs, len(deps), len(info.Params)),
		}
	}

	keys := make([]Key, len(deps))
	for i, dep := range deps {
		keys[i] = keyOf(dep)
		if !keys[i].IsValid() {
			return &ConstructorError{
				Type:  info.Func.Type(),
				Cause: fmt.Errorf("dependency %d: %w", i, ErrKeyInvalid),
			}
		}
	}

	ptr := reflection.Pointer(info.Func)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.constructors[info.Out] = info
	if explicit {
		m.params[ptr] = keys
	} else {
		delete(m.params, ptr)
	}

	return nil
}

// ExplicitKeys returns the keys declared for ctor with Injectable.
func (m *Metadata) ExplicitKeys(ctor any) ([]Key, bool) {
	fn, ok := ctor.(reflect.Value)
	if !ok {
		fn = reflect.ValueOf(ctor)
	}

	return m.explicitKeys(fn)
}

func (m *Metadata) explicitKeys(fn reflect.Value) ([]Key, bool) {
	ptr := reflection.Pointer(fn)
	if ptr == 0 {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys, ok := m.params[ptr]
	if !ok {
		return nil, false
	}

	return append([]Key(nil), keys...), true
}

// HasConstructor reports whether a constructor was declared for t.
func (m *Metadata) HasConstructor(t reflect.Type) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.constructors[t]
	return ok
}

// class returns the constructor for v, which is a constructor function, a
// reflect.Type or a type key. Types use their declared constructor when
// there is one and the default constructor otherwise.
func (m *Metadata) class(v any) (*reflection.ConstructorInfo, error) {
	switch class := v.(type) {
	case nil:
		return nil, &ConstructorError{Cause: ErrConstructorNil}
	case Key:
		if class.Kind() != KindType {
			return nil, &ConstructorError{Cause: fmt.Errorf("%s is not a type key", class)}
		}
		return m.typeClass(class.Type())
	case reflect.Type:
		return m.typeClass(class)
	default:
		info, err := m.analyzer.Analyze(v)
		if err != nil {
			return nil, &ConstructorError{Type: reflect.TypeOf(v), Cause: err}
		}
		return info, nil
	}
}

func (m *Metadata) typeClass(t reflect.Type) (*reflection.ConstructorInfo, error) {
	m.mu.RLock()
	info, ok := m.constructors[t]
	m.mu.RUnlock()

	if ok {
		return info, nil
	}

	info, err := reflection.Default(t)
	if err != nil {
		return nil, &ConstructorError{Type: t, Cause: err}
	}

	return info, nil
}

// constructible reports whether t can be built without a registration.
func (m *Metadata) constructible(t reflect.Type) bool {
	return m.HasConstructor(t) || reflection.IsConstructible(t)
}

// Injectable declares a constructor on DefaultMetadata. See Metadata.Injectable.
func Injectable(ctor any, deps ...Keyed) error {
	return defaultMetadata.Injectable(ctor, deps...)
}

// InjectableNoDeps declares a constructor without dependencies on
// DefaultMetadata. See Metadata.InjectableNoDeps.
func InjectableNoDeps(ctor any) error {
	return defaultMetadata.InjectableNoDeps(ctor)
}

// MustInjectable is like Injectable but panics on error. It is meant for
// package-level declarations next to the constructor.
//
//	var _ = cinject.MustInjectable(NewFoo, cinject.TypeOf[*Bar]())
func MustInjectable(ctor any, deps ...Keyed) bool {
	if err := Injectable(ctor, deps...); err != nil {
		panic(fmt.Sprintf("cinject: %v", err))
	}

	return true
}
