package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

var (
	// ErrNotFunction is returned when a constructor is not a function value.
	ErrNotFunction = errors.New("constructor must be a function")

	// ErrNoResult is returned when a constructor does not produce a value.
	ErrNoResult = errors.New("constructor must return a value")

	// ErrBadResults is returned when a constructor has an unsupported result list.
	ErrBadResults = errors.New("constructor must return T or (T, error)")

	// ErrVariadic is returned for variadic constructors.
	ErrVariadic = errors.New("variadic constructors are not supported")

	// ErrTooManyArgs is returned when more arguments are supplied than the
	// constructor accepts.
	ErrTooManyArgs = errors.New("too many arguments for constructor")

	// ErrArgumentType is returned when a resolved dependency cannot be
	// assigned to the matching constructor parameter.
	ErrArgumentType = errors.New("dependency has the wrong type")

	// ErrNotConstructible is returned by Default for types that have no
	// default constructor.
	ErrNotConstructible = errors.New("type has no default constructor")
)

// Analyzer performs reflection-based analysis of constructor functions.
// It caches analysis results per function.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// ConstructorInfo contains analyzed information about a constructor.
type ConstructorInfo struct {
	// Func is the constructor function. It is the zero Value for default
	// constructors built by Default.
	Func reflect.Value

	// Params are the constructor parameter types, in order.
	Params []reflect.Type

	// Out is the type the constructor produces.
	Out reflect.Type

	// HasErrorReturn is true for (T, error) constructors.
	HasErrorReturn bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Pointer returns the identity used for a constructor function: its code
// pointer. Closures created from the same function literal share an identity.
func Pointer(fn reflect.Value) uintptr {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return 0
	}

	return fn.Pointer()
}

// Analyze analyzes a constructor function.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	val, ok := constructor.(reflect.Value)
	if !ok {
		val = reflect.ValueOf(constructor)
	}

	if !val.IsValid() || val.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w, got %v", ErrNotFunction, val.Kind())
	}

	if val.IsNil() {
		return nil, fmt.Errorf("constructor cannot be nil")
	}

	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.cache[cacheKey]; ok && cached.Func.Type() == val.Type() {
		a.mu.RUnlock()
		// Closures of one literal share a code pointer but not their captures.
		info := *cached
		info.Func = val
		return &info, nil
	}
	a.mu.RUnlock()

	fnType := val.Type()
	if fnType.IsVariadic() {
		return nil, ErrVariadic
	}

	info := &ConstructorInfo{
		Func:   val,
		Params: make([]reflect.Type, fnType.NumIn()),
	}

	for i := 0; i < fnType.NumIn(); i++ {
		info.Params[i] = fnType.In(i)
	}

	if err := analyzeReturns(info, fnType); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeReturns accepts T and (T, error) result lists.
func analyzeReturns(info *ConstructorInfo, fnType reflect.Type) error {
	switch fnType.NumOut() {
	case 0:
		return ErrNoResult
	case 1:
		if fnType.Out(0) == errType {
			return ErrNoResult
		}
	case 2:
		if fnType.Out(0) == errType || fnType.Out(1) != errType {
			return ErrBadResults
		}
		info.HasErrorReturn = true
	default:
		return ErrBadResults
	}

	info.Out = fnType.Out(0)
	return nil
}

// Default returns a parameterless constructor for struct and pointer-to-struct
// types. The instance it produces is the zero value (a new zeroed struct for
// pointer types).
func Default(t reflect.Type) (*ConstructorInfo, error) {
	if !IsConstructible(t) {
		return nil, fmt.Errorf("%w: %v", ErrNotConstructible, t)
	}

	return &ConstructorInfo{Out: t}, nil
}

// IsConstructible reports whether Default can build t.
func IsConstructible(t reflect.Type) bool {
	if t == nil {
		return false
	}

	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	default:
		return false
	}
}

// Args converts resolved dependency values into call arguments. Missing
// trailing arguments are filled with zero values; nil values become typed
// zero values.
func (info *ConstructorInfo) Args(args []any) ([]reflect.Value, error) {
	if len(args) > len(info.Params) {
		return nil, fmt.Errorf("%w: got %d, want at most %d", ErrTooManyArgs, len(args), len(info.Params))
	}

	in := make([]reflect.Value, len(info.Params))
	for i, paramType := range info.Params {
		if i >= len(args) || args[i] == nil {
			in[i] = reflect.Zero(paramType)
			continue
		}

		v := reflect.ValueOf(args[i])
		if !v.Type().AssignableTo(paramType) {
			return nil, fmt.Errorf("%w: argument %d is %v, want %v", ErrArgumentType, i, v.Type(), paramType)
		}
		in[i] = v
	}

	return in, nil
}

// Call invokes the constructor. Errors returned by the constructor are
// returned unchanged and panics are not recovered.
func (info *ConstructorInfo) Call(in []reflect.Value) (any, error) {
	if !info.Func.IsValid() {
		if info.Out.Kind() == reflect.Pointer {
			return reflect.New(info.Out.Elem()).Interface(), nil
		}
		return reflect.New(info.Out).Elem().Interface(), nil
	}

	results := info.Func.Call(in)

	if info.HasErrorReturn {
		if errVal := results[1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}

	return results[0].Interface(), nil
}

// Clear clears the analysis cache.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.cache = make(map[uintptr]*ConstructorInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}
