package cinject

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ============================================================================
// Shared Test Types
// ============================================================================

// TService is a basic service for testing.
type TService struct {
	ID    string
	Value int
}

// TDependency is a basic dependency for testing.
type TDependency struct {
	Name string
}

// TServiceWithDeps demonstrates dependency injection.
type TServiceWithDeps struct {
	Svc *TService
	Dep *TDependency
}

// TInterface is a basic interface for testing.
type TInterface interface {
	GetID() string
}

func (s *TService) GetID() string { return s.ID }

// TTransient represents a transient service.
type TTransient struct {
	Instance int
}

// TConfig is a value type resolved on the fly.
type TConfig struct {
	Env string
}

// ============================================================================
// Circular Dependency Test Types
// ============================================================================

type TCircularA struct{ B *TCircularB }
type TCircularB struct{ A *TCircularA }

func NewTCircularA(b *TCircularB) *TCircularA { return &TCircularA{B: b} }
func NewTCircularB(a *TCircularA) *TCircularB { return &TCircularB{A: a} }

// ============================================================================
// Shared Constructors
// ============================================================================

var instanceCounter atomic.Int64

func NewTService() *TService {
	return &TService{ID: "test", Value: 42}
}

func NewTServiceWithID(id string) func() *TService {
	return func() *TService {
		return &TService{ID: id, Value: 42}
	}
}

func NewTDependency() *TDependency {
	return &TDependency{Name: "dep"}
}

func NewTServiceWithDeps(svc *TService, dep *TDependency) *TServiceWithDeps {
	return &TServiceWithDeps{Svc: svc, Dep: dep}
}

func NewTTransient() *TTransient {
	return &TTransient{Instance: int(instanceCounter.Add(1))}
}

var errConstructor = errors.New("constructor error")

func NewTServiceError() (*TService, error) {
	return nil, errConstructor
}

// ============================================================================
// Test Helpers
// ============================================================================

// NewTestContainer creates a root container with its own metadata table and a
// logger writing to the test log.
func NewTestContainer(t *testing.T, opts ...Option) (*Container, *Metadata) {
	t.Helper()
	md := NewMetadata()
	base := []Option{
		WithMetadata(md),
		WithLogger(zaptest.NewLogger(t)),
	}
	return New(append(base, opts...)...), md
}

// RequireResolve resolves a type or fails the test.
func RequireResolve[T any](t *testing.T, c *Container) T {
	t.Helper()
	v, err := Resolve[T](c)
	require.NoError(t, err)
	return v
}

// RequireResolveKey resolves a key or fails the test.
func RequireResolveKey(t *testing.T, c *Container, k Keyed) any {
	t.Helper()
	v, err := c.Resolve(k)
	require.NoError(t, err)
	return v
}

// ConstantFactory returns a factory producing value and counting its calls.
func ConstantFactory(value any, calls *atomic.Int64) Factory {
	return func(Resolver) (any, error) {
		calls.Add(1)
		return value, nil
	}
}
