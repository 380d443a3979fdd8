package cinject

import (
	"fmt"
	"testing"
)

// Benchmark service types
type BenchService struct {
	Name string
}

type BenchDep1 struct{ Value int }
type BenchDep2 struct{ Value int }
type BenchDep3 struct{ Value int }
type BenchDep4 struct{ Value int }
type BenchDep5 struct{ Value int }

type BenchServiceWith1Dep struct {
	Dep1 *BenchDep1
}

type BenchServiceWith5Deps struct {
	Dep1 *BenchDep1
	Dep2 *BenchDep2
	Dep3 *BenchDep3
	Dep4 *BenchDep4
	Dep5 *BenchDep5
}

// Constructors for benchmarks
func NewBenchService() *BenchService {
	return &BenchService{Name: "bench"}
}

func NewBenchDep1() *BenchDep1 { return &BenchDep1{Value: 1} }
func NewBenchDep2() *BenchDep2 { return &BenchDep2{Value: 2} }
func NewBenchDep3() *BenchDep3 { return &BenchDep3{Value: 3} }
func NewBenchDep4() *BenchDep4 { return &BenchDep4{Value: 4} }
func NewBenchDep5() *BenchDep5 { return &BenchDep5{Value: 5} }

func NewBenchServiceWith1Dep(dep1 *BenchDep1) *BenchServiceWith1Dep {
	return &BenchServiceWith1Dep{Dep1: dep1}
}

func NewBenchServiceWith5Deps(dep1 *BenchDep1, dep2 *BenchDep2, dep3 *BenchDep3, dep4 *BenchDep4, dep5 *BenchDep5) *BenchServiceWith5Deps {
	return &BenchServiceWith5Deps{Dep1: dep1, Dep2: dep2, Dep3: dep3, Dep4: dep4, Dep5: dep5}
}

// setupBenchContainer registers every bench type on a fresh root.
func setupBenchContainer(b *testing.B, opts ...RegisterOption) *Container {
	b.Helper()

	c := New(WithMetadata(NewMetadata()))
	c.RegisterType(TypeOf[*BenchService](), NewBenchService, opts...)
	c.RegisterType(TypeOf[*BenchDep1](), NewBenchDep1, opts...)
	c.RegisterType(TypeOf[*BenchDep2](), NewBenchDep2, opts...)
	c.RegisterType(TypeOf[*BenchDep3](), NewBenchDep3, opts...)
	c.RegisterType(TypeOf[*BenchDep4](), NewBenchDep4, opts...)
	c.RegisterType(TypeOf[*BenchDep5](), NewBenchDep5, opts...)
	c.RegisterType(TypeOf[*BenchServiceWith1Dep](), NewBenchServiceWith1Dep, opts...)
	c.RegisterType(TypeOf[*BenchServiceWith5Deps](), NewBenchServiceWith5Deps, opts...)
	return c
}

// BenchmarkResolution measures warm resolution for singleton and transient
// registrations with a growing number of dependencies.
func BenchmarkResolution(b *testing.B) {
	targets := []struct {
		name string
		key  Key
	}{
		{"0deps", TypeOf[*BenchService]()},
		{"1dep", TypeOf[*BenchServiceWith1Dep]()},
		{"5deps", TypeOf[*BenchServiceWith5Deps]()},
	}

	for _, mode := range []struct {
		name string
		opts []RegisterOption
	}{
		{"Singleton", nil},
		{"Transient", []RegisterOption{Transient()}},
	} {
		for _, target := range targets {
			b.Run(mode.name+"/"+target.name, func(b *testing.B) {
				c := setupBenchContainer(b, mode.opts...)
				if _, err := c.Resolve(target.key); err != nil {
					b.Fatalf("failed to resolve: %v", err)
				}

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					_, _ = c.Resolve(target.key)
				}
			})
		}
	}
}

// BenchmarkResolutionDepth measures lookups walking up a chain of children.
func BenchmarkResolutionDepth(b *testing.B) {
	for _, depth := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("depth%d", depth), func(b *testing.B) {
			c := setupBenchContainer(b)
			for i := 0; i < depth; i++ {
				c = c.CreateChild()
			}
			key := TypeOf[*BenchServiceWith5Deps]()
			_, _ = c.Resolve(key)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_, _ = c.Resolve(key)
			}
		})
	}
}

// BenchmarkConcurrentResolution measures resolution from many goroutines,
// each through its own child.
func BenchmarkConcurrentResolution(b *testing.B) {
	c := setupBenchContainer(b)
	key := TypeOf[*BenchServiceWith5Deps]()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		child := c.CreateChild()
		for pb.Next() {
			_, _ = child.Resolve(key)
		}
	})
}

// BenchmarkChildCreation measures creating a child and registering a
// request value on it.
func BenchmarkChildCreation(b *testing.B) {
	c := setupBenchContainer(b)
	token := NewToken[string]("request-id")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		child := c.CreateChild()
		child.RegisterConstant(token, "id")
	}
}

// BenchmarkGenericResolve measures the typed helper against Resolve.
func BenchmarkGenericResolve(b *testing.B) {
	c := setupBenchContainer(b)
	_ = MustResolve[*BenchServiceWith5Deps](c)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = Resolve[*BenchServiceWith5Deps](c)
	}
}

// BenchmarkOnTheFly measures first-time construction of undeclared types
// through the metadata table, and the cached path afterwards.
func BenchmarkOnTheFly(b *testing.B) {
	newDeclared := func(b *testing.B) *Container {
		md := NewMetadata()
		for _, ctor := range []any{NewBenchDep1, NewBenchDep2, NewBenchDep3, NewBenchDep4, NewBenchDep5, NewBenchServiceWith5Deps} {
			if err := md.Injectable(ctor); err != nil {
				b.Fatal(err)
			}
		}
		return New(WithMetadata(md))
	}

	b.Run("cold", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = MustResolve[*BenchServiceWith5Deps](newDeclared(b))
		}
	})

	b.Run("cached", func(b *testing.B) {
		c := newDeclared(b).CreateChild()
		_ = MustResolve[*BenchServiceWith5Deps](c)

		b.ResetTimer()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = MustResolve[*BenchServiceWith5Deps](c)
		}
	})
}
