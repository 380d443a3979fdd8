package reflection_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/junioryono/cinject/internal/reflection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type Database struct {
	ConnectionString string
}

type Logger interface {
	Log(msg string)
}

type ConsoleLogger struct{}

func (c *ConsoleLogger) Log(msg string) {}

type UserService struct {
	DB     *Database
	Logger Logger
}

// Test constructors
func NewDatabase(connStr string) *Database {
	return &Database{ConnectionString: connStr}
}

func NewUserService(db *Database, logger Logger) *UserService {
	return &UserService{DB: db, Logger: logger}
}

func NewUserServiceWithError(db *Database) (*UserService, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	return &UserService{DB: db}, nil
}

func TestAnalyzer_SimpleConstructor(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.True(t, info.Func.IsValid(), "Expected Func to be set")
	assert.False(t, info.HasErrorReturn)

	require.Len(t, info.Params, 1, "Expected 1 parameter")
	assert.Equal(t, reflect.TypeOf(""), info.Params[0], "Expected string parameter type")
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.Out, "Expected *Database return type")
}

func TestAnalyzer_ConstructorWithMultipleParams(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err, "Failed to analyze constructor")

	require.Len(t, info.Params, 2, "Expected 2 parameters")
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.Params[0], "Expected first parameter to be *Database")
	assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), info.Params[1], "Expected second parameter to be Logger interface")
}

func TestAnalyzer_ConstructorWithError(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserServiceWithError)
	require.NoError(t, err, "Failed to analyze constructor")

	assert.True(t, info.HasErrorReturn, "Expected HasErrorReturn to be true")
	assert.Equal(t, reflect.TypeOf((*UserService)(nil)), info.Out)
}

func TestAnalyzer_ReflectValue(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(reflect.ValueOf(NewDatabase))
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeOf((*Database)(nil)), info.Out)
}

func TestAnalyzer_InvalidConstructors(t *testing.T) {
	analyzer := reflection.New()

	var nilFunc func() *Database

	tests := []struct {
		name        string
		constructor any
		wantErr     error
	}{
		{
			name:        "Non-function",
			constructor: &Database{},
			wantErr:     reflection.ErrNotFunction,
		},
		{
			name:        "No results",
			constructor: func() {},
			wantErr:     reflection.ErrNoResult,
		},
		{
			name:        "Only error",
			constructor: func() error { return nil },
			wantErr:     reflection.ErrNoResult,
		},
		{
			name:        "Error first",
			constructor: func() (error, *Database) { return nil, nil },
			wantErr:     reflection.ErrBadResults,
		},
		{
			name:        "Two values",
			constructor: func() (*Database, *UserService) { return nil, nil },
			wantErr:     reflection.ErrBadResults,
		},
		{
			name:        "Three results",
			constructor: func() (*Database, *UserService, error) { return nil, nil, nil },
			wantErr:     reflection.ErrBadResults,
		},
		{
			name:        "Variadic",
			constructor: func(names ...string) *Database { return nil },
			wantErr:     reflection.ErrVariadic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.Analyze(tt.constructor)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("Nil", func(t *testing.T) {
		_, err := analyzer.Analyze(nil)
		assert.Error(t, err)
	})

	t.Run("Nil function", func(t *testing.T) {
		_, err := analyzer.Analyze(nilFunc)
		assert.Error(t, err)
	})
}

func TestAnalyzer_Caching(t *testing.T) {
	analyzer := reflection.New()

	info1, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err)

	info2, err := analyzer.Analyze(NewDatabase)
	require.NoError(t, err)

	assert.Equal(t, info1.Out, info2.Out)
	assert.Equal(t, 1, analyzer.CacheSize(), "Expected a single cache entry")

	analyzer.Clear()
	assert.Equal(t, 0, analyzer.CacheSize(), "Expected empty cache after Clear")
}

func TestAnalyzer_DifferentFunctionsWithSameSignature(t *testing.T) {
	analyzer := reflection.New()

	newPrimary := func() *Database { return &Database{ConnectionString: "primary"} }
	newReplica := func() *Database { return &Database{ConnectionString: "replica"} }

	primary, err := analyzer.Analyze(newPrimary)
	require.NoError(t, err)
	replica, err := analyzer.Analyze(newReplica)
	require.NoError(t, err)

	v1, err := primary.Call(nil)
	require.NoError(t, err)
	v2, err := replica.Call(nil)
	require.NoError(t, err)

	assert.Equal(t, "primary", v1.(*Database).ConnectionString)
	assert.Equal(t, "replica", v2.(*Database).ConnectionString)
	assert.Equal(t, 2, analyzer.CacheSize())
}

func TestAnalyzer_Closures(t *testing.T) {
	analyzer := reflection.New()

	makeConstructor := func(conn string) func() *Database {
		return func() *Database { return &Database{ConnectionString: conn} }
	}

	first, err := analyzer.Analyze(makeConstructor("first"))
	require.NoError(t, err)
	second, err := analyzer.Analyze(makeConstructor("second"))
	require.NoError(t, err)

	v1, err := first.Call(nil)
	require.NoError(t, err)
	v2, err := second.Call(nil)
	require.NoError(t, err)

	assert.Equal(t, "first", v1.(*Database).ConnectionString)
	assert.Equal(t, "second", v2.(*Database).ConnectionString, "Cached analysis must call the closure it was given")
}

func TestPointer(t *testing.T) {
	assert.NotZero(t, reflection.Pointer(reflect.ValueOf(NewDatabase)))
	assert.Equal(t, reflection.Pointer(reflect.ValueOf(NewDatabase)), reflection.Pointer(reflect.ValueOf(NewDatabase)))
	assert.NotEqual(t, reflection.Pointer(reflect.ValueOf(NewDatabase)), reflection.Pointer(reflect.ValueOf(NewUserService)))

	var nilFunc func()
	assert.Zero(t, reflection.Pointer(reflect.Value{}))
	assert.Zero(t, reflection.Pointer(reflect.ValueOf(nilFunc)))
	assert.Zero(t, reflection.Pointer(reflect.ValueOf(42)))
}

func TestDefault(t *testing.T) {
	t.Run("Pointer to struct", func(t *testing.T) {
		info, err := reflection.Default(reflect.TypeOf((*Database)(nil)))
		require.NoError(t, err)
		assert.Empty(t, info.Params)

		v1, err := info.Call(nil)
		require.NoError(t, err)
		v2, err := info.Call(nil)
		require.NoError(t, err)

		require.IsType(t, &Database{}, v1)
		assert.NotSame(t, v1, v2, "Expected a new instance per call")
	})

	t.Run("Struct", func(t *testing.T) {
		info, err := reflection.Default(reflect.TypeOf(Database{}))
		require.NoError(t, err)

		v, err := info.Call(nil)
		require.NoError(t, err)
		assert.Equal(t, Database{}, v)
	})

	t.Run("Not constructible", func(t *testing.T) {
		for _, typ := range []reflect.Type{
			nil,
			reflect.TypeOf(""),
			reflect.TypeOf((*Logger)(nil)).Elem(),
			reflect.TypeOf((**Database)(nil)),
			reflect.TypeOf([]Database{}),
		} {
			assert.False(t, reflection.IsConstructible(typ), "%v", typ)

			_, err := reflection.Default(typ)
			assert.ErrorIs(t, err, reflection.ErrNotConstructible)
		}
	})
}

func TestConstructorInfo_Args(t *testing.T) {
	analyzer := reflection.New()

	info, err := analyzer.Analyze(NewUserService)
	require.NoError(t, err)

	db := &Database{}

	t.Run("All arguments", func(t *testing.T) {
		in, err := info.Args([]any{db, &ConsoleLogger{}})
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.Same(t, db, in[0].Interface())
	})

	t.Run("Missing arguments are zero", func(t *testing.T) {
		in, err := info.Args([]any{db})
		require.NoError(t, err)
		require.Len(t, in, 2)
		assert.True(t, in[1].IsNil())
	})

	t.Run("Nil arguments are zero", func(t *testing.T) {
		in, err := info.Args([]any{nil, nil})
		require.NoError(t, err)
		assert.True(t, in[0].IsNil())
		assert.True(t, in[1].IsNil())
	})

	t.Run("Too many arguments", func(t *testing.T) {
		_, err := info.Args([]any{db, &ConsoleLogger{}, 42})
		assert.ErrorIs(t, err, reflection.ErrTooManyArgs)
	})

	t.Run("Wrong type", func(t *testing.T) {
		_, err := info.Args([]any{"not a database"})
		assert.ErrorIs(t, err, reflection.ErrArgumentType)
	})
}

func TestConstructorInfo_Call(t *testing.T) {
	analyzer := reflection.New()

	t.Run("Returns value", func(t *testing.T) {
		info, err := analyzer.Analyze(NewUserService)
		require.NoError(t, err)

		db := &Database{ConnectionString: "test"}
		in, err := info.Args([]any{db})
		require.NoError(t, err)

		v, err := info.Call(in)
		require.NoError(t, err)
		assert.Same(t, db, v.(*UserService).DB)
	})

	t.Run("Constructor error is returned unchanged", func(t *testing.T) {
		info, err := analyzer.Analyze(NewUserServiceWithError)
		require.NoError(t, err)

		in, err := info.Args(nil)
		require.NoError(t, err)

		v, err := info.Call(in)
		assert.Nil(t, v)
		assert.EqualError(t, err, "database is required")
	})

	t.Run("Panics propagate", func(t *testing.T) {
		info, err := analyzer.Analyze(func() *Database { panic("boom") })
		require.NoError(t, err)

		assert.PanicsWithValue(t, "boom", func() {
			_, _ = info.Call(nil)
		})
	})
}

func TestAnalyzer_ConcurrentAnalysis(t *testing.T) {
	analyzer := reflection.New()

	constructors := []any{NewDatabase, NewUserService, NewUserServiceWithError}

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := analyzer.Analyze(constructors[i%len(constructors)]); err != nil {
				errs <- fmt.Errorf("goroutine %d: %w", i, err)
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, len(constructors), analyzer.CacheSize())
}
