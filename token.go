package cinject

import (
	"fmt"
	"reflect"
	"strconv"
)

// Kind discriminates the variants of Key.
type Kind uint8

const (
	// KindInvalid is the zero Key. It can be neither registered nor resolved.
	KindInvalid Kind = iota

	// KindSymbol is an opaque token. Identity is the token itself: two symbols
	// created with the same description are different keys.
	KindSymbol

	// KindType is a constructor token. The Go type is its own key and, when it
	// has a constructor, can be resolved without any registration.
	KindType

	// KindName is a plain string key. Prone to collisions; prefer symbols.
	KindName
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "Symbol"
	case KindType:
		return "Type"
	case KindName:
		return "Name"
	default:
		return fmt.Sprintf("Invalid(%d)", int(k))
	}
}

// symbol backs symbolic keys. Only its address matters.
type symbol struct {
	description string
}

// Key identifies a binding in a container. It is comparable and is used
// directly as a map key.
//
// Keys are created with Symbol, NewToken, TypeOf, TypeKey or Name.
type Key struct {
	kind Kind
	sym  *symbol
	typ  reflect.Type
	name string
}

// Keyed is implemented by everything accepted where a key is expected.
type Keyed interface {
	Key() Key
}

// Symbol creates a new opaque key. Every call returns a distinct key.
func Symbol(description string) Key {
	return Key{kind: KindSymbol, sym: &symbol{description: description}}
}

// TypeOf returns the constructor key of T.
//
//	cinject.TypeOf[*UserService]()
func TypeOf[T any]() Key {
	return TypeKey(reflect.TypeOf((*T)(nil)).Elem())
}

// TypeKey returns the constructor key of t. A nil type gives the invalid key.
func TypeKey(t reflect.Type) Key {
	if t == nil {
		return Key{}
	}

	return Key{kind: KindType, typ: t}
}

// Name returns a string key.
func Name(name string) Key {
	return Key{kind: KindName, name: name}
}

// Key implements Keyed.
func (k Key) Key() Key {
	return k
}

// Kind returns the variant of the key.
func (k Key) Kind() Kind {
	return k.kind
}

// Type returns the type of a KindType key, or nil.
func (k Key) Type() reflect.Type {
	return k.typ
}

// IsValid reports whether the key can be registered and resolved.
func (k Key) IsValid() bool {
	switch k.kind {
	case KindSymbol:
		return k.sym != nil
	case KindType:
		return k.typ != nil
	case KindName:
		return true
	default:
		return false
	}
}

// String renders the key for logs and error messages.
func (k Key) String() string {
	switch k.kind {
	case KindSymbol:
		if k.sym == nil {
			return "Symbol(<nil>)"
		}
		return "Symbol(" + k.sym.description + ")"
	case KindType:
		return formatType(k.typ)
	case KindName:
		return strconv.Quote(k.name)
	default:
		return "<invalid key>"
	}
}

// Token is a symbolic key carrying the type of the value it resolves to.
// The type is only checked at compile time, by ResolveToken.
//
//	var ConfigToken = cinject.NewToken[*Config]("config")
//
//	c.RegisterConstant(ConfigToken, cfg)
//	cfg, err := cinject.ResolveToken(c, ConfigToken)
type Token[T any] struct {
	key Key
}

// NewToken creates a new typed symbolic token.
func NewToken[T any](description string) Token[T] {
	return Token[T]{key: Symbol(description)}
}

// Key implements Keyed.
func (t Token[T]) Key() Key {
	return t.key
}

// String renders the token.
func (t Token[T]) String() string {
	return t.key.String()
}

// keyOf converts a Keyed to a Key, tolerating nil interfaces.
func keyOf(k Keyed) Key {
	if k == nil {
		return Key{}
	}

	return k.Key()
}
