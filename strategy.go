package cinject

import (
	"encoding/json"
	"fmt"

	"github.com/junioryono/cinject/internal/reflection"
)

// ParamStrategy decides which keys a constructor depends on.
// A container tree uses a single strategy, fixed when its root is created.
type ParamStrategy int

const (
	// ReflectFallback returns the keys declared with Injectable and, when
	// none are declared, the constructor's parameter types as type keys.
	ReflectFallback ParamStrategy = iota

	// ExplicitOnly returns the keys declared with Injectable and nothing
	// otherwise. Parameters without a declared key receive their zero value.
	ExplicitOnly
)

// String returns the string representation of the ParamStrategy.
func (s ParamStrategy) String() string {
	switch s {
	case ReflectFallback:
		return "ReflectFallback"
	case ExplicitOnly:
		return "ExplicitOnly"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsValid checks if the strategy is valid.
func (s ParamStrategy) IsValid() bool {
	return s >= ReflectFallback && s <= ExplicitOnly
}

// MarshalText implements encoding.TextMarshaler.
func (s ParamStrategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ParamStrategy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ReflectFallback", "reflect", "reflect-fallback":
		*s = ReflectFallback
	case "ExplicitOnly", "explicit", "explicit-only":
		*s = ExplicitOnly
	default:
		return fmt.Errorf("invalid parameter strategy: %q", string(text))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s ParamStrategy) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ParamStrategy) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}

	return s.UnmarshalText([]byte(text))
}

// paramKeys returns the ordered dependency keys of a constructor. It never
// fails: a constructor without metadata has no dependencies.
func (s ParamStrategy) paramKeys(md *Metadata, info *reflection.ConstructorInfo) []Key {
	if explicit, ok := md.ExplicitKeys(info.Func); ok {
		return explicit
	}

	if s != ReflectFallback || len(info.Params) == 0 {
		return nil
	}

	keys := make([]Key, len(info.Params))
	for i, paramType := range info.Params {
		keys[i] = TypeKey(paramType)
	}

	return keys
}
