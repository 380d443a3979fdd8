package cinject

import (
	"sync"
	"sync/atomic"
)

// registration produces the value bound to a key.
type registration func(r *resolution) (any, error)

// registrations is the registration map owned by one container.
type registrations struct {
	entries map[Key]registration
	mu      sync.RWMutex
}

func newRegistrations() *registrations {
	return &registrations{
		entries: make(map[Key]registration),
	}
}

// get retrieves the registration for key
func (m *registrations) get(key Key) (registration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.entries[key]
	return reg, ok
}

// set stores a registration, replacing any previous one
func (m *registrations) set(key Key, reg registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = reg
}

// len returns the number of registrations
func (m *registrations) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// constant always returns value.
func constant(value any) registration {
	return func(*resolution) (any, error) {
		return value, nil
	}
}

// transient calls factory on every resolution.
func transient(factory Factory) registration {
	return func(r *resolution) (any, error) {
		return factory(r)
	}
}

// memo is the cell behind a singleton registration.
type memo struct {
	mu     sync.Mutex
	solved atomic.Bool
	value  any
}

// singleton calls factory until it succeeds once and returns that value from
// then on. Concurrent first resolutions call factory only once.
func singleton(factory Factory) registration {
	cell := &memo{}

	return func(r *resolution) (any, error) {
		if cell.solved.Load() {
			return cell.value, nil
		}

		cell.mu.Lock()
		defer cell.mu.Unlock()

		if cell.solved.Load() {
			return cell.value, nil
		}

		value, err := factory(r)
		if err != nil {
			return nil, err
		}

		cell.value = value
		cell.solved.Store(true)
		return value, nil
	}
}

// failing always returns err. It stands in for registrations whose failure
// only surfaces on resolution.
func failing(err error) registration {
	return func(*resolution) (any, error) {
		return nil, err
	}
}
