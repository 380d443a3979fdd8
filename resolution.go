package cinject

// Resolver resolves keys from inside a factory. Resolutions made through it
// take part in cycle detection for the resolution in progress, and it may be
// used from several goroutines at once.
//
// A Resolver is only valid while the factory it was passed to runs. Factories
// that need to resolve later should keep Container() instead, but must not
// use it while running: a factory that resolves its own key through
// Container() bypasses cycle detection and blocks forever.
type Resolver interface {
	// Resolve resolves a key from the container the outer resolution was
	// started on.
	Resolve(k Keyed) (any, error)

	// Container returns that container.
	Container() *Container
}

// resolution tracks one key being resolved.
type resolution struct {
	container *Container
	path      *path
}

func (r *resolution) Resolve(k Keyed) (any, error) {
	return r.container.resolve(keyOf(k), r.path)
}

func (r *resolution) Container() *Container {
	return r.container
}

// path is an immutable stack of the keys being resolved, innermost first.
// Branches share their common ancestry, so concurrent resolutions through
// one Resolver never see each other's keys. The nil path is empty.
type path struct {
	key    Key
	parent *path
}

// push returns p with key on top. It fails with a CircularDependencyError if
// key is already being resolved.
func (p *path) push(key Key) (*path, error) {
	for node := p; node != nil; node = node.parent {
		if node.key == key {
			return nil, &CircularDependencyError{Path: append(p.keys(), key)}
		}
	}

	return &path{key: key, parent: p}, nil
}

// keys returns the keys of p, outermost first.
func (p *path) keys() []Key {
	var keys []Key
	for node := p; node != nil; node = node.parent {
		keys = append(keys, node.key)
	}

	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys
}

// pathOf returns the path of r, or the empty path for foreign Resolver
// implementations.
func pathOf(r Resolver) *path {
	if res, ok := r.(*resolution); ok && res != nil {
		return res.path
	}

	return nil
}
