package cinject

import (
	"fmt"

	"github.com/junioryono/cinject/internal/reflection"
)

// typeResolver builds one instance of a prepared constructor.
type typeResolver func(p *path) (any, error)

// prepareTypeResolver reads the dependency keys of class once and returns a
// resolver that, on every call, resolves them through c strictly in
// declaration order and invokes the constructor with the results.
//
// Preparation does not resolve anything.
func prepareTypeResolver(class *reflection.ConstructorInfo, c *Container) typeResolver {
	keys := c.opts.strategy.paramKeys(c.opts.metadata, class)

	paramResolvers := make([]func(p *path) (any, error), len(keys))
	for i, key := range keys {
		paramResolvers[i] = func(p *path) (any, error) {
			return c.resolve(key, p)
		}
	}

	return func(p *path) (any, error) {
		if len(paramResolvers) > len(class.Params) {
			return nil, &ConstructorError{
				Type:  class.Out,
				Cause: fmt.Errorf("%w: %d keys for %d parameters", reflection.ErrTooManyArgs, len(paramResolvers), len(class.Params)),
			}
		}

		args := make([]any, 0, len(paramResolvers))
		for _, resolve := range paramResolvers {
			arg, err := resolve(p)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		in, err := class.Args(args)
		if err != nil {
			return nil, &ConstructorError{Type: class.Out, Cause: err}
		}

		return class.Call(in)
	}
}
