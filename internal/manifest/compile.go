package manifest

import (
	"fmt"
	"time"

	"github.com/torosent/loadtime/internal/loader"
)

// UnitError is returned by a unit declared with a fail message.
type UnitError struct {
	Unit    string
	Message string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q failed: %s", e.Unit, e.Message)
}

// Label groups unit failures in report summaries.
func (e *UnitError) Label() string {
	return "Manifest unit error"
}

// CompileOption configures Compile.
type CompileOption func(*compiler)

type compiler struct {
	sleep func(time.Duration)
}

// WithSleep replaces time.Sleep for spending unit costs.
func WithSleep(sleep func(time.Duration)) CompileOption {
	return func(c *compiler) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// Compile registers every unit of m in reg.
func (m *Manifest) Compile(reg *loader.Registry, opts ...CompileOption) error {
	c := &compiler{sleep: time.Sleep}
	for _, opt := range opts {
		opt(c)
	}
	for _, u := range m.Units {
		if err := reg.Register(loader.Definition{
			Name:     u.Name,
			Filename: u.File,
			Aliases:  u.Aliases,
			Init:     c.init(u),
		}); err != nil {
			return fmt.Errorf("register %s: %w", u.Name, err)
		}
	}
	return nil
}

func (c *compiler) init(u Unit) loader.InitFunc {
	return func(ctx *loader.InitContext) (any, error) {
		if u.cost > 0 {
			c.sleep(u.cost)
		}
		deps := make(map[string]any, len(u.Requires))
		for _, dep := range u.Requires {
			exports, err := ctx.Require(dep)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", u.Name, err)
			}
			deps[dep] = exports
		}
		if u.Fail != "" {
			return nil, &UnitError{Unit: u.Name, Message: u.Fail}
		}
		return deps, nil
	}
}
