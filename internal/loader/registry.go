package loader

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is matched by every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("unit not found")

// NotFoundError reports a load of a name nothing was registered under.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find unit %q", e.Name)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InitFunc initializes a unit and returns its exports.
type InitFunc func(ctx *InitContext) (any, error)

// Definition describes a loadable unit.
type Definition struct {
	Name     string
	Filename string
	Aliases  []string
	Init     InitFunc
}

// Module is a unit that has been (or is being) loaded.
type Module struct {
	Name     string
	Filename string
	Parent   *Module
	Exports  any
	Loaded   bool

	mu       sync.Mutex
	children []*Module

	// done is closed once init has finished; err is set before that when it failed.
	done chan struct{}
	err  error
}

// descendsFrom reports whether anc is m or one of m's ancestors.
func (m *Module) descendsFrom(anc *Module) bool {
	for p := m; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

func (m *Module) exports() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Exports
}

// Children returns a copy of the modules loaded on behalf of m, most recent last.
func (m *Module) Children() []*Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Module, len(m.children))
	copy(out, m.children)
	return out
}

// LastChild returns the most recently appended child, or nil.
func (m *Module) LastChild() *Module {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.children) == 0 {
		return nil
	}
	return m.children[len(m.children)-1]
}

func (m *Module) addChild(child *Module) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.children = append(m.children, child)
	m.mu.Unlock()
}

func (m *Module) removeChild(child *Module) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.children) - 1; i >= 0; i-- {
		if m.children[i] == child {
			m.children = append(m.children[:i], m.children[i+1:]...)
			return
		}
	}
}

// InitContext is handed to an InitFunc while its unit loads.
type InitContext struct {
	registry *Registry
	module   *Module
}

// Module returns the unit being initialized.
func (c *InitContext) Module() *Module {
	return c.module
}

// Require loads a dependency of the unit being initialized. The load goes
// through the registry's bound seam when there is one.
func (c *InitContext) Require(name string) (any, error) {
	return c.registry.require(name, c.module)
}

// Registry loads registered units and caches their exports.
type Registry struct {
	mu    sync.Mutex
	defs  map[string]*Definition
	cache map[string]*Module
	seam  *Seam
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:  make(map[string]*Definition),
		cache: make(map[string]*Module),
	}
}

// Bind routes nested loads made from init functions through seam and lets
// the seam resolve names to the modules this registry loaded.
func (r *Registry) Bind(seam *Seam) {
	r.mu.Lock()
	r.seam = seam
	r.mu.Unlock()
	if seam != nil {
		seam.SetResolver(r.Resolve)
	}
}

// Resolve returns the module cached under name or one of its aliases, or nil.
func (r *Registry) Resolve(name string) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, ok := r.defs[name]
	if !ok {
		return nil
	}
	return r.cache[def.Name]
}

// Register adds a unit under its name and aliases. A later registration of the
// same name or alias replaces the earlier one.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("definition name is required")
	}
	d := def
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.Name] = &d
	for _, alias := range d.Aliases {
		if alias != "" {
			r.defs[alias] = &d
		}
	}
	return nil
}

// Load implements LoadFunc. A unit is initialized at most once. A load that
// finds the unit still initializing in its own parent chain is an import
// cycle and gets the exports as they are so far (nil). Any other load of an
// initializing unit waits for its init to finish. Loads of each other's
// units from two goroutines whose inits depend on each other deadlock.
// A failed init removes the unit from the cache and from parent's children,
// and waiting loads get the same error.
func (r *Registry) Load(name string, parent *Module) (any, error) {
	r.mu.Lock()
	def, ok := r.defs[name]
	if !ok {
		r.mu.Unlock()
		return nil, &NotFoundError{Name: name}
	}
	if mod, cached := r.cache[def.Name]; cached {
		r.mu.Unlock()
		if !parent.descendsFrom(mod) {
			<-mod.done
			if mod.err != nil {
				return nil, mod.err
			}
		}
		parent.addChild(mod)
		return mod.exports(), nil
	}
	mod := &Module{Name: def.Name, Filename: def.Filename, Parent: parent, done: make(chan struct{})}
	r.cache[def.Name] = mod
	r.mu.Unlock()

	parent.addChild(mod)

	exports, err := r.initialize(def, mod)
	if err != nil {
		r.forget(def.Name, mod, err)
		return nil, err
	}
	mod.mu.Lock()
	mod.Exports = exports
	mod.Loaded = true
	mod.mu.Unlock()
	close(mod.done)
	return exports, nil
}

func (r *Registry) initialize(def *Definition, mod *Module) (exports any, err error) {
	if def.Init == nil {
		return nil, nil
	}
	defer func() {
		if p := recover(); p != nil {
			r.forget(def.Name, mod, fmt.Errorf("unit %q panicked: %v", def.Name, p))
			panic(p)
		}
	}()
	return def.Init(&InitContext{registry: r, module: mod})
}

// forget drops a unit whose init failed and releases its waiters with err.
func (r *Registry) forget(name string, mod *Module, err error) {
	r.mu.Lock()
	if r.cache[name] == mod {
		delete(r.cache, name)
	}
	r.mu.Unlock()
	mod.Parent.removeChild(mod)
	mod.err = err
	close(mod.done)
}

func (r *Registry) require(name string, parent *Module) (any, error) {
	r.mu.Lock()
	seam := r.seam
	r.mu.Unlock()
	if seam != nil {
		return seam.Load(name, parent)
	}
	return r.Load(name, parent)
}
