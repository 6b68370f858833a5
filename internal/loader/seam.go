package loader

import "sync"

// LoadFunc loads the unit identified by name on behalf of parent.
// parent is nil for top-level loads.
type LoadFunc func(name string, parent *Module) (any, error)

// Seam holds the active load function. All dependency loads funnel through
// Load, which makes the function swappable at runtime.
type Seam struct {
	mu      sync.RWMutex
	load    LoadFunc
	owner   any
	resolve func(name string) *Module
}

// NewSeam creates a Seam that delegates to fn.
func NewSeam(fn LoadFunc) *Seam {
	return &Seam{load: fn}
}

// Load invokes the active load function.
func (s *Seam) Load(name string, parent *Module) (any, error) {
	fn := s.Current()
	if fn == nil {
		return nil, &NotFoundError{Name: name}
	}
	return fn(name, parent)
}

// Current returns the active load function.
func (s *Seam) Current() LoadFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load
}

// Swap replaces the active load function and returns the previous one.
// The seam no longer has an owner afterwards.
func (s *Seam) Swap(fn LoadFunc) LoadFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.load
	s.load = fn
	s.owner = nil
	return prev
}

// SwapOwned is Swap on behalf of owner, which must be comparable. It
// returns the function and owner it replaced, for RestoreOwned.
func (s *Seam) SwapOwned(owner any, fn LoadFunc) (LoadFunc, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, prevOwner := s.load, s.owner
	s.load, s.owner = fn, owner
	return prev, prevOwner
}

// RestoreOwned puts prev and prevOwner back only if owner still holds the
// seam. It reports whether it did.
func (s *Seam) RestoreOwned(owner any, prev LoadFunc, prevOwner any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != owner {
		return false
	}
	s.load, s.owner = prev, prevOwner
	return true
}

// SetResolver installs the lookup used by Resolve.
func (s *Seam) SetResolver(fn func(name string) *Module) {
	s.mu.Lock()
	s.resolve = fn
	s.mu.Unlock()
}

// Resolve returns the module name resolved to, or nil when unknown or when
// the seam has no resolver.
func (s *Seam) Resolve(name string) *Module {
	s.mu.RLock()
	fn := s.resolve
	s.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn(name)
}
