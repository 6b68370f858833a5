// Package hook times every load made through a loader.Seam.
package hook

import (
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/loadtime/internal/loader"
)

// ErrNoListener is returned by Install when no listener is supplied.
var ErrNoListener = errors.New("hook: listener must be a non-nil function")

// Event describes one intercepted load.
type Event struct {
	Name       string
	Filename   string
	Module     *loader.Module
	Parent     *loader.Module
	Exports    any
	Err        error
	RequiredAt time.Time
	Duration   time.Duration
}

// Listener receives load events synchronously, in completion order.
type Listener func(Event)

// Multi returns a listener that forwards each event to every non-nil listener in order.
func Multi(listeners ...Listener) Listener {
	var active []Listener
	for _, l := range listeners {
		if l != nil {
			active = append(active, l)
		}
	}
	return func(ev Event) {
		for _, l := range active {
			l(ev)
		}
	}
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for timing loads.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session is one instrumentation lifecycle over a seam: Install swaps the
// seam's load function for a timing wrapper, Restore puts the original back.
type Session struct {
	mu          sync.Mutex
	id          ulid.ULID
	seam        *loader.Seam
	original    loader.LoadFunc
	prevOwner   any
	listener    Listener
	installedAt time.Time
	installed   bool
	now         func() time.Time
}

// NewSession creates an uninstalled session for seam.
func NewSession(seam *loader.Seam, opts ...Option) *Session {
	s := &Session{
		id:   ulid.Make(),
		seam: seam,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session in reports.
func (s *Session) ID() string {
	return s.id.String()
}

// Install registers listener and starts timing loads. Calling Install on an
// installed session replaces the listener and resets the install time without
// wrapping the seam twice.
func (s *Session) Install(listener Listener) error {
	if listener == nil {
		return ErrNoListener
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listener = listener
	if !s.installed {
		s.original = s.seam.Current()
		_, s.prevOwner = s.seam.SwapOwned(s, s.wrap(s.original))
		s.installed = true
	}
	s.installedAt = s.now()
	return nil
}

// Restore reinstalls the original load function. It is a no-op when the
// session is not installed. If another session was installed on the seam
// afterwards, its wrapper stays in place and this session's wrapper keeps
// passing loads through without reporting them.
func (s *Session) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.installed {
		return
	}
	s.seam.RestoreOwned(s, s.original, s.prevOwner)
	s.original = nil
	s.prevOwner = nil
	s.installed = false
	s.installedAt = time.Time{}
}

// InstalledAt returns the install time and whether the session is installed.
func (s *Session) InstalledAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installedAt, s.installed
}

// Now reads the session clock.
func (s *Session) Now() time.Time {
	return s.now()
}

func (s *Session) wrap(original loader.LoadFunc) loader.LoadFunc {
	return func(name string, parent *loader.Module) (any, error) {
		s.mu.Lock()
		listener := s.listener
		if !s.installed {
			listener = nil
		}
		s.mu.Unlock()

		timeIn := s.now()
		var (
			exports any
			err     error
		)
		if original != nil {
			exports, err = original(name, parent)
		} else {
			err = &loader.NotFoundError{Name: name}
		}
		timeOut := s.now()

		ev := Event{
			Name:       name,
			Filename:   name,
			Parent:     parent,
			Exports:    exports,
			Err:        err,
			RequiredAt: timeIn,
			Duration:   timeOut.Sub(timeIn),
		}
		// Seams without a resolver fall back to the caller's last child,
		// which is only reliable when loads from one parent do not overlap.
		if err == nil {
			mod := s.seam.Resolve(name)
			if mod == nil {
				mod = parent.LastChild()
			}
			if mod != nil {
				ev.Module = mod
				if mod.Filename != "" {
					ev.Filename = mod.Filename
				}
			}
		}
		if listener != nil {
			listener(ev)
		}
		return exports, err
	}
}
