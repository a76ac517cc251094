package capture

import (
	"fmt"
	"sync"
	"weak"

	"github.com/Iron-Ham/caplog/internal/errors"
	"github.com/Iron-Ham/caplog/internal/prefs"
)

// Host is the application a Supervisor acts for.
type Host struct {
	// Name is the command name of the host process in the process table.
	// The user running it is the owning identity of its capture process.
	Name string

	// Prefs is the host's private namespace holding the capture settings.
	Prefs *prefs.Store
}

func (h *Host) validate() error {
	if h == nil {
		return fmt.Errorf("%w: nil host", errors.ErrInvalidInput)
	}
	if h.Name == "" {
		return fmt.Errorf("%w: host name is empty", errors.ErrInvalidInput)
	}
	if h.Prefs == nil {
		return fmt.Errorf("%w: host has no prefs store", errors.ErrInvalidInput)
	}
	return nil
}

// Factory hands out one Supervisor per live Host. It holds hosts only
// weakly: a Host whose owner drops it can be collected, and its Supervisor
// is then rebound to the next Host asked for.
type Factory struct {
	mu          sync.Mutex
	config      Config
	supervisors map[weak.Pointer[Host]]*Supervisor
}

// NewFactory creates a Factory whose supervisors share config.
func NewFactory(config Config) *Factory {
	return &Factory{
		config:      config,
		supervisors: make(map[weak.Pointer[Host]]*Supervisor),
	}
}

// Get returns the Supervisor bound to host, creating or rebinding one as
// needed.
func (f *Factory) Get(host *Host) (*Supervisor, error) {
	if err := host.validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := weak.Make(host)
	if s, ok := f.supervisors[key]; ok {
		return s, nil
	}

	var orphan *Supervisor
	for k, s := range f.supervisors {
		if k.Value() != nil {
			continue
		}
		delete(f.supervisors, k)
		if orphan == nil {
			orphan = s
		}
	}
	if orphan != nil {
		orphan.Rebind(host)
		f.supervisors[key] = orphan
		return orphan, nil
	}

	s := NewSupervisor(f.config, host)
	f.supervisors[key] = s
	return s, nil
}

// Len returns the number of supervisors whose host is still alive.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.supervisors {
		if k.Value() != nil {
			n++
		}
	}
	return n
}
