package config

import (
	"sync"

	"github.com/spf13/pflag"
)

// FlagTracker provides thread-safe tracking of explicitly set flags
type FlagTracker struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlagTracker creates a new thread-safe flag tracker
func NewFlagTracker() *FlagTracker {
	return &FlagTracker{
		flags: make(map[string]bool),
	}
}

// NewFlagTrackerFromFlagSet records every flag of fs the user set on the
// command line. Flags left at their default are not recorded.
func NewFlagTrackerFromFlagSet(fs *pflag.FlagSet) *FlagTracker {
	ft := NewFlagTracker()
	if fs == nil {
		return ft
	}
	fs.Visit(func(f *pflag.Flag) {
		ft.Set(f.Name)
	})
	return ft
}

// Set marks a flag as explicitly set
func (ft *FlagTracker) Set(flagName string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.flags[flagName] = true
}

// WasSet checks if a flag was explicitly set
func (ft *FlagTracker) WasSet(flagName string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.flags[flagName]
}

// GetAll returns a copy of all flags (safe for concurrent access)
func (ft *FlagTracker) GetAll() map[string]bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	result := make(map[string]bool, len(ft.flags))
	for k, v := range ft.flags {
		result[k] = v
	}
	return result
}

// Count returns the number of explicitly set flags
func (ft *FlagTracker) Count() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.flags)
}
