// Package profile holds per-application compatibility overrides for text injection.
package profile

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// commLimit mirrors the kernel's 15-byte process name truncation.
const commLimit = 15

// Profile carries the injection overrides for one application, keyed by process name.
// Zero durations and an empty paste shortcut defer to the request options.
type Profile struct {
	Process         string
	DisplayName     string
	Weight          float64
	PreferClipboard bool
	UseUnicodeFix   bool
	InterCharDelay  time.Duration
	LinePause       time.Duration
	PasteShortcut   string
	FocusSettle     time.Duration
}

// Fallback is the profile used for processes absent from the table.
func Fallback(process string) Profile {
	process = strings.TrimSpace(process)
	return Profile{Process: process, DisplayName: process, Weight: 1}
}

// Table is an immutable, ordered set of profiles.
type Table struct {
	profiles []Profile
	index    map[string]int
}

// NewTable validates profiles and builds a lookup index. Order is preserved.
func NewTable(profiles []Profile) (Table, error) {
	t := Table{
		profiles: make([]Profile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	for _, p := range profiles {
		p.Process = strings.TrimSpace(p.Process)
		if p.Process == "" {
			return Table{}, fmt.Errorf("profile process name must not be empty")
		}
		if _, exists := t.index[p.Process]; exists {
			return Table{}, fmt.Errorf("duplicate profile for process %q", p.Process)
		}
		if p.Weight < 0 {
			return Table{}, fmt.Errorf("profile %q: weight must be >= 0", p.Process)
		}
		if p.Weight == 0 {
			p.Weight = 1
		}
		if p.InterCharDelay < 0 || p.LinePause < 0 || p.FocusSettle < 0 {
			return Table{}, fmt.Errorf("profile %q: delays must be >= 0", p.Process)
		}
		if strings.TrimSpace(p.DisplayName) == "" {
			p.DisplayName = p.Process
		}
		p.PasteShortcut = strings.TrimSpace(p.PasteShortcut)
		t.index[p.Process] = len(t.profiles)
		t.profiles = append(t.profiles, p)
	}
	return t, nil
}

// Lookup finds the profile for a process, accepting kernel-truncated names.
func (t Table) Lookup(process string) (Profile, bool) {
	process = strings.TrimSpace(process)
	if i, ok := t.index[process]; ok {
		return t.profiles[i], true
	}
	if len(process) != commLimit {
		return Profile{}, false
	}
	for _, p := range t.profiles {
		if len(p.Process) > commLimit && p.Process[:commLimit] == process {
			return p, true
		}
	}
	return Profile{}, false
}

// Resolve returns the table profile for process or the fallback profile.
func (t Table) Resolve(process string) Profile {
	if p, ok := t.Lookup(process); ok {
		return p
	}
	return Fallback(process)
}

// Profiles returns a copy of the table in declaration order.
func (t Table) Profiles() []Profile {
	out := make([]Profile, len(t.profiles))
	copy(out, t.profiles)
	return out
}

// Len returns the number of profiles.
func (t Table) Len() int {
	return len(t.profiles)
}

// Processes returns the sorted process names in the table.
func (t Table) Processes() []string {
	names := make([]string, 0, len(t.profiles))
	for _, p := range t.profiles {
		names = append(names, p.Process)
	}
	sort.Strings(names)
	return names
}

// Store publishes the current table. Replace swaps the whole table at once.
type Store struct {
	mu    sync.RWMutex
	table Table
}

// NewStore wraps an initial table.
func NewStore(table Table) *Store {
	return &Store{table: table}
}

// Table returns the current table snapshot.
func (s *Store) Table() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Replace installs a new table.
func (s *Store) Replace(table Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
}
