// Package procfs enumerates processes by name and probes their liveness via /proc.
package procfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// commLimit is the kernel's TASK_COMM_LEN minus the trailing NUL.
const commLimit = 15

// Table reads process metadata from a procfs mount.
type Table struct {
	Root string
}

// New returns a table rooted at /proc.
func New() Table {
	return Table{Root: "/proc"}
}

// FindByName returns pids whose comm matches name, in ascending pid order.
func (t Table) FindByName(name string) ([]int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("process name must not be empty")
	}

	entries, err := os.ReadDir(t.root())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.root(), err)
	}

	pids := make([]int, 0, 4)
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		comm, err := t.Name(pid)
		if err != nil {
			// Processes exit between ReadDir and the comm read.
			continue
		}
		if MatchesName(comm, name) {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

// Name returns the comm value for pid.
func (t Table) Name(pid int) (string, error) {
	data, err := os.ReadFile(filepath.Join(t.root(), strconv.Itoa(pid), "comm"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// State returns the single-letter scheduler state from /proc/<pid>/stat.
func (t Table) State(pid int) (byte, error) {
	data, err := os.ReadFile(filepath.Join(t.root(), strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, err
	}
	// comm is parenthesised and may itself contain spaces or parens.
	text := string(data)
	end := strings.LastIndexByte(text, ')')
	if end < 0 || end+2 >= len(text) {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	return text[end+2], nil
}

// Responsive reports whether pid exists and is neither a zombie nor stopped.
func (t Table) Responsive(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid pid %d", pid)
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		if errors.Is(err, unix.ESRCH) {
			return false, nil
		}
		return false, fmt.Errorf("signal probe pid %d: %w", pid, err)
	}

	state, err := t.State(pid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	switch state {
	case 'Z', 'X', 'T', 't':
		return false, nil
	default:
		return true, nil
	}
}

// MatchesName reports whether a comm value refers to the named process.
func MatchesName(comm string, name string) bool {
	return strings.TrimSpace(comm) == commName(strings.TrimSpace(name))
}

func commName(name string) string {
	if len(name) > commLimit {
		return name[:commLimit]
	}
	return name
}

func (t Table) root() string {
	if strings.TrimSpace(t.Root) == "" {
		return "/proc"
	}
	return t.Root
}
