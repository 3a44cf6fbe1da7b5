// Package collector enumerates the running processes of the host.
// Exactly one ProcessCollector implementation is compiled per platform.
package collector

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/ner0x652/bonomen/pkg/types"
)

const (
	// DefaultMaxPIDs bounds the PID buffer of the Windows collector
	DefaultMaxPIDs = 65536
	// DefaultProcRoot is the procfs mount point read by the Linux collector
	DefaultProcRoot = "/proc"

	initialPIDs = 1024
)

// ErrEnumerationFailed means the process table itself could not be listed.
// The scan did not run; it must not be reported as "nothing found".
var ErrEnumerationFailed = errors.New("process enumeration failed")

// ErrInsufficientPrivilege means the scan was refused because the process is
// not elevated
var ErrInsufficientPrivilege = errors.New("administrative privileges required to read process executable paths")

var errNoExecutable = errors.New("no executable image")

// ProcessCollector produces the current process list
type ProcessCollector interface {
	Collect() (*types.Enumeration, error)
}

// Options configures the platform collector
type Options struct {
	ProcRoot string // linux
	MaxPIDs  int    // windows
}

func (o Options) withDefaults() Options {
	if o.ProcRoot == "" {
		o.ProcRoot = DefaultProcRoot
	}
	if o.MaxPIDs < 1 {
		o.MaxPIDs = DefaultMaxPIDs
	}
	return o
}

func enumerationError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrEnumerationFailed, op, err)
}

// CombineErrors folds the per-process errors of an enumeration into one error,
// nil when there are none.
func CombineErrors(enum *types.Enumeration) error {
	if enum == nil {
		return nil
	}
	var errs error
	for i := range enum.Errors {
		errs = multierr.Append(errs, &enum.Errors[i])
	}
	return errs
}

func sortByPID(procs []types.ProcessSnapshot) {
	slices.SortFunc(procs, func(a, b types.ProcessSnapshot) int {
		switch {
		case a.PID < b.PID:
			return -1
		case a.PID > b.PID:
			return 1
		}
		return 0
	})
}

// fillGrowing calls fill with buffers of increasing size, starting at initial
// and doubling up to limit, until fill reports the data fit. It returns the
// used prefix of the last buffer and whether limit was reached while the
// buffer was still full.
func fillGrowing[T any](initial, limit int, fill func(buf []T) (n int, full bool, err error)) ([]T, bool, error) {
	if limit < 1 {
		limit = 1
	}
	size := max(1, min(initial, limit))
	for {
		buf := make([]T, size)
		n, full, err := fill(buf)
		if err != nil {
			return nil, false, err
		}
		n = min(max(n, 0), size)
		if !full {
			return buf[:n], false, nil
		}
		if size >= limit {
			return buf[:n], true, nil
		}
		size = min(size*2, limit)
	}
}

// nulIndex returns the length of a NUL-terminated UTF-16 buffer
func nulIndex(buf []uint16) int {
	for i, c := range buf {
		if c == 0 {
			return i
		}
	}
	return len(buf)
}
