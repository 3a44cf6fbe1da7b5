//go:build darwin || freebsd || netbsd || openbsd

package collector

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// PsutilCollector reads the process table through the kernel's sysctl
// interface
type PsutilCollector struct{}

// NewProcessCollector creates the collector for this platform
func NewProcessCollector(Options) ProcessCollector {
	return &PsutilCollector{}
}

// Collect lists every process. A process whose executable cannot be resolved
// is still returned, with a placeholder path.
func (c *PsutilCollector) Collect() (*types.Enumeration, error) {
	logger.Section("Process Collection")
	startTime := time.Now()

	procs, err := process.Processes()
	if err != nil {
		return nil, enumerationError("Processes", err)
	}

	enum := &types.Enumeration{
		Processes: make([]types.ProcessSnapshot, 0, len(procs)),
	}

	for _, p := range procs {
		pid := uint32(p.Pid)

		name, err := p.Name()
		if err != nil {
			name = ""
			enum.Errors = append(enum.Errors, types.ProcessError{PID: pid, Op: "name", Err: err})
		}

		exe, err := p.Exe()
		if err != nil || exe == "" {
			if err == nil {
				err = errNoExecutable
			}
			enum.Errors = append(enum.Errors, types.ProcessError{PID: pid, Op: "exe", Err: err})
			exe = types.PlaceholderPath(err)
		}

		logger.ProcessInfo(pid, name, exe)
		enum.Processes = append(enum.Processes, types.ProcessSnapshot{
			PID:     pid,
			Name:    name,
			ExePath: exe,
		})
	}

	sortByPID(enum.Processes)

	logger.Timing("PsutilCollector.Collect", startTime)
	logger.Info("Processes: %d listed, %d with unresolved attributes", len(enum.Processes), len(enum.Errors))

	return enum, nil
}
