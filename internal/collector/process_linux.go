//go:build linux

package collector

import (
	"time"

	"github.com/prometheus/procfs"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// ProcfsCollector reads the process table from procfs
type ProcfsCollector struct {
	procRoot string
}

// NewProcessCollector creates the collector for this platform
func NewProcessCollector(opts Options) ProcessCollector {
	opts = opts.withDefaults()
	return &ProcfsCollector{procRoot: opts.ProcRoot}
}

// Collect lists every process in procfs. A process whose executable cannot be
// resolved is still returned, with a placeholder path.
func (c *ProcfsCollector) Collect() (*types.Enumeration, error) {
	logger.Section("Process Collection")
	startTime := time.Now()

	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return nil, enumerationError("procfs", err)
	}

	procs, err := fs.AllProcs()
	if err != nil {
		return nil, enumerationError("AllProcs", err)
	}

	enum := &types.Enumeration{
		Processes: make([]types.ProcessSnapshot, 0, len(procs)),
	}

	for _, p := range procs {
		pid := uint32(p.PID)

		name, err := p.Comm()
		if err != nil {
			if stat, statErr := p.Stat(); statErr == nil {
				name = stat.Comm
			} else {
				name = ""
				enum.Errors = append(enum.Errors, types.ProcessError{PID: pid, Op: "comm", Err: err})
			}
		}

		exe, err := p.Executable()
		switch {
		case err != nil:
			enum.Errors = append(enum.Errors, types.ProcessError{PID: pid, Op: "exe", Err: err})
			exe = types.PlaceholderPath(err)
		case exe == "":
			// kernel threads and zombies have no exe link
			exe = types.PlaceholderPath(errNoExecutable)
		}

		logger.ProcessInfo(pid, name, exe)
		enum.Processes = append(enum.Processes, types.ProcessSnapshot{
			PID:     pid,
			Name:    name,
			ExePath: exe,
		})
	}

	sortByPID(enum.Processes)

	logger.Timing("ProcfsCollector.Collect", startTime)
	logger.Info("Processes: %d listed, %d with unresolved attributes", len(enum.Processes), len(enum.Errors))

	return enum, nil
}
