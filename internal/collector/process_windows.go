//go:build windows

package collector

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// inspectAccess is all the collector needs: module list and names
const inspectAccess = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ

// PsapiCollector enumerates processes through the process status API
type PsapiCollector struct {
	maxPIDs int
}

// NewProcessCollector creates the collector for this platform
func NewProcessCollector(opts Options) ProcessCollector {
	opts = opts.withDefaults()
	return &PsapiCollector{maxPIDs: opts.MaxPIDs}
}

// Collect lists the running processes. Processes that cannot be opened or
// whose main module cannot be read are left out and reported in Errors.
func (c *PsapiCollector) Collect() (*types.Enumeration, error) {
	logger.Section("Process Collection")
	startTime := time.Now()

	pids, truncated, err := c.enumProcesses()
	if err != nil {
		return nil, enumerationError("EnumProcesses", err)
	}
	if truncated {
		logger.Warn("PID list truncated at %d entries (max-pids); remaining processes were not scanned", c.maxPIDs)
	}

	enum := &types.Enumeration{
		Processes: make([]types.ProcessSnapshot, 0, len(pids)),
	}

	for _, pid := range pids {
		snapshot, perr := inspectProcess(pid)
		if perr != nil {
			logger.Debug("Skipping PID %d: %s failed: %v", pid, perr.Op, perr.Err)
			enum.Errors = append(enum.Errors, *perr)
			continue
		}
		if snapshot.Name == "" {
			continue
		}

		logger.ProcessInfo(pid, snapshot.Name, snapshot.ExePath)
		enum.Processes = append(enum.Processes, snapshot)
	}

	sortByPID(enum.Processes)

	logger.Timing("PsapiCollector.Collect", startTime)
	logger.Info("Processes: %d inspected, %d skipped", len(enum.Processes), len(enum.Errors))

	return enum, nil
}

// enumProcesses grows the PID buffer until EnumProcesses leaves room to spare
func (c *PsapiCollector) enumProcesses() ([]uint32, bool, error) {
	return fillGrowing(initialPIDs, c.maxPIDs, func(buf []uint32) (int, bool, error) {
		var written uint32
		cb := uint32(len(buf)) * uint32(unsafe.Sizeof(buf[0]))
		logger.APICall("EnumProcesses", cb)
		if err := windows.EnumProcesses(buf, &written); err != nil {
			logger.APIResult("EnumProcesses", nil, err)
			return 0, false, err
		}
		n := int(written / uint32(unsafe.Sizeof(buf[0])))
		return n, written >= cb, nil
	})
}

// inspectProcess resolves the base name and image path of one process
func inspectProcess(pid uint32) (types.ProcessSnapshot, *types.ProcessError) {
	handle, err := windows.OpenProcess(inspectAccess, false, pid)
	if err != nil {
		return types.ProcessSnapshot{}, &types.ProcessError{PID: pid, Op: "OpenProcess", Err: err}
	}
	defer windows.CloseHandle(handle)

	// the first module is the executable itself
	var module windows.Handle
	var needed uint32
	err = windows.EnumProcessModulesEx(handle, &module, uint32(unsafe.Sizeof(module)), &needed, windows.LIST_MODULES_ALL)
	if err != nil {
		return types.ProcessSnapshot{}, &types.ProcessError{PID: pid, Op: "EnumProcessModulesEx", Err: err}
	}

	name, err := readModuleString(func(buf []uint16) error {
		return windows.GetModuleBaseName(handle, module, &buf[0], uint32(len(buf)))
	})
	if err != nil {
		return types.ProcessSnapshot{}, &types.ProcessError{PID: pid, Op: "GetModuleBaseName", Err: err}
	}

	path, err := readModuleString(func(buf []uint16) error {
		return windows.GetModuleFileNameEx(handle, module, &buf[0], uint32(len(buf)))
	})
	if err != nil {
		return types.ProcessSnapshot{}, &types.ProcessError{PID: pid, Op: "GetModuleFileNameEx", Err: err}
	}

	return types.ProcessSnapshot{PID: pid, Name: name, ExePath: path}, nil
}

// readModuleString reads a NUL-terminated UTF-16 string, growing the buffer
// while the API fills it completely (its truncation signal).
func readModuleString(read func(buf []uint16) error) (string, error) {
	buf, _, err := fillGrowing(windows.MAX_PATH, windows.MAX_LONG_PATH, func(buf []uint16) (int, bool, error) {
		if err := read(buf); err != nil {
			return 0, false, err
		}
		n := nulIndex(buf)
		return n, n >= len(buf)-1, nil
	})
	if err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf), nil
}
