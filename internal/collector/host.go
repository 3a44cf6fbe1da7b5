package collector

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/ner0x652/bonomen/internal/logger"
	"github.com/ner0x652/bonomen/pkg/types"
)

// GetHostInfo returns host system information. Fields the OS will not
// disclose fall back to what the Go runtime knows.
func GetHostInfo() types.HostInfo {
	info := types.HostInfo{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	stat, err := host.Info()
	if err != nil {
		logger.Debug("host.Info failed: %v", err)
		info.Hostname, _ = os.Hostname()
		return info
	}

	info.Hostname = stat.Hostname
	info.Platform = stat.Platform
	info.OSVersion = stat.PlatformVersion
	if stat.KernelArch != "" {
		info.Arch = stat.KernelArch
	}
	return info
}
