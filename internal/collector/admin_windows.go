//go:build windows

package collector

import "golang.org/x/sys/windows"

// IsRunningAsAdmin reports whether the process token is elevated
func IsRunningAsAdmin() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
