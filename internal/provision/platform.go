package provision

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrUnsupportedPlatform indicates the host OS has no runtime installer
// artifact. Fatal to provisioning.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Platform is the closed set of operating systems the runtime installer
// supports.
type Platform int

const (
	// PlatformLinux is a Linux host.
	PlatformLinux Platform = iota
	// PlatformDarwin is a macOS host.
	PlatformDarwin
	// PlatformWindows is a Windows host.
	PlatformWindows
)

// Runtime installer artifact URLs, one per supported platform.
const (
	linuxInstallerURL   = "https://repo.anaconda.com/miniconda/Miniconda3-latest-Linux-x86_64.sh"
	darwinInstallerURL  = "https://repo.anaconda.com/miniconda/Miniconda3-latest-MacOSX-x86_64.sh"
	windowsInstallerURL = "https://repo.anaconda.com/miniconda/Miniconda3-latest-Windows-x86_64.exe"
)

// DetectPlatform maps the host OS onto the supported set.
func DetectPlatform() (Platform, error) {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux, nil
	case "darwin":
		return PlatformDarwin, nil
	case "windows":
		return PlatformWindows, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
	}
}

func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "linux"
	case PlatformDarwin:
		return "darwin"
	case PlatformWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// InstallerURL returns the runtime installer artifact for the platform.
func (p Platform) InstallerURL() string {
	switch p {
	case PlatformLinux:
		return linuxInstallerURL
	case PlatformDarwin:
		return darwinInstallerURL
	case PlatformWindows:
		return windowsInstallerURL
	default:
		return ""
	}
}

// InstallerFileName returns the local name the installer artifact is saved
// under before it is invoked and deleted.
func (p Platform) InstallerFileName() string {
	if p == PlatformWindows {
		return "runtime-installer.exe"
	}

	return "runtime-installer.sh"
}

// InstallCommand returns the silent-install invocation targeting runtimeDir.
func (p Platform) InstallCommand(installerPath, runtimeDir string) (string, []string) {
	if p == PlatformWindows {
		return installerPath, []string{"/S", "/D=" + runtimeDir}
	}

	return "sh", []string{installerPath, "-b", "-p", runtimeDir}
}

// RuntimeExecutable returns the fixed path of the runtime interpreter inside
// runtimeDir. Its presence is the idempotency marker for the whole install.
func (p Platform) RuntimeExecutable(runtimeDir string) string {
	if p == PlatformWindows {
		return filepath.Join(runtimeDir, "python.exe")
	}

	return filepath.Join(runtimeDir, "bin", "python3")
}
