package provision_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/speech-service/internal/command"
	"github.com/book-expert/speech-service/internal/download"
	"github.com/book-expert/speech-service/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, log *logger.Logger) *command.Runner {
	t.Helper()

	return command.NewRunner(log)
}

// writeStubScript writes an executable shell script for use as a fake
// runtime interpreter.
func writeStubScript(t *testing.T, path, body string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
}

func TestEnsureRuntime_ExistingInterpreterShortCircuits(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter scripts require a POSIX shell")
	}

	platform, platformErr := provision.DetectPlatform()
	require.NoError(t, platformErr)

	runtimeDir := filepath.Join(t.TempDir(), "runtime")
	runtimePath := platform.RuntimeExecutable(runtimeDir)

	writeStubScript(t, runtimePath, "exit 0")

	log := newTestLogger(t)

	// No server backs the installer URL: an existing interpreter must
	// return without any network call or install invocation.
	installer := provision.NewRuntimeInstaller(download.New(), newTestRunner(t, log), runtimeDir, log)

	resolved, err := installer.EnsureRuntime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runtimePath, resolved)
}

func TestDetectPlatform_SupportedHosts(t *testing.T) {
	t.Parallel()

	platform, err := provision.DetectPlatform()

	switch runtime.GOOS {
	case "linux", "darwin", "windows":
		require.NoError(t, err)
		assert.Equal(t, runtime.GOOS, platform.String())
	default:
		assert.ErrorIs(t, err, provision.ErrUnsupportedPlatform)
	}
}

func TestPlatformInstallCommands(t *testing.T) {
	t.Parallel()

	name, args := provision.PlatformLinux.InstallCommand("/tmp/installer.sh", "/opt/runtime")
	assert.Equal(t, "sh", name)
	assert.Equal(t, []string{"/tmp/installer.sh", "-b", "-p", "/opt/runtime"}, args)

	name, args = provision.PlatformWindows.InstallCommand(`C:\installer.exe`, `C:\runtime`)
	assert.Equal(t, `C:\installer.exe`, name)
	assert.Equal(t, []string{"/S", `/D=C:\runtime`}, args)
}

func TestPlatformRuntimeExecutable(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		filepath.Join("/opt/runtime", "bin", "python3"),
		provision.PlatformLinux.RuntimeExecutable("/opt/runtime"),
	)
	assert.Equal(t,
		filepath.Join("runtime", "python.exe"),
		provision.PlatformWindows.RuntimeExecutable("runtime"),
	)
}

func TestEnsureEngine_AlreadyInstalled(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter scripts require a POSIX shell")
	}

	callLog := filepath.Join(t.TempDir(), "calls.log")
	runtimePath := filepath.Join(t.TempDir(), "bin", "python3")

	writeStubScript(t, runtimePath, fmt.Sprintf(`echo "$@" >> %s
exit 0`, callLog))

	log := newTestLogger(t)
	installer := provision.NewEngineInstaller(newTestRunner(t, log), log)

	err := installer.EnsureEngine(context.Background(), runtimePath)
	require.NoError(t, err)

	calls, readErr := os.ReadFile(callLog)
	require.NoError(t, readErr)

	// A successful presence check must be the only invocation.
	assert.Equal(t, "-m pip show piper-tts\n", string(calls))
}

func TestEnsureEngine_InstallsWhenAbsent(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter scripts require a POSIX shell")
	}

	callLog := filepath.Join(t.TempDir(), "calls.log")
	runtimePath := filepath.Join(t.TempDir(), "bin", "python3")

	writeStubScript(t, runtimePath, fmt.Sprintf(`echo "$@" >> %s
case "$*" in
*show*) exit 1 ;;
esac
exit 0`, callLog))

	log := newTestLogger(t)
	installer := provision.NewEngineInstaller(newTestRunner(t, log), log)

	err := installer.EnsureEngine(context.Background(), runtimePath)
	require.NoError(t, err)

	calls, readErr := os.ReadFile(callLog)
	require.NoError(t, readErr)

	expected := "-m pip show piper-tts\n" +
		"-m pip install --upgrade pip\n" +
		"-m pip install piper-tts\n"
	assert.Equal(t, expected, string(calls))
}

func TestEnsureEngine_InstallFailureIsFatal(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("stub interpreter scripts require a POSIX shell")
	}

	runtimePath := filepath.Join(t.TempDir(), "bin", "python3")

	writeStubScript(t, runtimePath, "exit 1")

	log := newTestLogger(t)
	installer := provision.NewEngineInstaller(newTestRunner(t, log), log)

	err := installer.EnsureEngine(context.Background(), runtimePath)
	require.Error(t, err)
	assert.ErrorIs(t, err, command.ErrCommandFailed)
}
